// Package service wires the parser, risk engine, analytics engine and query
// engine into the load pipeline consumed by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gradelens/internal/adapters/repository"
	"github.com/okian/gradelens/internal/domain/analytics"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/parser"
	"github.com/okian/gradelens/internal/domain/query"
	"github.com/okian/gradelens/internal/domain/risk"
	"github.com/okian/gradelens/internal/domain/types"
	"github.com/okian/gradelens/pkg/logger"
	"github.com/okian/gradelens/pkg/metrics"
)

// DefaultMaxUploadBytes is the upload size limit when none is configured.
const DefaultMaxUploadBytes = 10 << 20

// Pipeline owns the current dataset. Each Load replaces it wholesale; a
// failed load leaves the previous dataset in place.
type Pipeline struct {
	mu sync.RWMutex

	// Components
	parser    *parser.Parser
	assessor  risk.Assessor
	analytics *analytics.Engine
	query     *query.Engine
	standings repository.Store

	// Configuration
	maxUploadBytes int64
	maxRows        int
	performerCount int
	insightRules   []analytics.InsightRule
	now            func() time.Time

	// Committed state
	records   []model.AssessedRecord
	rowErrors []parser.RowError
	headers   []string
	datasetID string
	loadedAt  time.Time

	// Latest-write-wins: every Load takes a generation and commits only if
	// it is still the newest.
	generation atomic.Uint64

	loads      atomic.Int64
	failed     atomic.Int64
	superseded atomic.Int64

	logger  logger.Logger
	metrics *metrics.Manager
}

// New constructs a Pipeline with an empty dataset.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		assessor:       risk.New(),
		maxUploadBytes: DefaultMaxUploadBytes,
		performerCount: analytics.DefaultPerformerCount,
		now:            time.Now,
		logger:         logger.NewNop(),
		metrics:        metrics.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.parser = parser.New(parser.WithClock(p.now), parser.WithMaxRows(p.maxRows))
	aopts := []analytics.Option{
		analytics.WithPerformerCount(p.performerCount),
		analytics.WithLogger(p.logger),
	}
	if len(p.insightRules) > 0 {
		aopts = append(aopts, analytics.WithInsightRules(p.insightRules))
	}
	p.analytics = analytics.New(aopts...)
	p.query = query.New()
	if p.standings == nil {
		p.standings = repository.NewTreapStore(repository.WithMetrics(p.metrics))
	}
	p.records = []model.AssessedRecord{}
	return p
}

// Load reads one CSV upload and, if it parses, replaces the dataset.
// Read failures return *FileReadError; uploads larger than the limit return
// ErrUploadTooLarge; parse failures return *parser.ParseError. A load that
// was overtaken by a newer one before committing returns ErrSuperseded.
func (p *Pipeline) Load(ctx context.Context, r io.Reader) (types.UploadSummary, error) {
	gen := p.generation.Add(1)
	start := time.Now()
	p.loads.Add(1)

	p.logger.Info(ctx, "load started", logger.Int("generation", int(gen)))

	data, err := io.ReadAll(io.LimitReader(r, p.maxUploadBytes+1))
	if err != nil {
		return p.fail(ctx, metrics.OutcomeReadError, &FileReadError{Err: err})
	}
	if int64(len(data)) > p.maxUploadBytes {
		return p.fail(ctx, metrics.OutcomeTooLarge, ErrUploadTooLarge)
	}
	if err := ctx.Err(); err != nil {
		return p.fail(ctx, metrics.OutcomeReadError, &FileReadError{Err: err})
	}
	p.metrics.RecordUploadBytes(int64(len(data)))

	parseStart := time.Now()
	res, err := p.parser.Parse(string(data))
	p.metrics.RecordParseLatency(millis(time.Since(parseStart)))
	if err != nil {
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			p.metrics.RecordRows(0, len(pe.RowErrors))
		}
		return p.fail(ctx, metrics.OutcomeParseError, err)
	}

	assessed := make([]model.AssessedRecord, len(res.Records))
	for i, rec := range res.Records {
		assessed[i] = model.AssessedRecord{Record: rec, RiskAssessment: p.assessor.Assess(rec)}
	}

	p.mu.Lock()
	if p.generation.Load() != gen {
		p.mu.Unlock()
		p.superseded.Add(1)
		p.logger.Warn(ctx, "load superseded", logger.Int("generation", int(gen)))
		_ = p.metrics.RecordUpload(metrics.OutcomeSuperseded)
		return types.UploadSummary{}, ErrSuperseded
	}
	p.records = assessed
	p.rowErrors = res.Errors
	p.headers = res.Headers
	p.datasetID = uuid.NewString()
	p.loadedAt = p.now()
	p.analytics.SetData(assessed)
	p.query.SetData(assessed)
	summary := p.summaryLocked()
	m := p.analytics.Metrics()
	if err := p.standings.Replace(ctx, p.analytics.TopPerformers(m.UniqueStudents)); err != nil {
		p.logger.Error(ctx, "standings rebuild failed", logger.Error(err))
	}
	loadedAt := p.loadedAt
	p.mu.Unlock()

	_ = p.metrics.RecordUpload(metrics.OutcomeAccepted)
	p.metrics.RecordRows(len(res.Records), len(res.Errors))
	p.metrics.RecordPipelineLatency(millis(time.Since(start)))
	p.publish(m, loadedAt)

	if len(res.Errors) > 0 {
		p.logger.Warn(ctx, "rows rejected", logger.Int("rejected", len(res.Errors)))
	}
	p.logger.Info(ctx, "load committed",
		logger.String("dataset", summary.DatasetID),
		logger.Int("accepted", summary.Accepted),
		logger.Int("rejected", summary.Rejected),
		logger.Duration("took", time.Since(start)),
	)
	return summary, nil
}

func (p *Pipeline) fail(ctx context.Context, outcome metrics.Outcome, err error) (types.UploadSummary, error) {
	p.failed.Add(1)
	_ = p.metrics.RecordUpload(outcome)
	p.metrics.RecordErrorByComponent("pipeline", string(outcome))
	p.logger.Warn(ctx, "load failed", logger.String("outcome", string(outcome)), logger.Error(err))
	return types.UploadSummary{}, err
}

func (p *Pipeline) publish(m model.Metrics, loadedAt time.Time) {
	levels := make(map[string]int, len(m.RiskDistribution))
	for level, n := range m.RiskDistribution {
		levels[string(level)] = n
	}
	p.metrics.UpdateDataset(metrics.Dataset{
		Records:        m.TotalStudents,
		UniqueStudents: m.UniqueStudents,
		AtRisk:         m.AtRiskCount,
		PassRate:       m.PassRate,
		AverageScore:   m.AverageScore,
		RiskLevels:     levels,
		LoadedAt:       loadedAt,
	})
	p.metrics.UpdateFilteredRecords(len(p.query.Filtered()))
}

func (p *Pipeline) summaryLocked() types.UploadSummary {
	issues := make([]types.RowIssue, len(p.rowErrors))
	for i, re := range p.rowErrors {
		issues[i] = types.RowIssue{Line: re.Line, Message: re.Msg}
	}
	return types.UploadSummary{
		DatasetID: p.datasetID,
		Accepted:  len(p.records),
		Rejected:  len(p.rowErrors),
		Headers:   append([]string{}, p.headers...),
		Errors:    issues,
	}
}

// Summary describes the committed dataset.
func (p *Pipeline) Summary() types.UploadSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.summaryLocked()
}

// Clear drops the dataset and resets the query state. Loads still in
// flight are superseded.
func (p *Pipeline) Clear(ctx context.Context) {
	p.generation.Add(1)

	p.mu.Lock()
	p.records = []model.AssessedRecord{}
	p.rowErrors = nil
	p.headers = nil
	p.datasetID = ""
	p.loadedAt = time.Time{}
	p.analytics.SetData(nil)
	p.query.SetData(nil)
	p.query.ClearFilters()
	_ = p.standings.Replace(ctx, nil)
	m := p.analytics.Metrics()
	p.mu.Unlock()

	p.publish(m, time.Time{})
	p.logger.Info(ctx, "dataset cleared")
}

// DatasetID identifies the committed dataset; empty when nothing is loaded.
func (p *Pipeline) DatasetID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.datasetID
}

// Records returns the committed records in upload order.
func (p *Pipeline) Records() []model.AssessedRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]model.AssessedRecord{}, p.records...)
}

// RowErrors returns the rows rejected by the last committed load.
func (p *Pipeline) RowErrors() []parser.RowError {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]parser.RowError{}, p.rowErrors...)
}

// Metrics returns the analytics snapshot of the committed dataset.
func (p *Pipeline) Metrics() model.Metrics { return p.analytics.Metrics() }

// Insights returns the ordered advisory messages.
func (p *Pipeline) Insights() []model.Insight { return p.analytics.Insights() }

// TopPerformers returns the n best students by mean score.
func (p *Pipeline) TopPerformers(n int) []model.Performer { return p.analytics.TopPerformers(n) }

// BottomPerformers returns the n weakest students by mean score.
func (p *Pipeline) BottomPerformers(n int) []model.Performer { return p.analytics.BottomPerformers(n) }

// StudentTrend returns the first-to-last movement of one student.
func (p *Pipeline) StudentTrend(studentID string) model.Trend {
	return p.analytics.StudentTrend(studentID)
}

// StudentRank returns a student's place in the class standings by mean
// score. It returns ErrNoData when nothing is loaded and
// repository.ErrNotFound for an unknown student.
func (p *Pipeline) StudentRank(ctx context.Context, studentID string) (repository.Entry, error) {
	if p.DatasetID() == "" {
		return repository.Entry{}, ErrNoData
	}
	return p.standings.Rank(ctx, studentID)
}

// Standings returns the top n of the class standings.
func (p *Pipeline) Standings(ctx context.Context, n int) ([]repository.Entry, error) {
	return p.standings.TopN(ctx, n)
}

// Forecast projects the per-semester mean score.
func (p *Pipeline) Forecast(periods int) analytics.Forecast { return p.analytics.Forecast(periods) }

// AtRisk returns high and medium risk records, riskiest first.
func (p *Pipeline) AtRisk() []model.AssessedRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return risk.Ranked(p.records)
}

// Filtered returns the current filtered and sorted view.
func (p *Pipeline) Filtered() []model.AssessedRecord { return p.query.Filtered() }

// QueryState returns the active filters and sort.
func (p *Pipeline) QueryState() query.State { return p.query.State() }

// SetSearch sets the free-text filter.
func (p *Pipeline) SetSearch(s string) { p.timedQuery(func() { p.query.SetSearch(s) }) }

// SetSubject sets the subject filter.
func (p *Pipeline) SetSubject(s string) { p.timedQuery(func() { p.query.SetSubject(s) }) }

// SetSemester sets the semester filter.
func (p *Pipeline) SetSemester(s string) { p.timedQuery(func() { p.query.SetSemester(s) }) }

// SetRiskLevel sets the risk level filter.
func (p *Pipeline) SetRiskLevel(s string) { p.timedQuery(func() { p.query.SetRiskLevel(s) }) }

// SetSort sets the sort key and direction.
func (p *Pipeline) SetSort(key string, dir query.Direction) {
	p.timedQuery(func() { p.query.SetSort(key, dir) })
}

// ClearFilters restores the default query state.
func (p *Pipeline) ClearFilters() { p.timedQuery(p.query.ClearFilters) }

// ApplyQuery replaces the whole query state and returns the new view.
func (p *Pipeline) ApplyQuery(st query.State) []model.AssessedRecord {
	p.timedQuery(func() { p.query.Apply(st) })
	return p.query.Filtered()
}

// Subjects lists the distinct subjects of the dataset.
func (p *Pipeline) Subjects() []string { return p.query.Subjects() }

// Semesters lists the distinct semesters of the dataset in numeric order.
func (p *Pipeline) Semesters() []string { return p.query.Semesters() }

func (p *Pipeline) timedQuery(fn func()) {
	start := time.Now()
	fn()
	p.metrics.RecordQueryLatency(millis(time.Since(start)))
	p.metrics.UpdateFilteredRecords(len(p.query.Filtered()))
}

// Export writes the dataset, or only the filtered view, as CSV.
func (p *Pipeline) Export(w io.Writer, filteredOnly bool) error {
	var src []model.AssessedRecord
	if filteredOnly {
		src = p.query.Filtered()
	} else {
		src = p.Records()
	}
	out := make([]model.Record, len(src))
	for i, r := range src {
		out[i] = r.Record
	}
	return parser.Serialize(w, out)
}

// GetStats returns pipeline statistics for monitoring.
func (p *Pipeline) GetStats() types.Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := types.Stats{
		DatasetID:       p.datasetID,
		Records:         len(p.records),
		RowErrors:       len(p.rowErrors),
		Filtered:        len(p.query.Filtered()),
		RankedStudents:  p.standings.Count(context.Background()),
		Loads:           p.loads.Load(),
		FailedLoads:     p.failed.Load(),
		SupersededLoads: p.superseded.Load(),
		MaxUploadBytes:  p.maxUploadBytes,
		MaxRows:         p.maxRows,
	}
	if !p.loadedAt.IsZero() {
		stats.LoadedAt = p.loadedAt.UTC().Format(time.RFC3339)
	}
	return stats
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
