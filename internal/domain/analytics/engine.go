// Package analytics derives aggregate statistics from an assessed record set.
//
// The Engine recomputes its Metrics snapshot wholesale on every SetData call;
// there is no incremental patching and readers never observe a partial state.
package analytics

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/risk"
	"github.com/okian/gradelens/pkg/logger"
)

// Defaults.
const (
	DefaultPerformerCount  = 10
	DefaultForecastPeriods = 3
	passMark               = 50
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPerformerCount sets how many top/bottom performers the snapshot carries.
func WithPerformerCount(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.performerCount = n
		}
	}
}

// WithInsightRules replaces the insight rule list.
func WithInsightRules(rules []InsightRule) Option {
	return func(e *Engine) {
		if len(rules) > 0 {
			e.insightRules = append([]InsightRule(nil), rules...)
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine owns the current record set and its Metrics snapshot.
type Engine struct {
	mu      sync.RWMutex
	records []model.AssessedRecord
	metrics model.Metrics

	performerCount int
	insightRules   []InsightRule
	logger         logger.Logger
}

// New creates an Engine holding an empty data set.
func New(opts ...Option) *Engine {
	e := &Engine{
		performerCount: DefaultPerformerCount,
		insightRules:   DefaultInsightRules,
		logger:         logger.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.metrics = e.compute(nil)
	return e
}

// SetData replaces the record set and recomputes every metric.
func (e *Engine) SetData(records []model.AssessedRecord) {
	owned := append([]model.AssessedRecord(nil), records...)
	m := e.compute(owned)

	e.mu.Lock()
	e.records = owned
	e.metrics = m
	e.mu.Unlock()

	e.logger.Debug(context.Background(), "analytics recomputed",
		logger.Int("records", m.TotalStudents),
		logger.Int("uniqueStudents", m.UniqueStudents),
		logger.Int("insights", len(m.Insights)),
	)
}

// Metrics returns a copy of the latest snapshot.
func (e *Engine) Metrics() model.Metrics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneMetrics(e.metrics)
}

// Insights returns the advisory messages of the latest snapshot.
func (e *Engine) Insights() []model.Insight {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]model.Insight{}, e.metrics.Insights...)
}

// TopPerformers returns the n students with the highest mean score.
// n <= 0 selects DefaultPerformerCount.
func (e *Engine) TopPerformers(n int) []model.Performer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return rankPerformers(e.records, n, true)
}

// BottomPerformers returns the n students with the lowest mean score.
func (e *Engine) BottomPerformers(n int) []model.Performer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return rankPerformers(e.records, n, false)
}

// StudentTrend compares the first and last records of a student ordered by
// numeric semester.
func (e *Engine) StudentTrend(studentID string) model.Trend {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return studentTrend(e.records, studentID)
}

// Forecast projects the per-semester mean score series forward.
func (e *Engine) Forecast(periods int) Forecast {
	e.mu.RLock()
	series := make([]float64, len(e.metrics.SemesterStats))
	labels := make([]string, len(e.metrics.SemesterStats))
	for i, s := range e.metrics.SemesterStats {
		series[i] = s.AverageScore
		labels[i] = s.Semester
	}
	e.mu.RUnlock()

	f := LinearForecast(series, periods)
	f.Semesters = labels
	return f
}

func (e *Engine) compute(records []model.AssessedRecord) model.Metrics {
	m := model.Metrics{
		SubjectStats:           []model.SubjectStats{},
		SemesterStats:          []model.SemesterStats{},
		ScoreDistribution:      newBands(scoreBands),
		AttendanceDistribution: newBands(attendanceBands),
		RiskDistribution:       make(map[model.RiskLevel]int, len(model.RiskLevels)),
		TopPerformers:          []model.Performer{},
		BottomPerformers:       []model.Performer{},
		Insights:               []model.Insight{},
	}
	for _, l := range model.RiskLevels {
		m.RiskDistribution[l] = 0
	}
	if len(records) == 0 {
		return m
	}

	var (
		sumScore, sumAttendance float64
		passed                  int
	)
	students := make(map[string]struct{})
	for _, r := range records {
		sumScore += r.Marks
		sumAttendance += r.Attendance
		if r.Marks >= passMark {
			passed++
		}
		students[r.StudentID] = struct{}{}
		addToBand(m.ScoreDistribution, r.Marks)
		addToBand(m.AttendanceDistribution, r.Attendance)
	}
	for level, bucket := range risk.Partition(records) {
		m.RiskDistribution[level] = len(bucket)
	}
	m.AtRiskCount = risk.AtRiskCount(records)

	total := float64(len(records))
	m.TotalStudents = len(records)
	m.UniqueStudents = len(students)
	m.AverageScore = sumScore / total
	m.AverageAttendance = sumAttendance / total
	m.PassRate = float64(passed) / total * 100
	m.FailRate = 100 - m.PassRate
	m.SubjectStats = subjectStats(records)
	m.SemesterStats = semesterStats(records)
	m.TopPerformers = rankPerformers(records, e.performerCount, true)
	m.BottomPerformers = rankPerformers(records, e.performerCount, false)
	m.Insights = evaluateInsights(e.insightRules, m)
	return m
}

type subjectAcc struct {
	count              int
	sumScore, sumAtt   float64
	minScore, maxScore float64
	passed             int
}

func subjectStats(records []model.AssessedRecord) []model.SubjectStats {
	acc := make(map[string]*subjectAcc)
	for _, r := range records {
		a, ok := acc[r.Subject]
		if !ok {
			a = &subjectAcc{minScore: r.Marks, maxScore: r.Marks}
			acc[r.Subject] = a
		}
		a.count++
		a.sumScore += r.Marks
		a.sumAtt += r.Attendance
		if r.Marks < a.minScore {
			a.minScore = r.Marks
		}
		if r.Marks > a.maxScore {
			a.maxScore = r.Marks
		}
		if r.Marks >= passMark {
			a.passed++
		}
	}

	out := make([]model.SubjectStats, 0, len(acc))
	for subject, a := range acc {
		n := float64(a.count)
		out = append(out, model.SubjectStats{
			Subject:           subject,
			Count:             a.count,
			AverageScore:      a.sumScore / n,
			AverageAttendance: a.sumAtt / n,
			MinScore:          a.minScore,
			MaxScore:          a.maxScore,
			PassRate:          float64(a.passed) / n * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out
}

type semesterAcc struct {
	order            int
	count            int
	sumScore, sumAtt float64
	students         map[string]struct{}
}

func semesterStats(records []model.AssessedRecord) []model.SemesterStats {
	acc := make(map[string]*semesterAcc)
	for _, r := range records {
		a, ok := acc[r.Semester]
		if !ok {
			a = &semesterAcc{order: len(acc), students: make(map[string]struct{})}
			acc[r.Semester] = a
		}
		a.count++
		a.sumScore += r.Marks
		a.sumAtt += r.Attendance
		a.students[r.StudentID] = struct{}{}
	}

	type entry struct {
		stats model.SemesterStats
		order int
	}
	entries := make([]entry, 0, len(acc))
	for sem, a := range acc {
		n := float64(a.count)
		entries = append(entries, entry{
			order: a.order,
			stats: model.SemesterStats{
				Semester:          sem,
				Count:             a.count,
				AverageScore:      a.sumScore / n,
				AverageAttendance: a.sumAtt / n,
				UniqueStudents:    len(a.students),
			},
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		oi, oj := model.SemesterOrdinal(entries[i].stats.Semester), model.SemesterOrdinal(entries[j].stats.Semester)
		if oi != oj {
			return oi < oj
		}
		return entries[i].order < entries[j].order
	})

	out := make([]model.SemesterStats, len(entries))
	for i, en := range entries {
		out[i] = en.stats
	}
	return out
}

func cloneMetrics(m model.Metrics) model.Metrics {
	c := m
	c.SubjectStats = append([]model.SubjectStats{}, m.SubjectStats...)
	c.SemesterStats = append([]model.SemesterStats{}, m.SemesterStats...)
	c.ScoreDistribution = append([]model.Band{}, m.ScoreDistribution...)
	c.AttendanceDistribution = append([]model.Band{}, m.AttendanceDistribution...)
	c.TopPerformers = append([]model.Performer{}, m.TopPerformers...)
	c.BottomPerformers = append([]model.Performer{}, m.BottomPerformers...)
	c.Insights = append([]model.Insight{}, m.Insights...)
	c.RiskDistribution = make(map[model.RiskLevel]int, len(m.RiskDistribution))
	for k, v := range m.RiskDistribution {
		c.RiskDistribution[k] = v
	}
	return c
}
