package service

import (
	"time"

	"github.com/okian/gradelens/internal/adapters/repository"
	"github.com/okian/gradelens/internal/domain/analytics"
	"github.com/okian/gradelens/internal/domain/risk"
	"github.com/okian/gradelens/pkg/logger"
	"github.com/okian/gradelens/pkg/metrics"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMaxUploadBytes caps how many bytes Load reads from one upload.
func WithMaxUploadBytes(n int64) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxUploadBytes = n
		}
	}
}

// WithMaxRows caps the number of data rows per upload. Zero means unlimited.
func WithMaxRows(n int) Option {
	return func(p *Pipeline) {
		if n >= 0 {
			p.maxRows = n
		}
	}
}

// WithPerformerCount sets how many performers the metrics snapshot carries.
func WithPerformerCount(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.performerCount = n
		}
	}
}

// WithRiskAssessor replaces the risk engine.
func WithRiskAssessor(a risk.Assessor) Option {
	return func(p *Pipeline) {
		if a != nil {
			p.assessor = a
		}
	}
}

// WithInsightRules replaces the analytics insight rules.
func WithInsightRules(rules []analytics.InsightRule) Option {
	return func(p *Pipeline) {
		if len(rules) > 0 {
			p.insightRules = rules
		}
	}
}

// WithClock sets the time source used for row ids and load timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithMetrics sets the metrics manager. The global manager is used otherwise.
func WithMetrics(m *metrics.Manager) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithStandings replaces the class standings store.
func WithStandings(s repository.Store) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.standings = s
		}
	}
}
