package repository

import "github.com/okian/gradelens/pkg/metrics"

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithMetrics sets the metrics manager the store reports to.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *TreapStore) {
		if m != nil {
			s.metrics = m
		}
	}
}
