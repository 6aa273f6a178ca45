// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and the environment.
// - Errors returned by Load wrap this package's sentinels.
package config

// Default values.
const (
	DefaultAddr            = ":9080"
	DefaultMaxUploadBytes  = 10 << 20
	DefaultTopN            = 10
	DefaultMaxTopN         = 100
	DefaultForecastPeriods = 3
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format" validate:"omitempty,oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// MaxUploadBytes caps the size of a single CSV upload.
	MaxUploadBytes int64 `koanf:"max_upload_bytes" validate:"gt=0"`

	// DefaultTopN is used by GET /performers when no limit is given.
	DefaultTopN int `koanf:"default_top_n" validate:"gt=0,ltefield=MaxTopN"`

	// MaxTopN caps GET /performers?limit.
	MaxTopN int `koanf:"max_top_n" validate:"gt=0"`

	// ForecastPeriods is the default projection horizon for GET /forecast.
	ForecastPeriods int `koanf:"forecast_periods" validate:"gte=1,lte=24"`

	// MaxRows caps the data rows parsed per upload; surplus rows are
	// reported as row errors. 0 means unlimited.
	MaxRows int `koanf:"max_rows" validate:"gte=0"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            DefaultAddr,
		MaxUploadBytes:  DefaultMaxUploadBytes,
		DefaultTopN:     DefaultTopN,
		MaxTopN:         DefaultMaxTopN,
		ForecastPeriods: DefaultForecastPeriods,
		MaxRows:         0,
	}
}
