package sampledata

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/gradelens/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run generates a dataset, optionally writes it to disk and optionally
// uploads it to a running server, verifying the server's summary.
func Run(ctx context.Context, cfg *Config, gen *Generator) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("sampledata")

	if gen == nil {
		gen = NewGenerator()
	}
	records, err := gen.Generate(ctx, cfg)
	if err != nil {
		return stats, err
	}
	stats.RecordsGenerated = len(records)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return stats, fmt.Errorf("failed to encode dataset: %w", err)
	}
	stats.BytesWritten = buf.Len()

	if cfg.OutputFile != "" {
		if err := writeFile(cfg.OutputFile, buf.Bytes()); err != nil {
			return stats, err
		}
		log.Info(ctx, "dataset written", logger.String("file", cfg.OutputFile), logger.Int("bytes", buf.Len()))
	}

	if cfg.BaseURL != "" {
		summary, err := NewClient(cfg.BaseURL, cfg.Timeout).Upload(ctx, buf.Bytes())
		if err != nil {
			return stats, err
		}
		stats.Accepted = summary.Accepted
		stats.Rejected = summary.Rejected
		stats.DatasetID = summary.DatasetID
		if err := Verify(summary, len(records)); err != nil {
			return stats, err
		}
		if cfg.Verbose {
			log.Info(ctx, "upload verified",
				logger.String("dataset_id", summary.DatasetID),
				logger.Int("accepted", summary.Accepted),
				logger.Any("headers", summary.Headers),
			)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "sample run completed",
		logger.Int("records", stats.RecordsGenerated),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, filePermission); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}
