package commands

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/gradelens/internal/adapters/http/api"
	"github.com/okian/gradelens/internal/adapters/http/swagger"
	service "github.com/okian/gradelens/internal/app"
	"github.com/okian/gradelens/internal/config"
	"github.com/okian/gradelens/pkg/logger"
	"github.com/okian/gradelens/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func newServeCmd(env *runtimeEnv) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				env.cfg.Addr = addr
			}
			return serve(cmd.Context(), env.cfg, env.log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config addr)")
	return cmd
}

// newPipeline builds the pipeline from configuration.
func newPipeline(cfg *config.Config, log logger.Logger) *service.Pipeline {
	return service.New(
		service.WithLogger(log.Named("pipeline")),
		service.WithMaxUploadBytes(cfg.MaxUploadBytes),
		service.WithMaxRows(cfg.MaxRows),
		service.WithPerformerCount(cfg.DefaultTopN),
	)
}

// buildMux registers docs and business routes for p.
func buildMux(ctx context.Context, cfg *config.Config, p *service.Pipeline) *http.ServeMux {
	mux := http.NewServeMux()

	swagger.Register(ctx, mux)

	api.NewServer(p, p,
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
		api.WithTopN(cfg.DefaultTopN, cfg.MaxTopN),
		api.WithForecastPeriods(cfg.ForecastPeriods),
	).Register(ctx, mux)
	return mux
}

func serve(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	p := newPipeline(cfg, log)

	go startSystemMetricsUpdater(ctx, metrics.Default().RefreshInterval())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           buildMux(ctx, cfg, p),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}

	log.Info(ctx, "server stopped")
	return nil
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
