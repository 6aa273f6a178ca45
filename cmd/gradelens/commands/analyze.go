package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/gradelens/internal/adapters/mq/queue"
	"github.com/okian/gradelens/internal/adapters/mq/worker"
	"github.com/okian/gradelens/internal/domain/analytics"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/parser"
	"github.com/okian/gradelens/internal/domain/types"
	"github.com/okian/gradelens/pkg/logger"
)

// ErrBatchFailed is returned when at least one file of a batch failed.
var ErrBatchFailed = errors.New("one or more files failed")

// report is the JSON document printed by analyze.
type report struct {
	Summary  types.UploadSummary    `json:"summary"`
	Metrics  model.Metrics          `json:"metrics"`
	Forecast analytics.Forecast     `json:"forecast"`
	AtRisk   []model.AssessedRecord `json:"atRisk,omitempty"`
}

// batchResult is one entry of the array printed for several files.
type batchResult struct {
	File   string  `json:"file"`
	Report *report `json:"report,omitempty"`
	Error  string  `json:"error,omitempty"`
}

type analyzeOptions struct {
	periods    int
	withAtRisk bool
}

func newAnalyzeCmd(env *runtimeEnv) *cobra.Command {
	var (
		opts    analyzeOptions
		compact bool
		jobs    int
	)

	cmd := &cobra.Command{
		Use:   "analyze <file.csv|->...",
		Short: "Analyze one or more CSV files and print the report as JSON",
		Long: `Analyze parses each file, assesses risk and prints the aggregate report.
With several files the reports are computed concurrently and printed as a
JSON array in argument order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if opts.periods <= 0 {
				opts.periods = env.cfg.ForecastPeriods
			}

			var (
				out any
				err error
			)
			if len(args) == 1 {
				var rep *report
				if rep, err = analyzePath(ctx, env, cmd.InOrStdin(), args[0], opts); err != nil {
					return err
				}
				out = rep
			} else {
				var results []batchResult
				if results, err = analyzeBatch(ctx, env, args, jobs, opts); results == nil {
					return err
				}
				out = results
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			if encErr := enc.Encode(out); encErr != nil {
				return encErr
			}
			return err
		},
	}
	cmd.Flags().IntVar(&opts.periods, "periods", 0, "forecast horizon (defaults to config forecast_periods)")
	cmd.Flags().BoolVar(&opts.withAtRisk, "at-risk", false, "include the ranked at-risk records")
	cmd.Flags().BoolVar(&compact, "compact", false, "print single-line JSON")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "files analyzed in parallel (0 = one per CPU)")
	return cmd
}

// analyzePath analyzes a single file; "-" reads stdin.
func analyzePath(ctx context.Context, env *runtimeEnv, stdin io.Reader, path string, opts analyzeOptions) (*report, error) {
	in := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		in = f
	}
	return analyzeReader(ctx, env, path, in, opts)
}

func analyzeReader(ctx context.Context, env *runtimeEnv, name string, in io.Reader, opts analyzeOptions) (*report, error) {
	p := newPipeline(env.cfg, env.log)
	summary, err := p.Load(ctx, in)
	if err != nil {
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			for _, re := range pe.RowErrors {
				env.log.Warn(ctx, "rejected row",
					logger.String("file", name),
					logger.Int("line", re.Line),
					logger.String("reason", re.Msg),
				)
			}
		}
		return nil, err
	}

	out := &report{
		Summary:  summary,
		Metrics:  p.Metrics(),
		Forecast: p.Forecast(opts.periods),
	}
	if opts.withAtRisk {
		out.AtRisk = p.AtRisk()
	}
	return out, nil
}

func analyzeBatch(ctx context.Context, env *runtimeEnv, paths []string, jobs int, opts analyzeOptions) ([]batchResult, error) {
	for _, p := range paths {
		if p == "-" {
			return nil, fmt.Errorf("stdin cannot be part of a batch: %w", os.ErrInvalid)
		}
	}

	// Each job owns results[job.Seq].
	results := make([]batchResult, len(paths))
	analyzeFile := worker.ProcessorFunc(func(ctx context.Context, job queue.Job) error {
		res := &results[job.Seq]
		res.File = job.Path
		rep, err := analyzePath(ctx, env, nil, job.Path, opts)
		if err != nil {
			res.Error = err.Error()
			return err
		}
		res.Report = rep
		return nil
	})

	q := queue.NewInMemoryQueue(queue.WithCapacity(len(paths)))
	pool := worker.NewPool(jobs, q, analyzeFile, worker.WithLogger(env.log.Named("batch")))

	for i, p := range paths {
		if !q.Enqueue(ctx, queue.Job{Seq: i, Path: p}) {
			_ = q.Close()
			return nil, fmt.Errorf("failed to queue %s: %w", p, ctx.Err())
		}
	}
	_ = q.Close()

	pool.Start(ctx)
	pool.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	for i := range results {
		if results[i].Error != "" {
			failed++
		}
	}
	env.log.Info(ctx, "batch analyzed",
		logger.Int("files", len(paths)),
		logger.Int("failed", failed),
	)
	if failed > 0 {
		return results, fmt.Errorf("%d of %d: %w", failed, len(paths), ErrBatchFailed)
	}
	return results, nil
}
