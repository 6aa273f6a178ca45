// Package commands holds the gradelens command tree.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/gradelens/internal/config"
	"github.com/okian/gradelens/pkg/logger"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// runtimeEnv is what PersistentPreRunE prepares for every subcommand.
type runtimeEnv struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log logger.Logger
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	env := &runtimeEnv{}

	root := &cobra.Command{
		Use:   "gradelens",
		Short: "gradelens analyzes student grade CSVs",
		Long: `gradelens ingests a per-student, per-subject CSV of marks and attendance,
classifies every record by academic risk and serves aggregate statistics and
a filtered, sorted view of the data over HTTP.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return env.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&env.configPath, "config", "c", "", "YAML config file (overrides "+config.EnvConfig+")")
	root.PersistentFlags().StringVar(&env.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(env),
		newAnalyzeCmd(env),
		newGenerateCmd(env),
	)
	return root
}

// Execute runs the command tree with process arguments.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (e *runtimeEnv) setup(cmd *cobra.Command) error {
	if e.configPath != "" {
		if err := os.Setenv(config.EnvConfig, e.configPath); err != nil {
			return fmt.Errorf("failed to set %s: %w", config.EnvConfig, err)
		}
	}

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if e.logLevel != "" {
		cfg.LogLevel = e.logLevel
	}

	// Logs go to stderr so that command output on stdout stays machine readable.
	if err := logger.InitWithOptions(logger.Options{
		Writer: cmd.ErrOrStderr(),
		Format: logger.Format(cfg.LogFormat),
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	e.cfg = cfg
	e.log = logger.Get()
	return nil
}
