package commands

import (
	"github.com/spf13/cobra"

	"github.com/okian/gradelens/internal/sampledata"
	"github.com/okian/gradelens/pkg/logger"
)

func newGenerateCmd(env *runtimeEnv) *cobra.Command {
	var (
		cfg  sampledata.Config
		seed uint64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic grade CSV",
		Long: `Generate a synthetic dataset of students, subjects and semesters.
Without --output or --upload the CSV is written to stdout. With --upload the
dataset is posted to a running server and the returned summary is verified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var opts []sampledata.GeneratorOption
			if cmd.Flags().Changed("seed") {
				opts = append(opts, sampledata.WithSeed(seed))
			}
			gen := sampledata.NewGenerator(opts...)

			if cfg.OutputFile == "" && cfg.BaseURL == "" {
				records, err := gen.Generate(ctx, &cfg)
				if err != nil {
					return err
				}
				return sampledata.WriteCSV(cmd.OutOrStdout(), records)
			}

			stats, err := sampledata.Run(ctx, &cfg, gen)
			if err != nil {
				return err
			}
			env.log.Info(ctx, "generate finished",
				logger.Int("records", stats.RecordsGenerated),
				logger.String("dataset_id", stats.DatasetID),
			)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.Students, "students", sampledata.DefaultStudents, "number of students")
	f.StringSliceVar(&cfg.Subjects, "subjects", sampledata.DefaultSubjects, "subjects every student takes")
	f.IntVar(&cfg.Semesters, "semesters", sampledata.DefaultSemesters, "semesters per subject")
	f.Uint64Var(&seed, "seed", 0, "random seed for a reproducible dataset")
	f.StringVarP(&cfg.OutputFile, "output", "o", "", "write the CSV to this file")
	f.StringVar(&cfg.BaseURL, "upload", "", "base URL of a gradelens server to upload to")
	f.DurationVar(&cfg.Timeout, "timeout", sampledata.DefaultTimeout, "HTTP request timeout")
	f.BoolVar(&cfg.Verbose, "verbose", false, "log the verification details")
	return cmd
}
