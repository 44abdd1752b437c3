package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"blogdigest/internal/app"
	"blogdigest/internal/config"
	"blogdigest/internal/domain"
	"blogdigest/internal/logging"
)

var dateFlag string

// Execute runs the CLI. Every stage is independently triggerable so one
// stage can be retried without re-running the others.
func Execute() error {
	root := &cobra.Command{
		Use:           "blogdigest",
		Short:         "Daily blog announcement pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dateFlag, "date", "", "target date (MM/DD/YYYY), defaults to yesterday")

	root.AddCommand(
		stageCommand("extract", "Scrape the directory and store the date's posts", runExtract),
		stageCommand("categorize", "Categorize the date's unprocessed posts", runCategorize),
		stageCommand("aggregate", "Snapshot the date's category set", runAggregate),
		stageCommand("notify", "Fan matching posts out to subscribers", runNotify),
		stageCommand("run", "Run the full pipeline for the date", runAll),
		serveCommand(),
	)

	return root.Execute()
}

type stageFunc func(ctx context.Context, application *app.Application, date string) error

func stageCommand(use, short string, fn stageFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), func(ctx context.Context, application *app.Application, date string) error {
				return fn(ctx, application, date)
			})
		},
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on the configured cron schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			log := logging.New(cfg.Logging.Level)

			application, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Serve(cmd.Context())
		},
	}
}

// withApplication resolves the target date once at the entry boundary
// and threads it through the invoked stage.
func withApplication(ctx context.Context, fn stageFunc) error {
	cfg := config.Load()
	log := logging.New(cfg.Logging.Level)

	date, err := domain.ResolveDate(dateFlag, time.Now().In(cfg.Scheduler.Location()))
	if err != nil {
		return err
	}

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer application.Close()

	log.Info("stage invocation", "date", date)
	return fn(ctx, application, date)
}

func runExtract(ctx context.Context, application *app.Application, date string) error {
	_, err := application.Pipeline().Extract(ctx, date)
	return err
}

func runCategorize(ctx context.Context, application *app.Application, date string) error {
	_, err := application.Pipeline().Categorize(ctx, date)
	return err
}

func runAggregate(ctx context.Context, application *app.Application, date string) error {
	_, err := application.Pipeline().Aggregate(ctx, date)
	return err
}

func runNotify(ctx context.Context, application *app.Application, date string) error {
	_, err := application.Pipeline().Notify(ctx, date)
	return err
}

func runAll(ctx context.Context, application *app.Application, date string) error {
	return application.Pipeline().Run(ctx, date)
}
