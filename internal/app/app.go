package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	"blogdigest/internal/classify"
	"blogdigest/internal/config"
	"blogdigest/internal/extractor"
	"blogdigest/internal/infrastructure/alert"
	"blogdigest/internal/infrastructure/email"
	"blogdigest/internal/infrastructure/inference"
	"blogdigest/internal/infrastructure/objectstore"
	"blogdigest/internal/infrastructure/scheduler"
	"blogdigest/internal/infrastructure/storage"
	"blogdigest/internal/logging"
	"blogdigest/internal/usecase"
)

// Application wires configs to adapters, use cases and lifecycle.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sqlx.DB
	alerter  *alert.Publisher
	pipeline *usecase.Pipeline
}

// New builds a runnable application instance.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect storage: %w", err)
	}

	posts := storage.NewPostRepository(db)
	snapshots := storage.NewSnapshotRepository(db)
	subscribers := storage.NewSubscriberRepository(db)
	jobs := storage.NewJobRepository(db)

	session := extractor.NewDirectorySession(nil, cfg.Source.PageSize, cfg.Source.LoadWait, baseLogger.With("component", "session"))
	ext := extractor.New(session, cfg.Source.URL, cfg.Source.MaxLoads, baseLogger.With("component", "extractor"))

	objects := objectstore.NewClient(cfg.ObjectStore.Endpoint, cfg.ObjectStore.APIKey)
	runner := inference.NewClient(cfg.Batch.Endpoint, cfg.Batch.APIKey)
	batch := classify.NewBatchClassifier(posts, jobs, objects, runner, cfg.Batch, baseLogger.With("component", "batch"))

	alerter := alert.NewPublisher(cfg.Alerts)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Extractor:   ext,
		Rule:        classify.NewRuleClassifier(),
		Batch:       batch,
		Posts:       posts,
		Snapshots:   snapshots,
		Subscribers: subscribers,
		Mailer:      email.NewMailer(cfg.Email),
		Alerter:     alerter,
		Mode:        cfg.Classifier.Mode,
		Logger:      baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		db:       db,
		alerter:  alerter,
		pipeline: pipeline,
	}, nil
}

// Pipeline exposes the stage use cases to the command layer.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// Serve runs the full pipeline on the configured cron schedule until the
// process receives an interrupt.
func (a *Application) Serve(ctx context.Context) error {
	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location())
	runner := usecase.NewScheduler(driver, a.pipeline, a.cfg.Scheduler.Location(), a.logger.With("component", "scheduler"))

	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}

	return runner.Stop(context.Background())
}

// Close releases shared resources.
func (a *Application) Close() error {
	if err := a.alerter.Close(); err != nil {
		a.logger.Warn("close alerter", "error", err)
	}
	return a.db.Close()
}
