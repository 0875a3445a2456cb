package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"incubator-alerts/internal/alerting"
	"incubator-alerts/internal/config"
	"incubator-alerts/internal/engine"
	"incubator-alerts/internal/ingest"
	"incubator-alerts/internal/ledger"
	"incubator-alerts/internal/logging"
	"incubator-alerts/internal/scheduler"
	"incubator-alerts/internal/service"
	"incubator-alerts/internal/storage"
	"incubator-alerts/internal/thresholds"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logging.Component(logger, "app")}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// pipeline bundles the wired monitoring components.
type pipeline struct {
	thresholds *thresholds.Service
	ledger     *ledger.Ledger
	monitor    *service.Monitor
}

func (a *App) newPipeline(thStore thresholds.Store, ledStore ledger.Store, readStore storage.ReadingStore) pipeline {
	timeout := a.Config.Database.Timeout

	thSvc := thresholds.NewService(thStore, timeout, a.Logger)
	eng := engine.New(thSvc, engine.Options{
		AltaMargin:   a.Config.Engine.AltaMargin,
		QualityFloor: a.Config.Engine.QualityFloor,
	}, a.Logger)
	led := ledger.New(ledStore, timeout, a.Logger)
	mon := service.New(eng, led, readStore, a.Config.Alerting.SubmitRetries, a.Config.Alerting.SubmitBackoff, a.Logger)

	return pipeline{thresholds: thSvc, ledger: led, monitor: mon}
}

// Run executes the long-running monitoring service: MQTT ingestion feeding
// the evaluation pipeline, with a periodic reading retention sweep.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	var thStore thresholds.Store
	var ledStore ledger.Store
	var readStore storage.ReadingStore
	if store != nil {
		thStore = store
		ledStore = store
		readStore = store
	} else {
		a.Logger.Warn().Msg("database.dsn not configured; using volatile in-memory store")
		mem := storage.NewMemory()
		thStore = mem
		ledStore = mem
		readStore = mem
	}

	pipe := a.newPipeline(thStore, ledStore, readStore)

	if a.Config.Alerting.Enabled {
		if notifier := a.newNotifier(); notifier != nil {
			disp := alerting.NewDispatcher(notifier, 256, a.Config.Alerting.SubmitRetries, time.Second, a.Logger)
			pipe.ledger.Subscribe(disp.Handle)
			go disp.Run(ctx)
		} else {
			a.Logger.Warn().Msg("alerting enabled but no channel configured; transitions will only be logged")
		}
	}

	consumer := ingest.NewConsumer(a.Config.Ingest, pipe.monitor, a.Logger)
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	defer consumer.Close()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Retention.SweepInterval,
		StartupDelay: time.Minute,
	}, a.Logger)

	a.Logger.Info().Msg("starting monitoring service")
	err = sched.Run(ctx, pipe.monitor.SweepReadings(a.Config.Retention.ReadingMaxAge))
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// AlertsOptions configure the alerts listing.
type AlertsOptions struct {
	IncubatorID string
	PatientID   string
	All         bool
	Limit       int
}

// StatsOptions select the reading window to aggregate.
type StatsOptions struct {
	IncubatorID string
	PatientID   string
	From        *time.Time
	To          *time.Time
}

// ExportOptions hold parameters for exporting a vital-sign trend.
type ExportOptions struct {
	Parameter   string
	IncubatorID string
	PatientID   string
	From        *time.Time
	To          *time.Time
	CSVPath     string
	PNGPath     string
	MaxPoints   int
}

// ReplayOptions configure re-evaluation of stored readings.
type ReplayOptions struct {
	IncubatorID string
	PatientID   string
	From        time.Time
	To          time.Time
}
