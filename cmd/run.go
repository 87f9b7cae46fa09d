package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"coinledger/api"
	"coinledger/config"
	"coinledger/database"
	"coinledger/events"
	"coinledger/game"
	"coinledger/infrastructure"
	"coinledger/infrastructure/observability"
	"coinledger/repository"
	"coinledger/service"

	log "github.com/sirupsen/logrus"
)

// app is the wired application. close releases every resource it opened.
type app struct {
	cfg      *config.Config
	db       *database.DB
	metrics  *observability.MetricsProvider
	services api.Services
	closers  []func(ctx context.Context)
}

// ConfigureLogging sets the logrus formatter and level from cfg
func ConfigureLogging(cfg *config.Config) {
	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, func(context.Context) { db.Close() })

	eventBus := events.NewBus()

	a.metrics = observability.NewMetricsProvider(cfg)
	if err := a.metrics.Initialize(ctx); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	a.metrics.SubscribeToEvents(eventBus)
	a.closers = append(a.closers, func(ctx context.Context) {
		if err := a.metrics.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Failed to shut down metrics provider")
		}
	})

	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	periods := service.NewPeriods(cfg.DailyLimitResetHour)
	rng := game.SystemSource{}

	ingest := service.NewIngestService(uowFactory, cfg)
	a.services = api.Services{
		Ledger:    service.NewLedgerService(uowFactory),
		Quota:     service.NewQuotaService(uowFactory, cfg, periods),
		Wagering:  service.NewWageringService(uowFactory, cfg, periods, rng),
		Races:     service.NewRaceService(uowFactory, cfg, rng),
		Ingest:    ingest,
		Purchases: service.NewPurchaseService(uowFactory, cfg),
		Votes:     service.NewVoteService(uowFactory, cfg, periods),
		Status:    service.NewStatusService(uowFactory, cfg, periods),
	}

	source, err := a.openQueue(ctx)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	if source != nil {
		a.services.Poller = service.NewQueuePoller(ingest, source, a.metrics, cfg)
	}

	log.Info("Services initialized successfully")
	return a, nil
}

// openQueue connects the configured queue backend, nil when there is none
func (a *app) openQueue(ctx context.Context) (service.MessageSource, error) {
	switch a.cfg.QueueBackend {
	case "nats":
		src := infrastructure.NewNATSSource(a.cfg.NATSServers, a.cfg.NATSStream, a.cfg.NATSSubject)
		if err := src.Connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) {
			if err := src.Close(); err != nil {
				log.WithError(err).Warn("Failed to close NATS source")
			}
		})
		return src, nil
	case "redis":
		client, err := infrastructure.NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) {
			if err := client.Close(); err != nil {
				log.WithError(err).Warn("Failed to close Redis client")
			}
		})
		return infrastructure.NewRedisSource(client, a.cfg.RedisQueueKey), nil
	default:
		log.Info("No queue backend configured")
		return nil, nil
	}
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	a.closers = nil
}

// Run starts the HTTP API and, when configured, the queue poller, and blocks
// until ctx is cancelled
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting coinledger...")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	if a.services.Poller != nil && cfg.QueuePollInterval > 0 {
		go runPoller(ctx, a.services.Poller, cfg.QueuePollInterval, cfg.QueuePollTimeout)
	}

	server := api.NewServer(cfg.HTTPAddr, api.NewRouter(a.services))
	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("HTTP server failed")
		}
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown incomplete")
	}
	a.close(shutdownCtx)

	log.Info("Shutdown completed")
	return nil
}

func runPoller(ctx context.Context, poller service.QueuePoller, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.WithField("interval", interval).Info("Queue poller started")
	for {
		select {
		case <-ctx.Done():
			log.Info("Queue poller stopped")
			return
		case <-ticker.C:
			pollOnce(ctx, poller, timeout)
		}
	}
}

func pollOnce(ctx context.Context, poller service.QueuePoller, timeout time.Duration) {
	pollCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()

	result, err := poller.PollOnce(pollCtx)
	if err != nil {
		log.WithError(err).Error("Queue poll failed")
		return
	}
	if result.MessagesReceived > 0 {
		log.WithFields(log.Fields{
			"received":  result.MessagesReceived,
			"processed": result.MessagesProcessed,
		}).Info("Queue poll completed")
	}
}

// Poll runs a single queue poll cycle and reports the counts
func Poll(ctx context.Context) (*PollSummary, error) {
	cfg := config.Get()
	ConfigureLogging(cfg)

	if cfg.QueueBackend == "none" {
		return nil, fmt.Errorf("QUEUE_BACKEND is none, nothing to poll")
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer a.close(context.Background())

	result, err := a.services.Poller.PollOnce(ctx)
	if err != nil {
		return nil, err
	}
	return &PollSummary{Received: result.MessagesReceived, Processed: result.MessagesProcessed}, nil
}

// PollSummary is the outcome of a one-shot poll
type PollSummary struct {
	Received  int
	Processed int
}

// Archive moves ledger rows older than the given age into the archive table
func Archive(ctx context.Context, olderThan time.Duration) (int64, error) {
	cfg := config.Get()
	ConfigureLogging(cfg)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer a.close(context.Background())

	before := time.Now().UTC().Add(-olderThan)
	moved, err := a.services.Ledger.Archive(ctx, before)
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{
		"before": before.Format(time.RFC3339),
		"moved":  moved,
	}).Info("Ledger archive completed")
	return moved, nil
}
