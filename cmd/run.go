package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"settler/application"
	"settler/config"
	"settler/database"
	"settler/events"
	"settler/infrastructure"
	"settler/infrastructure/observability"
	"settler/repository"
	"settler/server"
	"settler/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

// eventDrainTimeout bounds how long shutdown waits for event forwarding
const eventDrainTimeout = 10 * time.Second

// app holds the wired components shared by every entry point
type app struct {
	cfg        *config.Config
	db         *database.DB
	settlement service.SettlementService
	runner     *application.ScanRunner
	metrics    *observability.SettlementMetrics
	registry   *prometheus.Registry
	closers    []func()
}

// ConfigureLogging applies the configured level and formatter
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("logLevel", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// newApp connects to the database, the message bus and the scan lock and wires the services
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	eventBus := events.NewBus()

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = observability.NewSettlementMetrics(a.registry)
	a.metrics.Subscribe(eventBus)

	if err := a.connectEventPublisher(ctx, eventBus); err != nil {
		a.Close()
		return nil, err
	}
	// Registered after the publisher so forwarding finishes before NATS is drained
	a.closers = append(a.closers, func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), eventDrainTimeout)
		defer cancel()
		if err := eventBus.Close(drainCtx); err != nil {
			log.WithError(err).Warn("Event handlers still running at shutdown")
		}
	})

	lock, err := a.connectScanLock(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	payout := service.NewPayoutPolicy(cfg.PremiumDivisor)
	ledger := service.NewLedgerService(uowFactory)
	a.settlement = service.NewSettlementService(
		uowFactory,
		service.NewWagerResolver(uowFactory, ledger, payout),
		service.NewComboResolver(uowFactory, payout),
	)
	scanner := service.NewDueEventScanner(uowFactory, service.NewOutcomeSimulator(), a.settlement)
	a.runner = application.NewScanRunner(scanner, lock, a.metrics)

	log.WithField("premiumDivisor", payout.PremiumDivisor).Info("Settlement services initialized")
	return a, nil
}

func (a *app) connectEventPublisher(ctx context.Context, eventBus *events.Bus) error {
	if a.cfg.NATSServers == "" {
		log.Info("NATS_SERVERS not set, settlement events stay in process")
		infrastructure.ForwardEvents(eventBus, infrastructure.NewNoopEventPublisher())
		return nil
	}

	client := infrastructure.NewNATSClient(a.cfg.NATSServers)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("Failed to close NATS client")
		}
	})

	mapper := infrastructure.NewEventSubjectMapper()
	if err := client.EnsureStream(infrastructure.SettlementStream, mapper.GetAllSubjects()); err != nil {
		return err
	}
	infrastructure.ForwardEvents(eventBus, infrastructure.NewNATSEventPublisher(client, mapper))
	return nil
}

func (a *app) connectScanLock(ctx context.Context) (infrastructure.ScanLock, error) {
	if a.cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, using in-process scan lock")
		return infrastructure.NewLocalScanLock(), nil
	}

	client, err := infrastructure.ConnectRedis(ctx, a.cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("Failed to close redis client")
		}
	})

	log.WithField("addr", a.cfg.RedisAddr).Info("Using redis scan lock")
	return infrastructure.NewRedisScanLock(client, a.cfg.ScanLockTTL), nil
}

// Close releases connections in reverse order of creation
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Run serves the HTTP trigger and runs the periodic scan worker until ctx is cancelled
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting settler...")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	metricsServer := server.StartMetricsServer(cfg.MetricsPort, a.registry, a.db.Health)

	httpServer := server.NewServer(server.Options{
		Port:       cfg.HTTPPort,
		CronSecret: cfg.CronSecret,
		Scanner:    a.runner,
		Settlement: a.settlement,
		Observer:   a.metrics,
		Health:     a.db.Health,
	})
	if cfg.CronSecret == "" {
		log.Warn("CRON_SECRET not set, the HTTP trigger rejects every request")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	stopWorker := application.NewSettlementWorker(a.runner, cfg.ScanInterval).Start(ctx)

	select {
	case <-ctx.Done():
		log.Info("Shutting down settler...")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("HTTP trigger stopped")
		}
	}

	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP trigger shutdown error")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Metrics server shutdown error")
	}

	log.Info("Shutdown completed")
	return nil
}

// RunOnce performs a single scan and writes the report as JSON to out
func RunOnce(ctx context.Context, out io.Writer) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.runner.Run(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d events failed to settle", failed, len(report.Results))
	}
	return nil
}
