package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	listingengine "bazaar/contexts/trading/listing-engine"
	"bazaar/contexts/trading/listing-engine/adapters/gormstore"
	"bazaar/contexts/trading/listing-engine/adapters/memory"
	workerapp "bazaar/contexts/trading/listing-engine/application/workers"
	"bazaar/internal/platform/config"
	"bazaar/internal/platform/db"
	"bazaar/internal/platform/httpserver"
	"bazaar/internal/platform/logging"
	"bazaar/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server       *httpserver.Server
	database     *db.DB
	bus          *messaging.Kafka
	stream       *httpserver.EventStream
	relay        workerapp.OutboxRelay
	streamTopic  string
	pollInterval time.Duration
	logger       *slog.Logger
}

type WorkerApp struct {
	database     *db.DB
	relay        workerapp.OutboxRelay
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Logging).With("service", cfg.ServiceName, "process", "api")

	bus, err := messaging.NewKafka(nil, logger)
	if err != nil {
		return nil, err
	}

	app := &APIApp{
		bus:          bus,
		streamTopic:  workerapp.DefaultTopic,
		pollInterval: time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second,
		logger:       logger,
	}

	var module listingengine.Module
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore(logger)
		assets := memory.NewAssetRegistry()
		payments := memory.NewLedger()
		module = listingengine.NewModule(listingengine.Dependencies{
			Listings:    store,
			Events:      store,
			Assets:      assets,
			Payments:    payments,
			Clock:       store,
			IDGenerator: store,
			Operator:    cfg.OperatorID,
			Logger:      logger,
		})
		module.Store = store
		module.Assets = assets
		module.Payments = payments

		app.relay = workerapp.OutboxRelay{
			Outbox:    store,
			Publisher: bus,
			Clock:     store,
			Topic:     workerapp.DefaultTopic,
			BatchSize: cfg.Worker.BatchSize,
			Logger:    logger,
		}
	case "sqlite", "postgres":
		database, err := db.Connect(cfg.Storage)
		if err != nil {
			return nil, err
		}
		app.database = database

		repo := gormstore.NewRepository(database.DB, logger)
		if err := repo.AutoMigrate(); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("migrate %s schema: %w", cfg.Storage.Driver, err)
		}

		// The asset registry and payment gateway are external systems.
		// The durable profile still boots against the seedable in-memory
		// ones until those integrations land.
		assets := memory.NewAssetRegistry()
		payments := memory.NewLedger()
		module = listingengine.NewModule(listingengine.Dependencies{
			Listings:    repo,
			Events:      repo,
			Assets:      assets,
			Payments:    payments,
			Clock:       gormstore.SystemClock{},
			IDGenerator: gormstore.UUIDGenerator{},
			Operator:    cfg.OperatorID,
			Logger:      logger,
		})
		module.Assets = assets
		module.Payments = payments

		app.relay = workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: bus,
			Clock:     gormstore.SystemClock{},
			Topic:     workerapp.DefaultTopic,
			BatchSize: cfg.Worker.BatchSize,
			Logger:    logger,
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	if cfg.EnableEventStream {
		app.stream = httpserver.NewEventStream(logger)
	}

	app.server = httpserver.New(module, app.stream, logger, normalizeAddr(cfg.HTTPPort))
	return app, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Logging).With("service", cfg.ServiceName, "process", "worker")

	if cfg.Storage.Driver == "memory" {
		return nil, fmt.Errorf("worker process requires a durable storage driver, got %q", cfg.Storage.Driver)
	}

	database, err := db.Connect(cfg.Storage)
	if err != nil {
		return nil, err
	}

	bus, err := messaging.NewKafka(nil, logger)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	repo := gormstore.NewRepository(database.DB, logger)
	return &WorkerApp{
		database: database,
		relay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: bus,
			Clock:     gormstore.SystemClock{},
			Topic:     workerapp.DefaultTopic,
			BatchSize: cfg.Worker.BatchSize,
			Logger:    logger,
		},
		pollInterval: time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	if a.stream != nil {
		if err := a.stream.Attach(ctx, a.bus, a.streamTopic); err != nil {
			return err
		}
	}

	go a.runRelay(ctx)

	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start()
}

func (a *APIApp) runRelay(ctx context.Context) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		if err := a.relay.RunOnce(ctx); err != nil {
			a.logger.Error("outbox relay pass failed",
				"event", "bootstrap_relay_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *APIApp) Close() error {
	if a.database != nil {
		return a.database.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.relay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.database != nil {
		return w.database.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
