package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	decisionengine "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine"
	postgresadapter "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/adapters/postgres"
	workerapp "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/application/workers"
	"github.com/HassanBaig007/Investor-app-sub002/internal/platform/config"
	"github.com/HassanBaig007/Investor-app-sub002/internal/platform/db"
	"github.com/HassanBaig007/Investor-app-sub002/internal/platform/httpserver"
	"github.com/HassanBaig007/Investor-app-sub002/internal/platform/messaging"
	"github.com/HassanBaig007/Investor-app-sub002/internal/platform/notify"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres        *db.Postgres
	outboxRelay     workerapp.OutboxRelay
	notifications   workerapp.DecisionNotificationConsumer
	pollInterval    time.Duration
	relayEnabled    bool
	notifierEnabled bool
	logger          *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(cfg.MigrationsDir); err != nil {
		_ = pg.Close()
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := decisionengine.NewModule(decisionengine.Dependencies{
		Decisions:       repo,
		Projects:        repo,
		Membership:      repo,
		Outbox:          repo,
		Clock:           postgresadapter.SystemClock{},
		IDGen:           postgresadapter.UUIDGenerator{},
		DecisionIDs:     postgresadapter.NanoDecisionIDGenerator{},
		ConflictRetries: cfg.VoteConflictRetries,
		Logger:          logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		notifications: workerapp.DecisionNotificationConsumer{
			Subscriber:    kafka,
			Dedup:         repo,
			Notifier:      notify.LogSender{Logger: logger},
			Clock:         postgresadapter.SystemClock{},
			ConsumerGroup: "decision-engine-notification-cg",
			DedupTTL:      7 * 24 * time.Hour,
			Logger:        logger,
		},
		pollInterval:    cfg.OutboxPollInterval,
		relayEnabled:    cfg.EnableOutboxRelay,
		notifierEnabled: cfg.EnableDecisionNotifier,
		logger:          logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.notifierEnabled {
		if err := w.notifications.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if w.relayEnabled {
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
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
