package main

import (
	"context"
	"database/sql"
	"log/slog"

	"dossier/internal/compliance/aggregate"
	"dossier/internal/compliance/maintenance"
	"dossier/internal/compliance/reminder"
	"dossier/internal/compliance/report"
	"dossier/internal/compliance/store/document"
	"dossier/internal/compliance/store/policy"
	"dossier/internal/compliance/store/reminderlog"
	"dossier/internal/compliance/store/requirement"
	"dossier/internal/compliance/throttle"
	"dossier/internal/notification/service"
	"dossier/internal/notification/store/directory"
	"dossier/internal/notification/store/notification"
	"dossier/internal/platform/config"
	"dossier/internal/platform/postgres"
	httptransport "dossier/internal/transport/http"
)

type requirementStore interface {
	reminder.RequirementStore
	maintenance.RequirementStore
	report.RequirementStore
	aggregate.RequirementStore
}

type logStore interface {
	reminder.LogStore
	throttle.HistoryStore
	maintenance.LogStore
	report.LogStore
}

// stores is the persistence backend: PostgreSQL when a DSN is configured,
// process memory otherwise.
type stores struct {
	requirements  requirementStore
	policies      reminder.PolicyStore
	documents     aggregate.DocumentStore
	logs          logStore
	notifications service.Store
	directory     service.Directory
	health        map[string]httptransport.HealthCheck
	close         func()
}

func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	if cfg.Database.DSN == "" {
		log.Warn("no database configured, using in-memory stores")
		return &stores{
			requirements:  requirement.NewInMemory(),
			policies:      policy.NewInMemory(),
			documents:     document.NewInMemory(),
			logs:          reminderlog.NewInMemory(),
			notifications: notification.NewInMemory(),
			directory:     directory.NewInMemory(),
			health:        map[string]httptransport.HealthCheck{},
			close:         func() {},
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(ctx, db, log); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return postgresStores(db), nil
}

func postgresStores(db *sql.DB) *stores {
	return &stores{
		requirements:  requirement.NewPostgres(db),
		policies:      policy.NewPostgres(db),
		documents:     document.NewPostgres(db),
		logs:          reminderlog.NewPostgres(db),
		notifications: notification.NewPostgres(db),
		directory:     directory.NewPostgres(db),
		health: map[string]httptransport.HealthCheck{
			"postgres": db.PingContext,
		},
		close: func() { _ = db.Close() },
	}
}
