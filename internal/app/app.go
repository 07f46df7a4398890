// Package app assembles the snapshot service from configuration. The server,
// the CLI and verify_db share it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/formicag/ACEReportHub/internal/ai"
	"github.com/formicag/ACEReportHub/internal/audit"
	"github.com/formicag/ACEReportHub/internal/auth"
	"github.com/formicag/ACEReportHub/internal/backup"
	"github.com/formicag/ACEReportHub/internal/compare"
	"github.com/formicag/ACEReportHub/internal/config"
	"github.com/formicag/ACEReportHub/internal/db"
	"github.com/formicag/ACEReportHub/internal/db/lite"
	"github.com/formicag/ACEReportHub/internal/ingest"
	"github.com/formicag/ACEReportHub/internal/metrics"
	"github.com/formicag/ACEReportHub/internal/snapshots"
)

// RecentAuditFunc returns the latest audit events, newest first.
type RecentAuditFunc func(ctx context.Context, limit int) ([]audit.Event, error)

type App struct {
	Config     *config.Config
	Service    *snapshots.Service
	Store      snapshots.Store
	Metrics    *metrics.Collector
	Summarizer *ai.Summarizer
	// RecentAudit is nil when the store does not persist audit events.
	RecentAudit RecentAuditFunc

	closers []func()
}

// New opens the configured store and wires every collaborator of the service.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{Config: cfg, Metrics: metrics.New()}

	var storeAudit audit.Recorder
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if err := db.ApplyMigrations(ctx, pool); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		auditLog := db.NewAuditLog(pool)
		a.Store, storeAudit, a.RecentAudit = db.NewStore(pool), auditLog, auditLog.Recent
	case config.DriverSQLite:
		st, err := lite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = st.Close() })
		a.Store, storeAudit, a.RecentAudit = st, st, st.RecentAudit
	case config.DriverMemory:
		a.Store = snapshots.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	sinks, err := backupSinks(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	secret, err := auth.ResolveSecret("CONFIRM_SECRET", cfg.Auth.ConfirmSecret)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.AI.OllamaHost != "" {
		a.Summarizer = ai.NewSummarizer(ai.NewOllamaClient(cfg.AI.OllamaHost, cfg.AI.Model))
		a.Summarizer.Logger = log
	}

	engine := compare.NewEngine(compare.NewCalculator(cfg.Report.StaleThresholdDays, cfg.Report.Open), nil)
	a.Service = snapshots.NewService(a.Store, engine, snapshots.Options{
		Validator: ingest.NewValidator(cfg.Report.MaxOpen, cfg.Report.Open),
		Confirmer: auth.NewConfirmer(secret, cfg.Auth.ConfirmTTL),
		Backup:    sinks,
		Audit:     audit.Multi{storeAudit, audit.LogRecorder{Logger: log}},
		Observer:  a.Metrics,
		Logger:    log,
	})

	log.Info("service ready",
		"store", cfg.Store.Driver,
		"backup_sinks", len(sinks),
		"stale_threshold_days", cfg.Report.StaleThresholdDays,
		"summaries", a.Summarizer != nil)
	return a, nil
}

// Close releases the store.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func backupSinks(ctx context.Context, cfg *config.Config) (backup.All, error) {
	var sinks backup.All
	if cfg.Backup.Dir != "" {
		fs, err := backup.NewFileSink(cfg.Backup.Dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fs)
	}
	if cfg.MinioEnabled() {
		ms, err := backup.NewMinioSink(ctx, cfg.Backup.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio backup sink: %w", err)
		}
		sinks = append(sinks, ms)
	}
	return sinks, nil
}
