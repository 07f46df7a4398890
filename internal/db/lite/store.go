// Package lite is a single-file Record Store on SQLite through gorm, for
// running the tool without a PostgreSQL server.
package lite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/formicag/ACEReportHub/internal/audit"
	"github.com/formicag/ACEReportHub/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store implements the snapshot store over gorm.
type Store struct {
	db *gorm.DB
	// mu serialises inserts; SQLite has one writer and the week check must not interleave.
	mu sync.Mutex
}

// Open opens (or creates) the database at dsn and migrates the schema.
// Use "file:name?mode=memory&cache=shared" for an in-memory database.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = "ace_report_hub.db"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&snapshotRow{}, &opportunityRow{}, &auditRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	slog.Info("sqlite store ready", "dsn", dsn)
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) List(ctx context.Context) ([]models.Snapshot, error) {
	var rows []snapshotRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	out := make([]models.Snapshot, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*models.Snapshot, error) {
	return s.loadOne(ctx, s.db.WithContext(ctx).Where("id = ?", id), fmt.Sprintf("snapshot #%d", id))
}

func (s *Store) FindByReportWeek(ctx context.Context, week models.ReportWeek) (*models.Snapshot, error) {
	return s.loadOne(ctx, s.db.WithContext(ctx).Where("report_week = ?", string(week)).Order("id"), "report week "+string(week))
}

func (s *Store) loadOne(ctx context.Context, q *gorm.DB, what string) (*models.Snapshot, error) {
	var row snapshotRow
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", what, err)
	}

	var opps []opportunityRow
	if err := s.db.WithContext(ctx).Where("snapshot_id = ?", row.ID).Order("position").Find(&opps).Error; err != nil {
		return nil, fmt.Errorf("failed to load opportunities of #%d: %w", row.ID, err)
	}
	sn := row.toModel()
	for _, o := range opps {
		sn.Opportunities = append(sn.Opportunities, o.toModel())
	}
	return &sn, nil
}

// Insert stores sn and its records in one transaction, refusing a report week already present.
func (s *Store) Insert(ctx context.Context, sn *models.Snapshot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := toSnapshotRow(sn)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing snapshotRow
		err := tx.Where("report_week = ?", row.ReportWeek).Order("id").First(&existing).Error
		switch {
		case err == nil:
			return &models.DuplicateReportError{ReportWeek: sn.ReportWeek, ExistingID: existing.ID, ExistingCreatedAt: existing.CreatedAt}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to check report week %s: %w", row.ReportWeek, err)
		}

		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
		if len(sn.Opportunities) > 0 {
			opps := toOpportunityRows(row.ID, sn.Opportunities)
			if err := tx.CreateInBatches(&opps, 200).Error; err != nil {
				return fmt.Errorf("failed to insert opportunities: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&snapshotRow{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete snapshot #%d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("snapshot #%d: %w", id, models.ErrNotFound)
		}
		if err := tx.Where("snapshot_id = ?", id).Delete(&opportunityRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete opportunities of #%d: %w", id, err)
		}
		return nil
	})
}

func (s *Store) Export(ctx context.Context) (*models.Archive, error) {
	archive := &models.Archive{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []snapshotRow
		if err := tx.Order("id").Find(&rows).Error; err != nil {
			return fmt.Errorf("failed to export snapshots: %w", err)
		}
		var opps []opportunityRow
		if err := tx.Order("snapshot_id, position").Find(&opps).Error; err != nil {
			return fmt.Errorf("failed to export opportunities: %w", err)
		}

		index := make(map[int64]int, len(rows))
		for i, r := range rows {
			index[r.ID] = i
			archive.Snapshots = append(archive.Snapshots, r.toModel())
		}
		for _, o := range opps {
			if i, ok := index[o.SnapshotID]; ok {
				archive.Snapshots[i].Opportunities = append(archive.Snapshots[i].Opportunities, o.toModel())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return archive, nil
}

// Record implements audit.Recorder.
func (s *Store) Record(ctx context.Context, e audit.Event) error {
	row := toAuditRow(e)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	return nil
}

// RecentAudit returns the latest audit events, newest first.
func (s *Store) RecentAudit(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []auditRow
	if err := s.db.WithContext(ctx).Order("at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	out := make([]audit.Event, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}
