package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/formicag/ACEReportHub/internal/audit"
	"github.com/formicag/ACEReportHub/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the PostgreSQL Record Store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// snapshotCols is the column list shared by every snapshot query.
const snapshotCols = `id, created_at, report_week, source_filename, export_date,
	total_all, total_open, total_reportable, total_excluded, stale_count,
	avg_days_since_update, total_revenue, well_architected_count, rapid_pilot_count,
	consecutive_weeks_no_stale, new_count, closed_count, changed_count, recipients, notes`

var opportunityCols = []string{
	"snapshot_id", "position", "opportunity_id", "customer_name", "estimated_revenue",
	"owner", "status", "stage", "last_updated", "date_created", "target_close_date",
	"project_title", "problem_description", "next_step", "account_id", "programs", "excluded",
}

func scanSnapshot(scan func(dest ...any) error) (models.Snapshot, error) {
	var s models.Snapshot
	var week string
	err := scan(
		&s.ID, &s.CreatedAt, &week, &s.SourceFilename, &s.ExportDate,
		&s.Stats.TotalAll, &s.Stats.TotalOpen, &s.Stats.Reportable, &s.Stats.Excluded, &s.Stats.StaleCount,
		&s.Stats.AvgDaysSince, &s.Stats.TotalRevenue, &s.Stats.WellArchitected, &s.Stats.RapidPilot,
		&s.ConsecutiveWeeksNoStale, &s.NewCount, &s.ClosedCount, &s.ChangedCount, &s.Recipients, &s.Notes,
	)
	s.ReportWeek = models.ReportWeek(week)
	if len(s.Recipients) == 0 {
		s.Recipients = nil
	}
	return s, err
}

func scanOpportunity(scan func(dest ...any) error) (models.Opportunity, error) {
	var o models.Opportunity
	err := scan(
		&o.ID, &o.CustomerName, &o.EstimatedRevenue, &o.Owner, &o.Status, &o.Stage,
		&o.LastUpdated, &o.DateCreated, &o.TargetCloseDate,
		&o.ProjectTitle, &o.ProblemDescription, &o.NextStep, &o.AccountID, &o.Programs, &o.Excluded,
	)
	if len(o.Programs) == 0 {
		o.Programs = nil
	}
	return o, err
}

// opportunityRows turns records into CopyFrom rows, preserving upload order.
func opportunityRows(snapshotID int64, records []models.Opportunity) [][]any {
	rows := make([][]any, 0, len(records))
	for i, o := range records {
		rows = append(rows, []any{
			snapshotID, i, o.ID, o.CustomerName, o.EstimatedRevenue,
			o.Owner, o.Status, o.Stage, o.LastUpdated, o.DateCreated, o.TargetCloseDate,
			o.ProjectTitle, o.ProblemDescription, o.NextStep, o.AccountID, nonNil(o.Programs), o.Excluded,
		})
	}
	return rows
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (s *Store) List(ctx context.Context) ([]models.Snapshot, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM weekly_snapshots ORDER BY id`, snapshotCols))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.Snapshot
	for rows.Next() {
		sn, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id int64) (*models.Snapshot, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM weekly_snapshots WHERE id = $1`, snapshotCols), id)
	return s.loadOne(ctx, row, fmt.Sprintf("snapshot #%d", id))
}

func (s *Store) FindByReportWeek(ctx context.Context, week models.ReportWeek) (*models.Snapshot, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM weekly_snapshots
		WHERE report_week = $1
		ORDER BY id
		LIMIT 1
	`, snapshotCols), string(week))
	return s.loadOne(ctx, row, "report week "+string(week))
}

func (s *Store) loadOne(ctx context.Context, row pgx.Row, what string) (*models.Snapshot, error) {
	sn, err := scanSnapshot(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", what, err)
	}
	if sn.Opportunities, err = s.opportunities(ctx, sn.ID); err != nil {
		return nil, err
	}
	return &sn, nil
}

func (s *Store) opportunities(ctx context.Context, snapshotID int64) ([]models.Opportunity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT opportunity_id, customer_name, estimated_revenue, owner, status, stage,
			last_updated, date_created, target_close_date,
			project_title, problem_description, next_step, account_id, programs, excluded
		FROM snapshot_opportunities
		WHERE snapshot_id = $1
		ORDER BY position
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load opportunities of #%d: %w", snapshotID, err)
	}
	defer rows.Close()

	var out []models.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Insert stores sn and its records in one transaction. A transaction-scoped
// advisory lock keyed by the report week serialises concurrent inserts for
// the same week, so the existence check and the insert cannot interleave.
func (s *Store) Insert(ctx context.Context, sn *models.Snapshot) (id int64, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin insert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	week := string(sn.ReportWeek)
	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, week); err != nil {
		return 0, fmt.Errorf("failed to lock report week %s: %w", week, err)
	}

	var existing models.Snapshot
	err = tx.QueryRow(ctx, `
		SELECT id, created_at FROM weekly_snapshots WHERE report_week = $1 ORDER BY id LIMIT 1
	`, week).Scan(&existing.ID, &existing.CreatedAt)
	switch {
	case err == nil:
		return 0, &models.DuplicateReportError{ReportWeek: sn.ReportWeek, ExistingID: existing.ID, ExistingCreatedAt: existing.CreatedAt}
	case !errors.Is(err, pgx.ErrNoRows):
		return 0, fmt.Errorf("failed to check report week %s: %w", week, err)
	}

	st := sn.Stats
	err = tx.QueryRow(ctx, `
		INSERT INTO weekly_snapshots (
			created_at, report_week, source_filename, export_date,
			total_all, total_open, total_reportable, total_excluded, stale_count,
			avg_days_since_update, total_revenue, well_architected_count, rapid_pilot_count,
			consecutive_weeks_no_stale, new_count, closed_count, changed_count, recipients, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`,
		sn.CreatedAt, week, sn.SourceFilename, sn.ExportDate,
		st.TotalAll, st.TotalOpen, st.Reportable, st.Excluded, st.StaleCount,
		st.AvgDaysSince, st.TotalRevenue, st.WellArchitected, st.RapidPilot,
		sn.ConsecutiveWeeksNoStale, sn.NewCount, sn.ClosedCount, sn.ChangedCount, nonNil(sn.Recipients), sn.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	if len(sn.Opportunities) > 0 {
		if _, err = tx.CopyFrom(ctx, pgx.Identifier{"snapshot_opportunities"}, opportunityCols,
			pgx.CopyFromRows(opportunityRows(id, sn.Opportunities))); err != nil {
			return 0, fmt.Errorf("failed to copy opportunities: %w", err)
		}
	}

	return id, nil
}

// Delete removes a snapshot; its opportunities go with it through ON DELETE CASCADE.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM weekly_snapshots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot #%d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("snapshot #%d: %w", id, models.ErrNotFound)
	}
	return nil
}

// Export reads every snapshot with its records inside one repeatable-read transaction.
func (s *Store) Export(ctx context.Context) (archive *models.Archive, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin export: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, fmt.Sprintf(`SELECT %s FROM weekly_snapshots ORDER BY id`, snapshotCols))
	if err != nil {
		return nil, fmt.Errorf("failed to export snapshots: %w", err)
	}
	archive = &models.Archive{}
	index := map[int64]int{}
	for rows.Next() {
		sn, err := scanSnapshot(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		index[sn.ID] = len(archive.Snapshots)
		archive.Snapshots = append(archive.Snapshots, sn)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orows, err := tx.Query(ctx, `
		SELECT snapshot_id, opportunity_id, customer_name, estimated_revenue, owner, status, stage,
			last_updated, date_created, target_close_date,
			project_title, problem_description, next_step, account_id, programs, excluded
		FROM snapshot_opportunities
		ORDER BY snapshot_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to export opportunities: %w", err)
	}
	defer orows.Close()
	for orows.Next() {
		var snapshotID int64
		o, err := scanOpportunity(func(dest ...any) error {
			return orows.Scan(append([]any{&snapshotID}, dest...)...)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity: %w", err)
		}
		if i, ok := index[snapshotID]; ok {
			archive.Snapshots[i].Opportunities = append(archive.Snapshots[i].Opportunities, o)
		}
	}
	return archive, orows.Err()
}

// AuditLog writes audit events to the audit_log table.
type AuditLog struct {
	pool *pgxpool.Pool
}

func NewAuditLog(pool *pgxpool.Pool) *AuditLog {
	return &AuditLog{pool: pool}
}

func (a *AuditLog) Record(ctx context.Context, e audit.Event) error {
	var snapshotID *int64
	if e.SnapshotID != 0 {
		snapshotID = &e.SnapshotID
	}
	var week *string
	if e.ReportWeek != "" {
		week = &e.ReportWeek
	}
	_, err := a.pool.Exec(ctx, `
		INSERT INTO audit_log (id, at, action, snapshot_id, report_week, records, success, message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.At, string(e.Action), snapshotID, week, e.Records, e.Success, e.Message, e.Metadata)
	if err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	return nil
}

// Recent returns the latest audit events, newest first.
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.pool.Query(ctx, `
		SELECT id::text, at, action, COALESCE(snapshot_id, 0), COALESCE(report_week, ''), records, success, message, metadata
		FROM audit_log
		ORDER BY at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var e audit.Event
		var action string
		if err := rows.Scan(&e.ID, &e.At, &action, &e.SnapshotID, &e.ReportWeek, &e.Records, &e.Success, &e.Message, &e.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.Action = audit.Action(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
