package snapshots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/formicag/ACEReportHub/internal/audit"
	"github.com/formicag/ACEReportHub/internal/compare"
	"github.com/formicag/ACEReportHub/internal/logger"
	"github.com/formicag/ACEReportHub/internal/models"
)

// Options wires the optional collaborators of a Service.
type Options struct {
	Selector  Selector
	Validator Validator
	Confirmer Confirmer
	Backup    Backuper
	Audit     audit.Recorder
	Observer  Observer
	Logger    *slog.Logger
}

// Service orchestrates preview, save, history and delete over a Store.
type Service struct {
	store     Store
	engine    *compare.Engine
	selector  Selector
	validator Validator
	confirmer Confirmer
	backup    Backuper
	audit     audit.Recorder
	obs       Observer
	log       *slog.Logger
}

func NewService(store Store, engine *compare.Engine, opts Options) *Service {
	s := &Service{
		store:     store,
		engine:    engine,
		selector:  opts.Selector,
		validator: opts.Validator,
		confirmer: opts.Confirmer,
		backup:    opts.Backup,
		audit:     opts.Audit,
		obs:       opts.Observer,
		log:       opts.Logger,
	}
	if s.engine == nil {
		s.engine = compare.NewEngine(compare.NewCalculator(0, models.OpenPolicy{}), nil)
	}
	if s.selector == nil {
		s.selector = IDOrderSelector{Store: store}
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.obs == nil {
		s.obs = nopObserver{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Preview is the outcome of comparing an upload without storing it.
type Preview struct {
	Comparison *compare.Result   `json:"comparison"`
	Target     *models.Snapshot  `json:"target,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	ReportWeek models.ReportWeek `json:"report_week,omitempty"`
	// Duplicate is the stored snapshot for ReportWeek, if any. A save would be refused.
	Duplicate *models.Snapshot `json:"duplicate,omitempty"`
}

// SaveRequest is an upload to be stored as a new snapshot.
type SaveRequest struct {
	Records        []models.Opportunity
	ReportWeek     string
	SourceFilename string
	ExportDate     *time.Time
	Recipients     []string
	Notes          string
}

// SaveResult carries the stored snapshot and the comparison folded into it.
type SaveResult struct {
	Snapshot   *models.Snapshot `json:"snapshot"`
	Comparison *compare.Result  `json:"comparison"`
	Warnings   []string         `json:"warnings,omitempty"`
}

// Preview validates records and compares them against the comparison target.
// week is optional; when given, an existing snapshot for it is reported.
func (s *Service) Preview(ctx context.Context, records []models.Opportunity, week string) (*Preview, error) {
	p := &Preview{}
	if strings.TrimSpace(week) != "" {
		w, err := models.ParseReportWeek(week)
		if err != nil {
			return nil, err
		}
		p.ReportWeek = w
		if p.Duplicate, err = CheckDuplicate(ctx, s.store, w); err != nil {
			return nil, err
		}
	}

	res, target, warnings, err := s.evaluate(ctx, records)
	if err != nil {
		return nil, err
	}
	p.Comparison, p.Target, p.Warnings = res, target, warnings

	s.record(ctx, audit.Event{
		Action:     audit.ActionPreview,
		SnapshotID: res.TargetID,
		ReportWeek: string(p.ReportWeek),
		Records:    len(records),
		Success:    true,
		Metadata: map[string]any{
			"new":     len(res.New),
			"closed":  len(res.Closed),
			"changed": len(res.Changed),
			"stale":   res.StaleCount(),
		},
	})
	return p, nil
}

// Save stores an upload as a new snapshot. A report week that is already stored
// aborts with *models.DuplicateReportError and leaves the store untouched.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	log := logger.FromContext(ctx, s.log)

	week, err := models.ParseReportWeek(req.ReportWeek)
	if err != nil {
		return nil, err
	}
	if existing, err := CheckDuplicate(ctx, s.store, week); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, s.blockDuplicate(ctx, &models.DuplicateReportError{
			ReportWeek:        week,
			ExistingID:        existing.ID,
			ExistingCreatedAt: existing.CreatedAt,
		}, len(req.Records))
	}

	res, _, warnings, err := s.evaluate(ctx, req.Records)
	if err != nil {
		return nil, err
	}

	snap := &models.Snapshot{
		CreatedAt:               res.GeneratedAt.UTC(),
		ReportWeek:              week,
		SourceFilename:          req.SourceFilename,
		ExportDate:              req.ExportDate,
		Stats:                   res.Stats,
		ConsecutiveWeeksNoStale: res.ConsecutiveWeeksNoStale,
		NewCount:                len(res.New),
		ClosedCount:             len(res.Closed),
		ChangedCount:            len(res.Changed),
		Recipients:              cleanRecipients(req.Recipients),
		Notes:                   strings.TrimSpace(req.Notes),
		Opportunities:           req.Records,
	}

	id, err := s.store.Insert(ctx, snap)
	if err != nil {
		var dup *models.DuplicateReportError
		if errors.As(err, &dup) {
			return nil, s.blockDuplicate(ctx, dup, len(req.Records))
		}
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	snap.ID = id

	log.Info("snapshot saved",
		"snapshot_id", id,
		"report_week", week,
		"records", len(req.Records),
		"stale", snap.Stats.StaleCount,
		"consecutive_weeks_no_stale", snap.ConsecutiveWeeksNoStale)
	s.obs.Saved(snap)
	s.record(ctx, audit.Event{
		Action:     audit.ActionSave,
		SnapshotID: id,
		ReportWeek: string(week),
		Records:    len(req.Records),
		Success:    true,
		Metadata: map[string]any{
			"compared_to": res.TargetID,
			"recipients":  len(snap.Recipients),
		},
	})

	return &SaveResult{Snapshot: snap, Comparison: res, Warnings: warnings}, nil
}

// History lists stored snapshots in id order without their opportunities.
func (s *Service) History(ctx context.Context) ([]models.Snapshot, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Snapshot, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Baseline(ctx context.Context) (*models.Snapshot, error) {
	return s.selector.Baseline(ctx)
}

// Latest returns the current comparison target, or models.ErrNotFound when nothing is stored.
func (s *Service) Latest(ctx context.Context) (*models.Snapshot, error) {
	snap, err := s.selector.ComparisonTarget(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("no snapshots stored: %w", models.ErrNotFound)
	}
	return snap, nil
}

// FindByWeek is the Duplicate Guard lookup exposed to callers; nil means the week is free.
func (s *Service) FindByWeek(ctx context.Context, week string) (*models.Snapshot, error) {
	w, err := models.ParseReportWeek(week)
	if err != nil {
		return nil, err
	}
	return CheckDuplicate(ctx, s.store, w)
}

func (s *Service) evaluate(ctx context.Context, records []models.Opportunity) (*compare.Result, *models.Snapshot, []string, error) {
	if len(records) == 0 {
		return nil, nil, nil, &models.InvalidInputError{Reason: "upload contains no records"}
	}

	var warnings []string
	if s.validator != nil {
		w, err := s.validator.Validate(records, s.engine.Clock.Now())
		if err != nil {
			return nil, nil, nil, err
		}
		warnings = w
	}

	target, err := s.selector.ComparisonTarget(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolve comparison target: %w", err)
	}

	res, err := s.engine.Compare(records, compare.FromSnapshot(target))
	if err != nil {
		return nil, nil, nil, err
	}
	s.obs.Compared(res)
	return res, target, warnings, nil
}

func (s *Service) blockDuplicate(ctx context.Context, dup *models.DuplicateReportError, records int) error {
	logger.FromContext(ctx, s.log).Warn("duplicate report week blocked",
		"report_week", dup.ReportWeek, "existing_id", dup.ExistingID)
	s.obs.Blocked("duplicate")
	s.record(ctx, audit.Event{
		Action:     audit.ActionDuplicateBlocked,
		SnapshotID: dup.ExistingID,
		ReportWeek: string(dup.ReportWeek),
		Records:    records,
		Message:    dup.Error(),
	})
	return dup
}

// record writes an audit event. Audit failures are logged, never returned.
func (s *Service) record(ctx context.Context, e audit.Event) {
	e = e.Stamp(s.engine.Clock.Now())
	if err := s.audit.Record(ctx, e); err != nil {
		logger.FromContext(ctx, s.log).Error("audit write failed", "action", e.Action, "error", err)
	}
}

func cleanRecipients(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range in {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
