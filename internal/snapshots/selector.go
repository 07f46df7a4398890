package snapshots

import (
	"context"
	"errors"
	"fmt"

	"github.com/formicag/ACEReportHub/internal/models"
)

// Selector resolves the baseline and the comparison target for an upload.
type Selector interface {
	// Baseline returns the first stored snapshot, or models.ErrNotFound when the store is empty.
	Baseline(ctx context.Context) (*models.Snapshot, error)
	// ComparisonTarget returns the snapshot an upload is compared against, or nil when the store is empty.
	ComparisonTarget(ctx context.Context) (*models.Snapshot, error)
}

// IDOrderSelector picks by identifier: the lowest id is the baseline and the
// highest id (most recently created) is the comparison target, whatever the
// report weeks say.
type IDOrderSelector struct {
	Store Store
}

func (s IDOrderSelector) Baseline(ctx context.Context) (*models.Snapshot, error) {
	list, err := s.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no baseline: %w", models.ErrNotFound)
	}
	return s.Store.Get(ctx, list[0].ID)
}

func (s IDOrderSelector) ComparisonTarget(ctx context.Context) (*models.Snapshot, error) {
	list, err := s.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return s.Store.Get(ctx, list[len(list)-1].ID)
}

// ReportWeekSelector compares against the snapshot with the latest report week,
// breaking ties by id. The baseline is still the lowest id.
type ReportWeekSelector struct {
	Store Store
}

func (s ReportWeekSelector) Baseline(ctx context.Context) (*models.Snapshot, error) {
	return IDOrderSelector(s).Baseline(ctx)
}

func (s ReportWeekSelector) ComparisonTarget(ctx context.Context) (*models.Snapshot, error) {
	list, err := s.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	best := list[0]
	for _, sn := range list[1:] {
		if sn.ReportWeek > best.ReportWeek || (sn.ReportWeek == best.ReportWeek && sn.ID > best.ID) {
			best = sn
		}
	}
	return s.Store.Get(ctx, best.ID)
}

// CheckDuplicate returns the stored snapshot for week, or nil when the week is free.
// Matching is exact.
func CheckDuplicate(ctx context.Context, store Store, week models.ReportWeek) (*models.Snapshot, error) {
	existing, err := store.FindByReportWeek(ctx, week)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup report week %s: %w", week, err)
	}
	return existing, nil
}
