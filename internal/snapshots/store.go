// Package snapshots owns the snapshot lifecycle: which stored snapshot an
// upload is compared against, the one-snapshot-per-report-week guard, baseline
// protection and backup-then-delete.
package snapshots

import (
	"context"
	"time"

	"github.com/formicag/ACEReportHub/internal/compare"
	"github.com/formicag/ACEReportHub/internal/models"
)

// Store is the durable Record Store.
//
// List returns snapshot metadata (no opportunities) ordered by ascending id.
// Get and FindByReportWeek return the full snapshot or models.ErrNotFound.
// Insert assigns the next id and must refuse, with *models.DuplicateReportError,
// a snapshot whose report week is already stored; the check and the insert
// happen under the same lock or transaction.
type Store interface {
	List(ctx context.Context) ([]models.Snapshot, error)
	Get(ctx context.Context, id int64) (*models.Snapshot, error)
	FindByReportWeek(ctx context.Context, week models.ReportWeek) (*models.Snapshot, error)
	Insert(ctx context.Context, s *models.Snapshot) (int64, error)
	Delete(ctx context.Context, id int64) error
	Export(ctx context.Context) (*models.Archive, error)
}

// Backuper persists a full archive and returns where it went.
type Backuper interface {
	Backup(ctx context.Context, archive *models.Archive, reason string) (location string, err error)
}

// Confirmer issues and checks delete confirmation tokens bound to a snapshot id.
type Confirmer interface {
	Issue(id int64) (string, error)
	Verify(token string, id int64) error
}

// Validator checks an upload before it is compared or stored.
type Validator interface {
	Validate(records []models.Opportunity, now time.Time) (warnings []string, err error)
}

// Observer receives lifecycle notifications, typically for metrics.
type Observer interface {
	Compared(res *compare.Result)
	Saved(s *models.Snapshot)
	Blocked(reason string)
	Deleted(id int64)
	BackedUp(err error)
}

type nopObserver struct{}

func (nopObserver) Compared(*compare.Result) {}
func (nopObserver) Saved(*models.Snapshot)   {}
func (nopObserver) Blocked(string)           {}
func (nopObserver) Deleted(int64)            {}
func (nopObserver) BackedUp(error)           {}
