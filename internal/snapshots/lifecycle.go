package snapshots

import (
	"context"
	"errors"
	"fmt"

	"github.com/formicag/ACEReportHub/internal/audit"
	"github.com/formicag/ACEReportHub/internal/logger"
	"github.com/formicag/ACEReportHub/internal/models"
)

var errNoBackuper = errors.New("no backup destination configured")

// GuardedID returns the id that needs a confirmation token to delete: the
// second-lowest stored id. ok is false with fewer than two snapshots.
func GuardedID(list []models.Snapshot) (id int64, ok bool) {
	if len(list) < 2 {
		return 0, false
	}
	return list[1].ID, true
}

// IssueDeleteToken returns a confirmation token for deleting id.
func (s *Service) IssueDeleteToken(ctx context.Context, id int64) (string, error) {
	if id == models.BaselineID {
		return "", &models.ProtectedResourceError{ID: id}
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return "", err
	}
	if s.confirmer == nil {
		return "", &models.ConfirmationError{ID: id, Reason: "confirmation tokens are not configured"}
	}
	return s.confirmer.Issue(id)
}

// Delete removes snapshot id after writing a full backup.
//
// The baseline is refused unconditionally. The guarded snapshot (see GuardedID)
// also needs a valid token. The backup is written and acknowledged before the
// delete runs; if it fails nothing is deleted.
func (s *Service) Delete(ctx context.Context, id int64, token string) error {
	log := logger.FromContext(ctx, s.log)

	if id == models.BaselineID {
		return s.rejectDelete(ctx, id, &models.ProtectedResourceError{ID: id})
	}

	list, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	target, found := findInList(list, id)
	if !found {
		return fmt.Errorf("snapshot #%d: %w", id, models.ErrNotFound)
	}

	if guarded, ok := GuardedID(list); ok && guarded == id {
		if err := s.checkToken(token, id); err != nil {
			return s.rejectDelete(ctx, id, err)
		}
	}

	location, err := s.writeBackup(ctx, fmt.Sprintf("delete-%d", id))
	if err != nil {
		return s.rejectDelete(ctx, id, &models.BackupFailureError{ID: id, Err: err})
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete snapshot #%d: %w", id, err)
	}

	log.Info("snapshot deleted", "snapshot_id", id, "report_week", target.ReportWeek, "backup", location)
	s.obs.Deleted(id)
	s.record(ctx, audit.Event{
		Action:     audit.ActionDelete,
		SnapshotID: id,
		ReportWeek: string(target.ReportWeek),
		Success:    true,
		Metadata:   map[string]any{"backup": location},
	})
	return nil
}

// Backup writes a full archive of the store on demand.
func (s *Service) Backup(ctx context.Context, reason string) (string, error) {
	if reason == "" {
		reason = "manual"
	}
	location, err := s.writeBackup(ctx, reason)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrBackupFailed, err)
	}
	return location, nil
}

func (s *Service) writeBackup(ctx context.Context, reason string) (string, error) {
	if s.backup == nil {
		s.obs.BackedUp(errNoBackuper)
		return "", errNoBackuper
	}

	archive, err := s.store.Export(ctx)
	if err != nil {
		err = fmt.Errorf("export store: %w", err)
		s.obs.BackedUp(err)
		return "", err
	}
	archive.TakenAt = s.engine.Clock.Now().UTC()

	location, err := s.backup.Backup(ctx, archive, reason)
	s.obs.BackedUp(err)
	if err != nil {
		return "", err
	}

	s.record(ctx, audit.Event{
		Action:  audit.ActionBackup,
		Success: true,
		Message: reason,
		Metadata: map[string]any{
			"location":  location,
			"snapshots": len(archive.Snapshots),
		},
	})
	return location, nil
}

func (s *Service) checkToken(token string, id int64) error {
	if token == "" {
		return &models.ConfirmationError{ID: id, Reason: "token missing"}
	}
	if s.confirmer == nil {
		return &models.ConfirmationError{ID: id, Reason: "confirmation tokens are not configured"}
	}
	if err := s.confirmer.Verify(token, id); err != nil {
		return &models.ConfirmationError{ID: id, Reason: err.Error()}
	}
	return nil
}

func (s *Service) rejectDelete(ctx context.Context, id int64, err error) error {
	logger.FromContext(ctx, s.log).Warn("delete rejected", "snapshot_id", id, "error", err)
	var reason string
	switch {
	case errors.Is(err, models.ErrProtected):
		reason = "protected"
	case errors.Is(err, models.ErrConfirmationRequired):
		reason = "confirmation"
	case errors.Is(err, models.ErrBackupFailed):
		reason = "backup"
	default:
		reason = "other"
	}
	s.obs.Blocked(reason)
	s.record(ctx, audit.Event{
		Action:     audit.ActionDeleteRejected,
		SnapshotID: id,
		Message:    err.Error(),
		Metadata:   map[string]any{"reason": reason},
	})
	return err
}

func findInList(list []models.Snapshot, id int64) (models.Snapshot, bool) {
	for _, sn := range list {
		if sn.ID == id {
			return sn, true
		}
	}
	return models.Snapshot{}, false
}
