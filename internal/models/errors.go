package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound             = errors.New("snapshot not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrDuplicateReport      = errors.New("report week already stored")
	ErrProtected            = errors.New("snapshot is protected")
	ErrBackupFailed         = errors.New("backup failed")
	ErrConfirmationRequired = errors.New("confirmation token required")
)

// InvalidInputError describes an upload that violates record invariants.
type InvalidInputError struct {
	Reason string
	IDs    []string
}

func (e *InvalidInputError) Error() string {
	if len(e.IDs) == 0 {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Reason, strings.Join(e.IDs, ", "))
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// DuplicateReportError is returned when a snapshot already exists for the report week.
type DuplicateReportError struct {
	ReportWeek        ReportWeek
	ExistingID        int64
	ExistingCreatedAt time.Time
}

func (e *DuplicateReportError) Error() string {
	return fmt.Sprintf("report week %s already stored as snapshot #%d (created %s)",
		e.ReportWeek, e.ExistingID, e.ExistingCreatedAt.Format("2006-01-02 15:04"))
}

func (e *DuplicateReportError) Unwrap() error { return ErrDuplicateReport }

// ProtectedResourceError is returned for any attempt to delete the baseline.
type ProtectedResourceError struct {
	ID int64
}

func (e *ProtectedResourceError) Error() string {
	return fmt.Sprintf("snapshot #%d is the baseline and cannot be deleted", e.ID)
}

func (e *ProtectedResourceError) Unwrap() error { return ErrProtected }

// BackupFailureError aborts a delete when the pre-delete backup could not be produced.
type BackupFailureError struct {
	ID  int64
	Err error
}

func (e *BackupFailureError) Error() string {
	return fmt.Sprintf("delete of snapshot #%d aborted, backup failed: %v", e.ID, e.Err)
}

func (e *BackupFailureError) Unwrap() []error { return []error{ErrBackupFailed, e.Err} }

// ConfirmationError is returned when a guarded delete lacks a valid confirmation token.
type ConfirmationError struct {
	ID     int64
	Reason string
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("deleting snapshot #%d needs confirmation: %s", e.ID, e.Reason)
}

func (e *ConfirmationError) Unwrap() error { return ErrConfirmationRequired }
