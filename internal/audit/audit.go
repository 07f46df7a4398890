// Package audit records operator-visible decisions: previews, saves, blocked
// writes, rejected deletes, backups and deletes.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionPreview          Action = "preview"
	ActionSave             Action = "save"
	ActionDuplicateBlocked Action = "duplicate_blocked"
	ActionDeleteRejected   Action = "delete_rejected"
	ActionBackup           Action = "backup"
	ActionDelete           Action = "delete"
)

// Event is one audit log row.
type Event struct {
	ID         string         `json:"id"`
	At         time.Time      `json:"at"`
	Action     Action         `json:"action"`
	SnapshotID int64          `json:"snapshot_id,omitempty"`
	ReportWeek string         `json:"report_week,omitempty"`
	Records    int            `json:"records,omitempty"`
	Success    bool           `json:"success"`
	Message    string         `json:"message,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Stamp fills in the id and timestamp when unset.
func (e Event) Stamp(now time.Time) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = now.UTC()
	}
	return e
}

// Recorder persists audit events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// LogRecorder writes events to a slog logger.
type LogRecorder struct {
	Logger *slog.Logger
}

func (r LogRecorder) Record(ctx context.Context, e Event) error {
	l := r.Logger
	if l == nil {
		l = slog.Default()
	}
	level := slog.LevelInfo
	if !e.Success {
		level = slog.LevelWarn
	}
	l.LogAttrs(ctx, level, "audit",
		slog.String("audit_id", e.ID),
		slog.String("action", string(e.Action)),
		slog.Int64("snapshot_id", e.SnapshotID),
		slog.String("report_week", e.ReportWeek),
		slog.Int("records", e.Records),
		slog.Bool("success", e.Success),
		slog.String("message", e.Message),
	)
	return nil
}

// Multi fans an event out to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, e Event) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }
