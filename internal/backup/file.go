package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/formicag/ACEReportHub/internal/models"
)

// FileSink writes archives as JSON files in Dir.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		dir = "backups"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create backup dir %s: %w", dir, err)
	}
	return &FileSink{Dir: dir}, nil
}

// Backup writes to a temporary file, syncs it and renames it into place.
func (f *FileSink) Backup(ctx context.Context, archive *models.Archive, reason string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := Encode(archive)
	if err != nil {
		return "", err
	}

	final := filepath.Join(f.Dir, Name(takenAt(archive), reason))
	tmp, err := os.CreateTemp(f.Dir, ".backup-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp backup: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("finalise backup: %w", err)
	}
	return final, nil
}

// Latest returns the newest archive file in Dir, or "" when there is none.
func (f *FileSink) Latest() (string, error) {
	matches, err := filepath.Glob(filepath.Join(f.Dir, "ace-backup-*.json"))
	if err != nil {
		return "", err
	}
	latest := ""
	for _, m := range matches {
		if m > latest {
			latest = m
		}
	}
	return latest, nil
}
