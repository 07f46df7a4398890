// Package backup writes full store archives before destructive operations.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/formicag/ACEReportHub/internal/models"
)

// Sink persists an archive and returns its location. A nil error means the
// archive is durably written.
type Sink interface {
	Backup(ctx context.Context, archive *models.Archive, reason string) (string, error)
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9-]+`)

// Name returns the object or file name for an archive taken at t.
func Name(t time.Time, reason string) string {
	reason = strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(reason), "-"), "-")
	if reason == "" {
		reason = "manual"
	}
	return fmt.Sprintf("ace-backup-%s-%s.json", t.UTC().Format("20060102T150405Z"), reason)
}

// Encode serialises an archive as indented JSON.
func Encode(archive *models.Archive) ([]byte, error) {
	if archive == nil {
		return nil, errors.New("nil archive")
	}
	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode archive: %w", err)
	}
	return data, nil
}

// Decode reads an archive written by Encode.
func Decode(r io.Reader) (*models.Archive, error) {
	var a models.Archive
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}
	return &a, nil
}

func takenAt(a *models.Archive) time.Time {
	if a.TakenAt.IsZero() {
		return time.Now().UTC()
	}
	return a.TakenAt
}

// All writes to every sink in order and fails if any of them fails.
type All []Sink

func (all All) Backup(ctx context.Context, archive *models.Archive, reason string) (string, error) {
	if len(all) == 0 {
		return "", errors.New("no backup sinks configured")
	}
	locations := make([]string, 0, len(all))
	for _, s := range all {
		loc, err := s.Backup(ctx, archive, reason)
		if err != nil {
			return "", err
		}
		locations = append(locations, loc)
	}
	return strings.Join(locations, ","), nil
}
