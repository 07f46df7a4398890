package ingest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/formicag/ACEReportHub/internal/models"
)

const DefaultMaxOpen = 150

var defaultIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{5,50}$`)

// Validator applies the record and upload rules. Errors abort the upload,
// warnings are returned for display.
type Validator struct {
	IDPattern *regexp.Regexp
	MaxOpen   int
	Open      models.OpenPolicy
}

func NewValidator(maxOpen int, open models.OpenPolicy) *Validator {
	if maxOpen <= 0 {
		maxOpen = DefaultMaxOpen
	}
	if len(open.Statuses) == 0 || len(open.Stages) == 0 {
		open = models.DefaultOpenPolicy()
	}
	return &Validator{IDPattern: defaultIDPattern, MaxOpen: maxOpen, Open: open}
}

// Issue is one rule violation.
type Issue struct {
	ID      string
	Message string
}

func (i Issue) String() string {
	if i.ID == "" {
		return i.Message
	}
	return i.ID + ": " + i.Message
}

// Check runs every rule and returns errors and warnings separately.
func (v *Validator) Check(records []models.Opportunity, now time.Time) (errs, warns []Issue) {
	pattern := v.IDPattern
	if pattern == nil {
		pattern = defaultIDPattern
	}

	seen := map[string]int{}
	open := 0
	for _, o := range records {
		id := strings.TrimSpace(o.ID)
		switch {
		case id == "":
			errs = append(errs, Issue{Message: "opportunity id is missing"})
		case !pattern.MatchString(id):
			errs = append(errs, Issue{ID: id, Message: "opportunity id has invalid format"})
		}
		if id != "" {
			seen[id]++
		}

		if strings.TrimSpace(o.CustomerName) == "" {
			errs = append(errs, Issue{ID: id, Message: "customer name is missing"})
		}
		if o.EstimatedRevenue < 0 {
			errs = append(errs, Issue{ID: id, Message: fmt.Sprintf("negative revenue %.2f", o.EstimatedRevenue)})
		}
		if o.LastUpdated == nil {
			errs = append(errs, Issue{ID: id, Message: "last updated date is missing"})
		} else if o.LastUpdated.After(now) {
			errs = append(errs, Issue{ID: id, Message: "last updated date " + o.LastUpdated.Format("2006-01-02") + " is in the future"})
		}
		if o.DateCreated != nil && o.LastUpdated != nil && o.DateCreated.After(*o.LastUpdated) {
			errs = append(errs, Issue{ID: id, Message: "created after last updated"})
		}
		if strings.TrimSpace(o.Owner) == "" {
			warns = append(warns, Issue{ID: id, Message: "owner is missing"})
		}
		if v.Open.IsOpen(o) {
			open++
		}
	}

	var dups []string
	for id, n := range seen {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	for _, id := range dups {
		errs = append(errs, Issue{ID: id, Message: fmt.Sprintf("duplicate opportunity id (%d rows)", seen[id])})
	}

	if v.MaxOpen > 0 && open > v.MaxOpen {
		warns = append(warns, Issue{Message: fmt.Sprintf("%d open opportunities exceeds the expected maximum of %d", open, v.MaxOpen)})
	}
	return errs, warns
}

// Validate implements the snapshot service's validator hook.
func (v *Validator) Validate(records []models.Opportunity, now time.Time) ([]string, error) {
	errs, warns := v.Check(records, now)
	warnings := make([]string, len(warns))
	for i, w := range warns {
		warnings[i] = w.String()
	}
	if len(errs) == 0 {
		return warnings, nil
	}

	var ids, msgs []string
	for _, e := range errs {
		if e.ID != "" {
			ids = appendUnique(ids, e.ID)
		}
		msgs = append(msgs, e.String())
	}
	return warnings, &models.InvalidInputError{
		Reason: fmt.Sprintf("%d validation errors: %s", len(errs), strings.Join(msgs, "; ")),
		IDs:    sortedCopy(ids),
	}
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
