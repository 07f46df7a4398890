package compare

import (
	"sort"
	"strings"
	"time"

	"github.com/formicag/ACEReportHub/internal/models"
)

// Previous is the stored side of a comparison.
type Previous struct {
	SnapshotID              int64
	ReportWeek              models.ReportWeek
	Records                 []models.Opportunity
	Stats                   models.Stats
	ConsecutiveWeeksNoStale int
}

// FromSnapshot builds the comparison input from a stored snapshot. A nil snapshot yields nil.
func FromSnapshot(s *models.Snapshot) *Previous {
	if s == nil {
		return nil
	}
	return &Previous{
		SnapshotID:              s.ID,
		ReportWeek:              s.ReportWeek,
		Records:                 s.Opportunities,
		Stats:                   s.Stats,
		ConsecutiveWeeksNoStale: s.ConsecutiveWeeksNoStale,
	}
}

// Result is the classified delta between an upload and a stored snapshot.
// It is never persisted; only its counts are folded into a new snapshot.
type Result struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Current     []models.Opportunity `json:"-"`
	TargetID    int64                `json:"target_id,omitempty"`
	TargetWeek  models.ReportWeek    `json:"target_week,omitempty"`

	// NoBaseline is set when nothing was stored yet; the partitions are then empty.
	NoBaseline bool `json:"no_baseline"`

	New       []string                 `json:"new"`
	Closed    []string                 `json:"closed"`
	Changed   map[string][]FieldChange `json:"changed"`
	Unchanged []string                 `json:"unchanged"`

	// NewOpen and NoLongerOpen are report views over the partitions.
	NewOpen      []string `json:"new_open"`
	NoLongerOpen []string `json:"no_longer_open"`

	Stale                   []string      `json:"stale"`
	Stats                   models.Stats  `json:"stats"`
	PreviousStats           *models.Stats `json:"previous_stats,omitempty"`
	ConsecutiveWeeksNoStale int           `json:"consecutive_weeks_no_stale"`
}

// ChangedIDs returns the changed identifiers in upload order.
func (r *Result) ChangedIDs() []string {
	ids := make([]string, 0, len(r.Changed))
	for _, o := range r.Current {
		if _, ok := r.Changed[o.ID]; ok {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// StaleCount is the number of stale reportable records in the upload.
func (r *Result) StaleCount() int { return r.Stats.StaleCount }

// Engine compares uploads against stored snapshots.
type Engine struct {
	Calc  Calculator
	Clock Clock
}

// NewEngine wires a calculator and clock. A nil clock uses the system clock.
func NewEngine(calc Calculator, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{Calc: calc, Clock: clock}
}

// Compare classifies current against prev. prev == nil means no snapshot exists yet.
func (e *Engine) Compare(current []models.Opportunity, prev *Previous) (*Result, error) {
	if err := CheckUnique(current); err != nil {
		return nil, err
	}

	now := e.Clock.Now()
	res := &Result{
		GeneratedAt: now,
		Current:     current,
		Changed:     map[string][]FieldChange{},
		Stats:       e.Calc.Compute(current, now),
	}

	for _, o := range current {
		if e.Calc.IsStale(o, now) {
			res.Stale = append(res.Stale, o.ID)
		}
	}

	res.ConsecutiveWeeksNoStale = nextConsecutive(res.Stats.StaleCount, prev)

	if prev == nil {
		res.NoBaseline = true
		return res, nil
	}

	res.TargetID = prev.SnapshotID
	res.TargetWeek = prev.ReportWeek
	prevStats := prev.Stats
	res.PreviousStats = &prevStats

	prevByID := make(map[string]models.Opportunity, len(prev.Records))
	for _, o := range prev.Records {
		if _, dup := prevByID[o.ID]; !dup {
			prevByID[o.ID] = o
		}
	}
	currByID := make(map[string]models.Opportunity, len(current))
	for _, o := range current {
		currByID[o.ID] = o
	}

	for _, o := range current {
		old, seen := prevByID[o.ID]
		if !seen {
			res.New = append(res.New, o.ID)
			if e.Calc.Open.IsOpen(o) {
				res.NewOpen = append(res.NewOpen, o.ID)
			}
			continue
		}
		if changes := diffFields(old, o); len(changes) > 0 {
			res.Changed[o.ID] = changes
		} else {
			res.Unchanged = append(res.Unchanged, o.ID)
		}
	}

	emitted := make(map[string]bool, len(prev.Records))
	for _, o := range prev.Records {
		if emitted[o.ID] {
			continue
		}
		emitted[o.ID] = true

		cur, present := currByID[o.ID]
		if !present {
			res.Closed = append(res.Closed, o.ID)
		}
		if e.Calc.Open.IsOpen(o) && (!present || !e.Calc.Open.IsOpen(cur)) {
			res.NoLongerOpen = append(res.NoLongerOpen, o.ID)
		}
	}

	return res, nil
}

// nextConsecutive carries the no-stale streak forward from the comparison target.
func nextConsecutive(staleCount int, prev *Previous) int {
	if staleCount > 0 {
		return 0
	}
	if prev != nil && prev.Stats.StaleCount == 0 {
		return prev.ConsecutiveWeeksNoStale + 1
	}
	return 1
}

// CheckUnique rejects record sets with missing or repeated identifiers.
func CheckUnique(records []models.Opportunity) error {
	seen := make(map[string]int, len(records))
	var missing int
	for _, o := range records {
		id := strings.TrimSpace(o.ID)
		if id == "" {
			missing++
			continue
		}
		seen[id]++
	}
	if missing > 0 {
		return &models.InvalidInputError{Reason: "records without an opportunity id"}
	}

	var dups []string
	for id, n := range seen {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return &models.InvalidInputError{Reason: "duplicate opportunity ids", IDs: dups}
	}
	return nil
}
