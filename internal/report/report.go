// Package report turns a comparison into the weekly report view and renders
// the email body.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/formicag/ACEReportHub/internal/compare"
	"github.com/formicag/ACEReportHub/internal/models"
)

// Framing tells the reader what the numbers are measured against.
type Framing string

const (
	FramingBaseline     Framing = "baseline"
	FramingWeekOverWeek Framing = "week-over-week"
)

// Row is one opportunity line in a report table.
type Row struct {
	ID        string                `json:"id"`
	Customer  string                `json:"customer"`
	Title     string                `json:"title,omitempty"`
	Status    string                `json:"status"`
	Stage     string                `json:"stage"`
	Revenue   float64               `json:"revenue"`
	Owner     string                `json:"owner,omitempty"`
	DaysSince int                   `json:"days_since_update,omitempty"`
	Changes   []compare.FieldChange `json:"changes,omitempty"`
}

// Delta compares one stat with the previous snapshot.
type Delta struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Change   float64 `json:"change"`
}

// View is everything the report needs, framed against the comparison target.
type View struct {
	Framing     Framing           `json:"framing"`
	GeneratedAt time.Time         `json:"generated_at"`
	ReportWeek  models.ReportWeek `json:"report_week,omitempty"`
	TargetID    int64             `json:"target_id,omitempty"`
	TargetWeek  models.ReportWeek `json:"target_week,omitempty"`

	Stats                   models.Stats `json:"stats"`
	ConsecutiveWeeksNoStale int          `json:"consecutive_weeks_no_stale"`

	// Deltas are keyed by stat name and empty for a baseline report.
	Deltas map[string]Delta `json:"deltas,omitempty"`

	NewCount       int   `json:"new_count"`
	ClosedCount    int   `json:"closed_count"`
	ChangedCount   int   `json:"changed_count"`
	UnchangedCount int   `json:"unchanged_count"`
	NewOpen        []Row `json:"new_open"`
	NoLongerOpen   []Row `json:"no_longer_open"`
	Changed        []Row `json:"changed"`
	Stale          []Row `json:"stale"`

	Notes   string `json:"notes,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Build assembles the view of res. target is the snapshot res was compared
// against and may be nil for a first upload.
func Build(res *compare.Result, target *models.Snapshot) *View {
	v := &View{
		Framing:                 FramingWeekOverWeek,
		GeneratedAt:             res.GeneratedAt,
		TargetID:                res.TargetID,
		TargetWeek:              res.TargetWeek,
		Stats:                   res.Stats,
		ConsecutiveWeeksNoStale: res.ConsecutiveWeeksNoStale,
		NewCount:                len(res.New),
		ClosedCount:             len(res.Closed),
		ChangedCount:            len(res.Changed),
		UnchangedCount:          len(res.Unchanged),
	}
	if res.NoBaseline || target == nil {
		v.Framing = FramingBaseline
	}

	current := index(res.Current)
	var previous map[string]models.Opportunity
	if target != nil {
		previous = index(target.Opportunities)
	}

	for _, id := range res.NewOpen {
		v.NewOpen = append(v.NewOpen, toRow(current[id], res.GeneratedAt))
	}
	for _, id := range res.NoLongerOpen {
		// Prefer the current version so rows show where the item moved to.
		o, ok := current[id]
		if !ok {
			o = previous[id]
		}
		v.NoLongerOpen = append(v.NoLongerOpen, toRow(o, res.GeneratedAt))
	}
	for _, id := range res.ChangedIDs() {
		row := toRow(current[id], res.GeneratedAt)
		row.Changes = res.Changed[id]
		v.Changed = append(v.Changed, row)
	}
	for _, id := range res.Stale {
		v.Stale = append(v.Stale, toRow(current[id], res.GeneratedAt))
	}
	sort.SliceStable(v.Stale, func(i, j int) bool { return v.Stale[i].DaysSince > v.Stale[j].DaysSince })

	if v.Framing == FramingWeekOverWeek && res.PreviousStats != nil {
		p := res.PreviousStats
		v.Deltas = map[string]Delta{
			"reportable":       delta(float64(res.Stats.Reportable), float64(p.Reportable)),
			"stale":            delta(float64(res.Stats.StaleCount), float64(p.StaleCount)),
			"revenue":          delta(res.Stats.TotalRevenue, p.TotalRevenue),
			"avg_days_since":   delta(res.Stats.AvgDaysSince, p.AvgDaysSince),
			"well_architected": delta(float64(res.Stats.WellArchitected), float64(p.WellArchitected)),
			"rapid_pilot":      delta(float64(res.Stats.RapidPilot), float64(p.RapidPilot)),
		}
	}
	return v
}

// Subject is the email subject line for the view.
func (v *View) Subject() string {
	week := string(v.ReportWeek)
	if week == "" {
		week = v.GeneratedAt.Format("2006-01-02")
	}
	if v.Framing == FramingBaseline {
		return fmt.Sprintf("ACE pipeline baseline - week of %s", week)
	}
	return fmt.Sprintf("ACE pipeline report - week of %s", week)
}

func toRow(o models.Opportunity, now time.Time) Row {
	days, _ := o.DaysSinceUpdate(now)
	return Row{
		ID:        o.ID,
		Customer:  o.CustomerName,
		Title:     o.ProjectTitle,
		Status:    o.Status,
		Stage:     o.Stage,
		Revenue:   o.EstimatedRevenue,
		Owner:     o.Owner,
		DaysSince: days,
	}
}

func index(records []models.Opportunity) map[string]models.Opportunity {
	m := make(map[string]models.Opportunity, len(records))
	for _, o := range records {
		m[o.ID] = o
	}
	return m
}

func delta(cur, prev float64) Delta {
	return Delta{Current: cur, Previous: prev, Change: cur - prev}
}
