// Package compare holds the pure computations over opportunity record sets:
// aggregate stats and the week-over-week comparison.
package compare

import (
	"math"
	"time"

	"github.com/formicag/ACEReportHub/internal/models"
)

// DefaultStaleThreshold is the number of days without update after which an open item is stale.
const DefaultStaleThreshold = 30

// Calculator derives aggregate stats from a record set.
type Calculator struct {
	StaleThreshold int
	Open           models.OpenPolicy
}

// NewCalculator returns a Calculator, falling back to defaults for zero values.
func NewCalculator(staleThreshold int, open models.OpenPolicy) Calculator {
	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}
	if len(open.Statuses) == 0 || len(open.Stages) == 0 {
		open = models.DefaultOpenPolicy()
	}
	return Calculator{StaleThreshold: staleThreshold, Open: open}
}

// ComputeStats uses the default threshold and open policy.
func ComputeStats(records []models.Opportunity, now time.Time) models.Stats {
	return NewCalculator(0, models.OpenPolicy{}).Compute(records, now)
}

// Reportable reports whether o is open and not excluded.
func (c Calculator) Reportable(o models.Opportunity) bool {
	return !o.Excluded && c.Open.IsOpen(o)
}

// IsStale reports whether o is reportable and was last updated more than the threshold ago.
// Records without a last-updated date are never stale.
func (c Calculator) IsStale(o models.Opportunity, now time.Time) bool {
	if !c.Reportable(o) {
		return false
	}
	days, ok := o.DaysSinceUpdate(now)
	return ok && days > c.StaleThreshold
}

// Compute aggregates records as of now. Excluded rows count toward TotalAll,
// TotalOpen and Excluded only.
func (c Calculator) Compute(records []models.Opportunity, now time.Time) models.Stats {
	var st models.Stats
	var ageSum, aged int

	st.TotalAll = len(records)
	for _, o := range records {
		if !c.Open.IsOpen(o) {
			continue
		}
		st.TotalOpen++
		if o.Excluded {
			st.Excluded++
			continue
		}

		st.Reportable++
		st.TotalRevenue += o.EstimatedRevenue
		if o.IsWellArchitected() {
			st.WellArchitected++
		}
		if o.IsRapidPilot() {
			st.RapidPilot++
		}

		days, ok := o.DaysSinceUpdate(now)
		if !ok {
			continue
		}
		ageSum += days
		aged++
		if days > c.StaleThreshold {
			st.StaleCount++
		}
	}

	if aged > 0 {
		st.AvgDaysSince = math.Round(float64(ageSum)/float64(aged)*10) / 10
	}
	st.TotalRevenue = math.Round(st.TotalRevenue*100) / 100
	return st
}
