package compare

import (
	"testing"

	"github.com/formicag/ACEReportHub/internal/models"
)

func TestCompute_Basic(t *testing.T) {
	wa := openOpp("O3", 10)
	wa.Programs = []string{"Well-Architected"}
	wa.EstimatedRevenue = 250.25
	rapid := openOpp("O4", 20)
	rapid.ProjectTitle = "RAPID PILOT - Acme"
	closed := openOpp("O5", 90)
	closed.Stage = "Launched"
	excluded := openOpp("O6", 90)
	excluded.Excluded = true
	undated := openOpp("O7", 0)
	undated.LastUpdated = nil

	records := []models.Opportunity{openOpp("O1", 31), openOpp("O2", 30), wa, rapid, closed, excluded, undated}
	st := NewCalculator(30, models.DefaultOpenPolicy()).Compute(records, refNow)

	if st.TotalAll != 7 {
		t.Errorf("TotalAll = %d, want 7", st.TotalAll)
	}
	if st.TotalOpen != 6 {
		t.Errorf("TotalOpen = %d, want 6", st.TotalOpen)
	}
	if st.Excluded != 1 {
		t.Errorf("Excluded = %d, want 1", st.Excluded)
	}
	if st.Reportable != 5 {
		t.Errorf("Reportable = %d, want 5", st.Reportable)
	}
	// Only O1 is strictly older than 30 days.
	if st.StaleCount != 1 {
		t.Errorf("StaleCount = %d, want 1", st.StaleCount)
	}
	// (31+30+10+20)/4 = 22.75 -> 22.8
	if st.AvgDaysSince != 22.8 {
		t.Errorf("AvgDaysSince = %v, want 22.8", st.AvgDaysSince)
	}
	if st.TotalRevenue != 4250.25 {
		t.Errorf("TotalRevenue = %v, want 4250.25", st.TotalRevenue)
	}
	if st.WellArchitected != 1 || st.RapidPilot != 1 {
		t.Errorf("flags = wa %d rapid %d", st.WellArchitected, st.RapidPilot)
	}
}

func TestCompute_Empty(t *testing.T) {
	st := ComputeStats(nil, refNow)
	if st != (models.Stats{}) {
		t.Fatalf("expected zero stats, got %+v", st)
	}
}

func TestCompute_StaleNeverExceedsReportable(t *testing.T) {
	calc := NewCalculator(7, models.OpenPolicy{})
	var records []models.Opportunity
	for i := 0; i < 40; i++ {
		o := openOpp(string(rune('A'+i%26))+string(rune('a'+i/26))+"-001", i*3)
		if i%5 == 0 {
			o.Excluded = true
		}
		if i%7 == 0 {
			o.Status = "Closed Lost"
		}
		records = append(records, o)
	}

	st := calc.Compute(records, refNow)
	if st.StaleCount > st.Reportable {
		t.Fatalf("stale %d > reportable %d", st.StaleCount, st.Reportable)
	}
	if st.Reportable > st.TotalOpen || st.TotalOpen > st.TotalAll {
		t.Fatalf("counts not nested: %+v", st)
	}

	var stale int
	for _, o := range records {
		if calc.IsStale(o, refNow) {
			stale++
		}
	}
	if stale != st.StaleCount {
		t.Fatalf("IsStale count %d != StaleCount %d", stale, st.StaleCount)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	records := []models.Opportunity{openOpp("O1", 3), openOpp("O2", 33), openOpp("O3", 64)}
	calc := NewCalculator(0, models.OpenPolicy{})
	first := calc.Compute(records, refNow)
	second := calc.Compute(records, refNow)
	if first != second {
		t.Fatalf("stats differ between runs: %+v vs %+v", first, second)
	}
}

func TestNewCalculator_Defaults(t *testing.T) {
	c := NewCalculator(-1, models.OpenPolicy{Statuses: []string{"Approved"}})
	if c.StaleThreshold != DefaultStaleThreshold {
		t.Errorf("threshold = %d", c.StaleThreshold)
	}
	if len(c.Open.Stages) == 0 {
		t.Error("partial open policy should fall back to defaults")
	}
}

func TestTrackedFields(t *testing.T) {
	fields := TrackedFields()
	if len(fields) != 9 || fields[0] != FieldStatus {
		t.Fatalf("unexpected tracked fields %v", fields)
	}

	a := openOpp("O1", 5)
	b := a
	b.Owner = "  Dana  "
	if diffs := diffFields(a, b); len(diffs) != 0 {
		t.Fatalf("whitespace-only change should not be a diff: %+v", diffs)
	}
	b.EstimatedRevenue = 1000.5
	if diffs := diffFields(a, b); len(diffs) != 1 || diffs[0].Field != FieldRevenue {
		t.Fatalf("expected revenue diff, got %+v", diffs)
	}
}
