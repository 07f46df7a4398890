package snapshots

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/formicag/ACEReportHub/internal/audit"
	"github.com/formicag/ACEReportHub/internal/compare"
	"github.com/formicag/ACEReportHub/internal/models"
)

var testNow = time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

func opp(id string, ageDays int) models.Opportunity {
	t := testNow.Add(-time.Duration(ageDays) * 24 * time.Hour)
	return models.Opportunity{
		ID:               id,
		CustomerName:     "Customer " + id,
		Status:           "Approved",
		Stage:            "Committed",
		Owner:            "Sam",
		EstimatedRevenue: 500,
		LastUpdated:      &t,
	}
}

type tape struct{ steps []string }

func (t *tape) add(s string) { t.steps = append(t.steps, s) }

// tapedStore records export and delete calls on a shared tape.
type tapedStore struct {
	*MemoryStore
	tape *tape
}

func (s tapedStore) Export(ctx context.Context) (*models.Archive, error) {
	s.tape.add("export")
	return s.MemoryStore.Export(ctx)
}

func (s tapedStore) Delete(ctx context.Context, id int64) error {
	s.tape.add(fmt.Sprintf("delete %d", id))
	return s.MemoryStore.Delete(ctx, id)
}

type fakeBackup struct {
	tape     *tape
	err      error
	archives []*models.Archive
}

func (b *fakeBackup) Backup(_ context.Context, a *models.Archive, reason string) (string, error) {
	if b.tape != nil {
		b.tape.add("backup " + reason)
	}
	if b.err != nil {
		return "", b.err
	}
	b.archives = append(b.archives, a)
	return "mem://" + reason, nil
}

type fakeConfirmer struct{}

func (fakeConfirmer) Issue(id int64) (string, error) { return fmt.Sprintf("ok-%d", id), nil }

func (fakeConfirmer) Verify(token string, id int64) error {
	if token != fmt.Sprintf("ok-%d", id) {
		return errors.New("token does not match snapshot")
	}
	return nil
}

type auditLog struct{ events []audit.Event }

func (a *auditLog) Record(_ context.Context, e audit.Event) error {
	a.events = append(a.events, e)
	return nil
}

func (a *auditLog) actions() []audit.Action {
	var out []audit.Action
	for _, e := range a.events {
		out = append(out, e.Action)
	}
	return out
}

type fixture struct {
	store  *MemoryStore
	backup *fakeBackup
	audit  *auditLog
	tape   *tape
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: NewMemoryStore(), audit: &auditLog{}, tape: &tape{}}
	f.backup = &fakeBackup{tape: f.tape}
	engine := compare.NewEngine(compare.NewCalculator(30, models.DefaultOpenPolicy()), compare.FixedClock(testNow))
	f.svc = NewService(tapedStore{MemoryStore: f.store, tape: f.tape}, engine, Options{
		Confirmer: fakeConfirmer{},
		Backup:    f.backup,
		Audit:     f.audit,
	})
	return f
}

func (f *fixture) save(t *testing.T, week string, records ...models.Opportunity) *models.Snapshot {
	t.Helper()
	res, err := f.svc.Save(context.Background(), SaveRequest{Records: records, ReportWeek: week, SourceFilename: week + ".csv"})
	if err != nil {
		t.Fatalf("save %s: %v", week, err)
	}
	return res.Snapshot
}

func TestSave_FirstUploadIsBaseline(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Save(context.Background(), SaveRequest{
		Records:    []models.Opportunity{opp("O1001", 3), opp("O1002", 40)},
		ReportWeek: "2026-03-02",
		Recipients: []string{" Boss@Example.com", "boss@example.com", ""},
		Notes:      "  first run ",
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if res.Snapshot.ID != models.BaselineID || !res.Snapshot.IsBaseline() {
		t.Fatalf("first snapshot id = %d", res.Snapshot.ID)
	}
	if !res.Comparison.NoBaseline {
		t.Fatal("first save should be marked as having no baseline")
	}
	if res.Snapshot.Stats.StaleCount != 1 || res.Snapshot.ConsecutiveWeeksNoStale != 0 {
		t.Fatalf("unexpected stats %+v counter %d", res.Snapshot.Stats, res.Snapshot.ConsecutiveWeeksNoStale)
	}
	if len(res.Snapshot.Recipients) != 1 || res.Snapshot.Recipients[0] != "boss@example.com" {
		t.Fatalf("recipients = %v", res.Snapshot.Recipients)
	}
	if res.Snapshot.Notes != "first run" {
		t.Fatalf("notes = %q", res.Snapshot.Notes)
	}
	if !res.Snapshot.CreatedAt.Equal(testNow) {
		t.Fatalf("created at = %v", res.Snapshot.CreatedAt)
	}
}

func TestSave_ComparesAgainstLatestAndCarriesCounter(t *testing.T) {
	f := newFixture(t)
	f.save(t, "2026-03-02", opp("O1", 1), opp("O2", 2))
	second := f.save(t, "2026-03-09", opp("O1", 1), opp("O3", 2))

	if second.NewCount != 1 || second.ClosedCount != 1 || second.ChangedCount != 0 {
		t.Fatalf("counts new=%d closed=%d changed=%d", second.NewCount, second.ClosedCount, second.ChangedCount)
	}
	if second.ConsecutiveWeeksNoStale != 2 {
		t.Fatalf("counter = %d, want 2", second.ConsecutiveWeeksNoStale)
	}
}

func TestSave_DuplicateReportWeekHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	first := f.save(t, "2026-03-02", opp("O1", 1))
	f.save(t, "2026-03-09", opp("O1", 1))

	before, _ := f.store.List(context.Background())
	_, err := f.svc.Save(context.Background(), SaveRequest{Records: []models.Opportunity{opp("O9", 1)}, ReportWeek: "2026-03-02"})

	var dup *models.DuplicateReportError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateReportError, got %v", err)
	}
	if dup.ExistingID != first.ID || !strings.Contains(err.Error(), "#1") {
		t.Fatalf("error should reference snapshot #1: %v", err)
	}
	after, _ := f.store.List(context.Background())
	if len(after) != len(before) {
		t.Fatalf("store changed: %d -> %d snapshots", len(before), len(after))
	}
	last := f.audit.events[len(f.audit.events)-1]
	if last.Action != audit.ActionDuplicateBlocked || last.Success {
		t.Fatalf("expected blocked audit event, got %+v", last)
	}
}

// raceStore lets a concurrent write land between the guard check and the insert.
type raceStore struct {
	*MemoryStore
	once bool
}

func (r *raceStore) Insert(ctx context.Context, s *models.Snapshot) (int64, error) {
	if !r.once {
		r.once = true
		other := *s
		other.Opportunities = nil
		if _, err := r.MemoryStore.Insert(ctx, &other); err != nil {
			return 0, err
		}
	}
	return r.MemoryStore.Insert(ctx, s)
}

func TestSave_GuardedInsertCatchesLateDuplicate(t *testing.T) {
	rs := &raceStore{MemoryStore: NewMemoryStore()}
	svc := NewService(rs, compare.NewEngine(compare.NewCalculator(30, models.OpenPolicy{}), compare.FixedClock(testNow)), Options{})

	_, err := svc.Save(context.Background(), SaveRequest{Records: []models.Opportunity{opp("O1", 1)}, ReportWeek: "2026-03-09"})
	if !errors.Is(err, models.ErrDuplicateReport) {
		t.Fatalf("expected duplicate from guarded insert, got %v", err)
	}
	list, _ := rs.List(context.Background())
	if len(list) != 1 {
		t.Fatalf("expected only the concurrent snapshot, got %d", len(list))
	}
}

func TestSave_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Save(ctx, SaveRequest{Records: []models.Opportunity{opp("O1", 1)}}); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("missing week: %v", err)
	}
	if _, err := f.svc.Save(ctx, SaveRequest{ReportWeek: "2026-03-09"}); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("empty upload: %v", err)
	}
	if _, err := f.svc.Save(ctx, SaveRequest{Records: []models.Opportunity{opp("O1", 1), opp("O1", 2)}, ReportWeek: "2026-03-09"}); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("duplicate ids: %v", err)
	}
	if list, _ := f.store.List(ctx); len(list) != 0 {
		t.Fatalf("invalid saves must not store anything, got %d", len(list))
	}
}

type rejectAll struct{}

func (rejectAll) Validate([]models.Opportunity, time.Time) ([]string, error) {
	return nil, &models.InvalidInputError{Reason: "customer name required", IDs: []string{"O1"}}
}

type warnAll struct{}

func (warnAll) Validate([]models.Opportunity, time.Time) ([]string, error) {
	return []string{"O1: owner missing"}, nil
}

func TestPreview_UsesValidator(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, Options{Validator: rejectAll{}})
	if _, err := svc.Preview(context.Background(), []models.Opportunity{opp("O1", 1)}, ""); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected validator error, got %v", err)
	}

	svc = NewService(NewMemoryStore(), nil, Options{Validator: warnAll{}})
	p, err := svc.Preview(context.Background(), []models.Opportunity{opp("O1", 1)}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Warnings) != 1 {
		t.Fatalf("warnings = %v", p.Warnings)
	}
}

func TestPreview_ReportsDuplicateWithoutWriting(t *testing.T) {
	f := newFixture(t)
	f.save(t, "2026-03-02", opp("O1", 1))

	p, err := f.svc.Preview(context.Background(), []models.Opportunity{opp("O1", 1), opp("O2", 1)}, "2026-03-02")
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if p.Duplicate == nil || p.Duplicate.ID != 1 {
		t.Fatalf("expected duplicate #1, got %+v", p.Duplicate)
	}
	if p.Target == nil || p.Target.ID != 1 || len(p.Comparison.New) != 1 {
		t.Fatalf("unexpected preview %+v", p.Comparison)
	}
	if list, _ := f.store.List(context.Background()); len(list) != 1 {
		t.Fatal("preview must not write")
	}
	if got := f.audit.actions(); got[len(got)-1] != audit.ActionPreview {
		t.Fatalf("audit actions = %v", got)
	}
}

func TestHistoryAndLookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Baseline(ctx); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("baseline on empty store: %v", err)
	}
	if _, err := f.svc.Latest(ctx); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("latest on empty store: %v", err)
	}

	f.save(t, "2026-03-02", opp("O1", 1))
	f.save(t, "2026-03-09", opp("O1", 1))

	hist, err := f.svc.History(ctx)
	if err != nil || len(hist) != 2 || hist[0].ID != 1 || hist[1].ID != 2 {
		t.Fatalf("history = %+v, %v", hist, err)
	}
	if len(hist[0].Opportunities) != 0 {
		t.Fatal("history should not carry records")
	}
	if got, _ := f.svc.FindByWeek(ctx, "2026-03-09"); got == nil || got.ID != 2 {
		t.Fatalf("FindByWeek = %+v", got)
	}
	if got, err := f.svc.FindByWeek(ctx, "2026-03-16"); got != nil || err != nil {
		t.Fatalf("free week returned %+v, %v", got, err)
	}
}
