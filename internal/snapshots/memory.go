package snapshots

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/formicag/ACEReportHub/internal/models"
)

// MemoryStore is a process-local Store. Ids are never reused after a delete.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]models.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, byID: map[int64]models.Snapshot{}}
}

func (m *MemoryStore) List(_ context.Context) ([]models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Snapshot, 0, len(m.byID))
	for _, s := range m.byID {
		s.Opportunities = nil
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id int64) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("snapshot #%d: %w", id, models.ErrNotFound)
	}
	return copySnapshot(s), nil
}

func (m *MemoryStore) FindByReportWeek(_ context.Context, week models.ReportWeek) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.findWeekLocked(week); ok {
		return copySnapshot(s), nil
	}
	return nil, fmt.Errorf("report week %s: %w", week, models.ErrNotFound)
}

func (m *MemoryStore) Insert(_ context.Context, s *models.Snapshot) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.findWeekLocked(s.ReportWeek); ok {
		return 0, &models.DuplicateReportError{
			ReportWeek:        s.ReportWeek,
			ExistingID:        existing.ID,
			ExistingCreatedAt: existing.CreatedAt,
		}
	}

	stored := *copySnapshot(*s)
	stored.ID = m.nextID
	m.nextID++
	m.byID[stored.ID] = stored
	return stored.ID, nil
}

func (m *MemoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[id]; !ok {
		return fmt.Errorf("snapshot #%d: %w", id, models.ErrNotFound)
	}
	delete(m.byID, id)
	return nil
}

func (m *MemoryStore) Export(_ context.Context) (*models.Archive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := &models.Archive{Snapshots: make([]models.Snapshot, 0, len(m.byID))}
	for _, s := range m.byID {
		a.Snapshots = append(a.Snapshots, *copySnapshot(s))
	}
	sort.Slice(a.Snapshots, func(i, j int) bool { return a.Snapshots[i].ID < a.Snapshots[j].ID })
	return a, nil
}

func (m *MemoryStore) findWeekLocked(week models.ReportWeek) (models.Snapshot, bool) {
	var found models.Snapshot
	var ok bool
	for _, s := range m.byID {
		if s.ReportWeek == week && (!ok || s.ID < found.ID) {
			found, ok = s, true
		}
	}
	return found, ok
}

func copySnapshot(s models.Snapshot) *models.Snapshot {
	c := s
	c.Opportunities = append([]models.Opportunity(nil), s.Opportunities...)
	c.Recipients = append([]string(nil), s.Recipients...)
	return &c
}
