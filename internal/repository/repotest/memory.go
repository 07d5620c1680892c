// Package repotest holds an in-memory AttendeeRepository for unit tests.
// It mirrors the conditional-update semantics of the gorm implementation.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"confcheckin/internal/model"
	"confcheckin/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var _ repository.AttendeeRepository = (*MemoryAttendees)(nil)

type entry struct {
	seq int
	rec model.Attendee
}

type MemoryAttendees struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*entry
	seq  int

	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryAttendees() *MemoryAttendees {
	return &MemoryAttendees{rows: make(map[uuid.UUID]*entry)}
}

func (m *MemoryAttendees) Create(_ context.Context, a *model.Attendee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, e := range m.rows {
		if strings.EqualFold(e.rec.Email, a.Email) || e.rec.QRToken == a.QRToken {
			return gorm.ErrDuplicatedKey
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Role == "" {
		a.Role = model.RoleAttendee
	}
	m.seq++
	m.rows[a.ID] = &entry{seq: m.seq, rec: *a}
	return nil
}

func (m *MemoryAttendees) FindByID(_ context.Context, id uuid.UUID) (*model.Attendee, error) {
	return m.find(func(a *model.Attendee) bool { return a.ID == id })
}

func (m *MemoryAttendees) FindByEmail(_ context.Context, email string) (*model.Attendee, error) {
	email = strings.TrimSpace(email)
	return m.find(func(a *model.Attendee) bool { return strings.EqualFold(a.Email, email) })
}

func (m *MemoryAttendees) FindByToken(_ context.Context, token string) (*model.Attendee, error) {
	return m.find(func(a *model.Attendee) bool { return a.QRToken == token })
}

func (m *MemoryAttendees) find(match func(*model.Attendee) bool) (*model.Attendee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, e := range m.rows {
		if match(&e.rec) {
			cp := e.rec
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MemoryAttendees) Search(_ context.Context, query string, limit int) ([]model.Attendee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var hits []*entry
	for _, e := range m.rows {
		if q == "" || strings.Contains(strings.ToLower(e.rec.Name), q) || strings.Contains(strings.ToLower(e.rec.Email), q) {
			hits = append(hits, e)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].rec.Name != hits[j].rec.Name {
			return hits[i].rec.Name < hits[j].rec.Name
		}
		return hits[i].seq < hits[j].seq
	})
	return collect(hits, limit), nil
}

func (m *MemoryAttendees) MarkCheckedIn(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	e, ok := m.rows[id]
	if !ok || e.rec.CheckedIn || e.rec.Role != model.RoleAttendee {
		return false, nil
	}
	e.rec.CheckedIn = true
	e.rec.CheckedInAt = &at
	e.rec.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryAttendees) MarkCheckedOut(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	e, ok := m.rows[id]
	if !ok || !e.rec.CheckedIn || e.rec.Role != model.RoleAttendee {
		return false, nil
	}
	e.rec.CheckedIn = false
	e.rec.CheckedInAt = nil
	e.rec.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryAttendees) CountStats(_ context.Context) (repository.AttendeeCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c repository.AttendeeCounts
	if m.Err != nil {
		return c, m.Err
	}
	for _, e := range m.rows {
		c.Total++
		if e.rec.CheckedIn {
			c.CheckedIn++
		}
		switch e.rec.Role {
		case model.RoleAttendee:
			c.Attendees++
		case model.RoleStaff:
			c.Staff++
		}
	}
	return c, nil
}

func (m *MemoryAttendees) ListRecentCheckIns(_ context.Context, limit int) ([]model.Attendee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var hits []*entry
	for _, e := range m.rows {
		if e.rec.CheckedIn && e.rec.CheckedInAt != nil {
			hits = append(hits, e)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		ti, tj := *hits[i].rec.CheckedInAt, *hits[j].rec.CheckedInAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return hits[i].seq < hits[j].seq
	})
	return collect(hits, limit), nil
}

// All returns every stored record in insertion order.
func (m *MemoryAttendees) All() []model.Attendee {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []*entry
	for _, e := range m.rows {
		hits = append(hits, e)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].seq < hits[j].seq })
	return collect(hits, 0)
}

func collect(hits []*entry, limit int) []model.Attendee {
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]model.Attendee, len(hits))
	for i, e := range hits {
		out[i] = e.rec
	}
	return out
}
