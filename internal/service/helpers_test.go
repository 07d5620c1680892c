package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"confcheckin/internal/model"
	"confcheckin/internal/repository/repotest"
	"confcheckin/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// ── Fakes ─────────────────────────────────────────────────────────────────────

type recordingJobs struct {
	mu   sync.Mutex
	jobs []worker.EmailJobPayload
	err  error
}

func (r *recordingJobs) EnqueueEmail(_ context.Context, p worker.EmailJobPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, p)
	return nil
}

func (r *recordingJobs) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.jobs))
	for i, j := range r.jobs {
		out[i] = j.Kind
	}
	return out
}

// steppingClock returns a strictly increasing time on every call.
type steppingClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newSteppingClock() *steppingClock {
	return &steppingClock{cur: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func seedAttendee(t *testing.T, repo *repotest.MemoryAttendees, name, email, role, token string) *model.Attendee {
	t.Helper()
	a := &model.Attendee{
		ID:      uuid.New(),
		Email:   email,
		Name:    name,
		Role:    role,
		QRToken: token,
	}
	require.NoError(t, repo.Create(context.Background(), a))
	return a
}

func requireInvariant(t *testing.T, repo *repotest.MemoryAttendees) {
	t.Helper()
	for _, a := range repo.All() {
		require.Equal(t, a.CheckedIn, a.CheckedInAt != nil, "record %s: checkedIn=%v checkedInAt=%v", a.Email, a.CheckedIn, a.CheckedInAt)
	}
}
