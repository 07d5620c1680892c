package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Fakes ─────────────────────────────────────────────────────────────────────

type reply struct {
	res Result
	err error
}

type call struct {
	ctx   context.Context
	token string
	reply chan reply
}

// fakeSubmitter hands every call to the test, which answers when it wants.
// With ignoreCancel set a call only returns once answered, like a request
// already on the wire.
type fakeSubmitter struct {
	calls        chan call
	ignoreCancel bool
}

func (f *fakeSubmitter) Submit(ctx context.Context, token string) (Result, error) {
	c := call{ctx: ctx, token: token, reply: make(chan reply, 1)}
	f.calls <- c
	if f.ignoreCancel {
		r := <-c.reply
		return r.res, r.err
	}
	select {
	case r := <-c.reply:
		return r.res, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (ft *fakeTimers) after(d time.Duration, f func()) func() bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	ft.timers = append(ft.timers, t)
	return func() bool {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		was := !t.stopped
		t.stopped = true
		return was
	}
}

func (ft *fakeTimers) last(t *testing.T) *fakeTimer {
	t.Helper()
	ft.mu.Lock()
	defer ft.mu.Unlock()
	require.NotEmpty(t, ft.timers)
	return ft.timers[len(ft.timers)-1]
}

// fire runs the timer callback even if stopped, like a timer that raced Stop.
func (ft *fakeTimers) fire(tm *fakeTimer) { tm.f() }

// ── Harness ───────────────────────────────────────────────────────────────────

type harness struct {
	loop   *Loop
	sub    *fakeSubmitter
	timers *fakeTimers
	snaps  chan Snapshot
}

func startLoop(t *testing.T) *harness {
	t.Helper()
	return startLoopWith(t, &fakeSubmitter{calls: make(chan call, 8)})
}

func startLoopWith(t *testing.T, sub *fakeSubmitter) *harness {
	t.Helper()
	h := &harness{
		sub:    sub,
		timers: &fakeTimers{},
		snaps:  make(chan Snapshot, 64),
	}
	h.loop = NewLoop(h.sub, WithObserver(func(s Snapshot) { h.snaps <- s }))
	h.loop.after = h.timers.after

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	h.expect(t, Scanning)
	return h
}

func (h *harness) expect(t *testing.T, want State) Snapshot {
	t.Helper()
	select {
	case s := <-h.snaps:
		require.Equal(t, want, s.State, "snapshot %+v", s)
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", want)
		return Snapshot{}
	}
}

func (h *harness) nextCall(t *testing.T) call {
	t.Helper()
	select {
	case c := <-h.sub.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a submission")
		return call{}
	}
}

// scanUntilSubmitting keeps presenting payload, like a camera holding a badge,
// until the loop accepts it.
func (h *harness) scanUntilSubmitting(t *testing.T, payload string) {
	t.Helper()
	require.Eventually(t, func() bool {
		h.loop.Frame(payload)
		return h.loop.Snapshot().State == Submitting
	}, 2*time.Second, 10*time.Millisecond)
	h.expect(t, Submitting)
}

func (h *harness) noSnapshot(t *testing.T) {
	t.Helper()
	select {
	case s := <-h.snaps:
		t.Fatalf("unexpected state change %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func (h *harness) noCall(t *testing.T) {
	t.Helper()
	select {
	case c := <-h.sub.calls:
		t.Fatalf("unexpected submission of %q", c.token)
	case <-time.After(50 * time.Millisecond):
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestLoop_SuccessThenAutoReset(t *testing.T) {
	h := startLoop(t)

	h.loop.Frame("SC2026-ATT-001")
	s := h.expect(t, Submitting)
	assert.Equal(t, "SC2026-ATT-001", s.Token)

	// frames while a submission is in flight are ignored
	h.loop.Frame("SC2026-ATT-002")
	h.loop.Frame("SC2026-ATT-001")
	c := h.nextCall(t)
	assert.Equal(t, "SC2026-ATT-001", c.token)
	h.noCall(t)

	c.reply <- reply{res: Result{Outcome: Success, User: User{Name: "Ada", Email: "ada@example.com"}}}
	s = h.expect(t, Success)
	assert.Equal(t, "Ada", s.User.Name)

	tm := h.timers.last(t)
	assert.Equal(t, 3*time.Second, tm.d)

	// frames while the result is on screen are ignored
	h.loop.Frame("SC2026-ATT-003")
	h.noCall(t)

	h.timers.fire(tm)
	s = h.expect(t, Scanning)
	assert.Empty(t, s.Token)
	assert.Equal(t, Scanning, h.loop.Snapshot().State)
}

func TestLoop_SamePayloadIsSuppressedUntilDismiss(t *testing.T) {
	h := startLoop(t)

	h.loop.Frame("SC2026-ATT-001")
	h.expect(t, Submitting)
	h.nextCall(t).reply <- reply{res: Result{Outcome: AlreadyCheckedIn, User: User{Name: "Ada"}}}
	h.expect(t, AlreadyCheckedIn)
	assert.Equal(t, 2500*time.Millisecond, h.timers.last(t).d)

	h.timers.fire(h.timers.last(t))
	h.expect(t, Scanning)

	// the badge is still in front of the camera
	h.loop.Frame("SC2026-ATT-001")
	s := h.expect(t, Scanning)
	assert.Equal(t, DuplicateHint, s.Message)
	h.noCall(t)

	// a different badge goes through
	h.loop.Frame("SC2026-ATT-002")
	h.expect(t, Submitting)
	h.nextCall(t).reply <- reply{res: Result{Outcome: Success}}
	h.expect(t, Success)

	h.loop.Dismiss()
	h.expect(t, Scanning)

	// a deliberate rescan after dismiss is allowed
	h.loop.Frame("SC2026-ATT-002")
	h.expect(t, Submitting)
	assert.Equal(t, "SC2026-ATT-002", h.nextCall(t).token)
}

func TestLoop_StaleResponseAfterDismissIsDropped(t *testing.T) {
	h := startLoop(t)

	h.loop.Frame("SC2026-ATT-001")
	h.expect(t, Submitting)
	slow := h.nextCall(t)

	h.loop.Dismiss()
	h.expect(t, Scanning)

	// dismiss cancels the outstanding request
	select {
	case <-slow.ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight submission was not cancelled")
	}

	h.scanUntilSubmitting(t, "SC2026-ATT-002")
	fresh := h.nextCall(t)

	// an answer to the cancelled request must not clobber the second
	slow.reply <- reply{res: Result{Outcome: Success, User: User{Name: "Stale"}}}
	fresh.reply <- reply{res: Result{Outcome: Success, User: User{Name: "Fresh"}}}

	s := h.expect(t, Success)
	assert.Equal(t, "Fresh", s.User.Name)
	assert.Equal(t, "SC2026-ATT-002", s.Token)
}

func TestLoop_DismissDuringSubmitKeepsOneRequestInFlight(t *testing.T) {
	h := startLoopWith(t, &fakeSubmitter{calls: make(chan call, 8), ignoreCancel: true})

	h.loop.Frame("SC2026-ATT-001")
	h.expect(t, Submitting)
	first := h.nextCall(t)

	h.loop.Dismiss()
	h.expect(t, Scanning)

	// the first call has not returned, so nothing new may start
	h.loop.Frame("SC2026-ATT-001")
	h.loop.Frame("SC2026-ATT-002")
	h.noCall(t)
	h.noSnapshot(t)
	assert.Error(t, first.ctx.Err(), "dismiss cancels the request context")

	// its late answer is dropped and frees the slot
	first.reply <- reply{res: Result{Outcome: Success, User: User{Name: "Stale"}}}
	h.scanUntilSubmitting(t, "SC2026-ATT-001")
	second := h.nextCall(t)
	assert.Equal(t, "SC2026-ATT-001", second.token)
	h.noCall(t)

	second.reply <- reply{res: Result{Outcome: Success, User: User{Name: "Ada"}}}
	s := h.expect(t, Success)
	assert.Equal(t, "Ada", s.User.Name)
}

func TestLoop_RepeatAfterErrorShowsHintOnce(t *testing.T) {
	h := startLoop(t)

	h.loop.Frame("SC2026-ATT-001")
	h.expect(t, Submitting)
	h.nextCall(t).reply <- reply{err: errors.New("network error: timeout")}
	h.expect(t, Error)
	h.timers.fire(h.timers.last(t))
	s := h.expect(t, Scanning)
	assert.Empty(t, s.Message)

	h.loop.Frame("SC2026-ATT-001")
	s = h.expect(t, Scanning)
	assert.Equal(t, DuplicateHint, s.Message)
	assert.Equal(t, DuplicateHint, h.loop.Snapshot().Message)

	// a camera keeps reporting the same frame; the hint is not repeated
	h.loop.Frame("SC2026-ATT-001")
	h.loop.Frame("SC2026-ATT-001")
	h.noSnapshot(t)
	h.noCall(t)

	h.loop.Dismiss()
	s = h.expect(t, Scanning)
	assert.Empty(t, s.Message)
	h.loop.Frame("SC2026-ATT-001")
	h.expect(t, Submitting)
	assert.Equal(t, "SC2026-ATT-001", h.nextCall(t).token)
}

func TestLoop_TransportErrorShowsErrorWithoutRetry(t *testing.T) {
	h := startLoop(t)

	h.loop.Frame("SC2026-ATT-001")
	h.expect(t, Submitting)
	h.nextCall(t).reply <- reply{err: errors.New("network error: connection refused")}

	s := h.expect(t, Error)
	assert.Contains(t, s.Message, "connection refused")
	assert.Equal(t, 2500*time.Millisecond, h.timers.last(t).d)
	h.noCall(t)

	h.timers.fire(h.timers.last(t))
	h.expect(t, Scanning)
	h.noCall(t)
}

func TestLoop_DismissCancelsPendingReset(t *testing.T) {
	h := startLoop(t)

	h.loop.Frame("SC2026-ATT-001")
	h.expect(t, Submitting)
	h.nextCall(t).reply <- reply{res: Result{Outcome: Success}}
	h.expect(t, Success)
	tm := h.timers.last(t)

	h.loop.Dismiss()
	h.expect(t, Scanning)

	h.loop.Frame("SC2026-ATT-002")
	h.expect(t, Submitting)
	h.nextCall(t) // left unanswered

	// the old reset timer fires late and must not interrupt the new submission
	h.timers.fire(tm)
	h.noSnapshot(t)
	assert.Equal(t, Submitting, h.loop.Snapshot().State)

	h.timers.mu.Lock()
	assert.True(t, tm.stopped)
	h.timers.mu.Unlock()
}

func TestLoop_BlankFramesAreIgnored(t *testing.T) {
	h := startLoop(t)
	h.loop.Frame("")
	h.loop.Frame("   ")
	h.noCall(t)
	assert.Equal(t, Scanning, h.loop.Snapshot().State)
}

func TestLoop_RunTwice(t *testing.T) {
	h := startLoop(t)
	assert.ErrorIs(t, h.loop.Run(context.Background()), ErrStopped)
}

func TestDelays(t *testing.T) {
	d := DefaultDelays()
	assert.Equal(t, 3*time.Second, d.For(Success))
	assert.Equal(t, 2500*time.Millisecond, d.For(AlreadyCheckedIn))
	assert.Equal(t, 2500*time.Millisecond, d.For(Error))
	assert.True(t, Success.Terminal())
	assert.False(t, Submitting.Terminal())
}
