package scanner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrStopped is returned by Run when called twice.
var ErrStopped = errors.New("scanner: loop already ran")

// DuplicateHint is the Scanning message shown when the badge just handled is
// scanned again.
const DuplicateHint = "same badge as last scan, dismiss to scan it again"

// Submitter sends one decoded token to the check-in backend.
type Submitter interface {
	Submit(ctx context.Context, token string) (Result, error)
}

type event interface{}

type frameEvent struct{ payload string }

type dismissEvent struct{}

type resultEvent struct {
	gen    uint64
	token  string
	result Result
	err    error
}

type resetEvent struct{ gen uint64 }

// Loop is the scan station control loop. All state lives on the goroutine
// running Run; Frame and Dismiss only post events to it.
//
// Frames are ignored unless the loop is Scanning, and a frame equal to the
// last submitted payload is ignored until Dismiss; the first such repeat
// publishes DuplicateHint. At most one submission is in flight: Dismiss during
// Submitting cancels the request and shows Scanning, but frames are dropped
// until the cancelled call has returned. Every Dismiss or reset bumps a
// generation counter, and results or timers carrying an older generation are
// dropped.
type Loop struct {
	submitter Submitter
	delays    Delays
	observer  func(Snapshot)
	after     func(d time.Duration, f func()) (stop func() bool)

	events chan event
	done   chan struct{}
	once   sync.Once

	mu   sync.RWMutex
	snap Snapshot
}

type Option func(*Loop)

func WithDelays(d Delays) Option { return func(l *Loop) { l.delays = d } }

// WithObserver registers fn to receive every state change. fn runs on the
// loop goroutine and must not block.
func WithObserver(fn func(Snapshot)) Option { return func(l *Loop) { l.observer = fn } }

func NewLoop(sub Submitter, opts ...Option) *Loop {
	l := &Loop{
		submitter: sub,
		delays:    DefaultDelays(),
		after: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
		events: make(chan event, 16),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Frame offers one decoded payload from the camera or wedge scanner.
func (l *Loop) Frame(payload string) { l.post(frameEvent{payload: payload}) }

// Dismiss clears the current result and the duplicate guard immediately.
func (l *Loop) Dismiss() { l.post(dismissEvent{}) }

// Snapshot returns the current observable state.
func (l *Loop) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

func (l *Loop) post(ev event) {
	select {
	case l.events <- ev:
	case <-l.done:
	}
}

// Run processes events until ctx is cancelled. It may be called once.
func (l *Loop) Run(ctx context.Context) error {
	started := false
	l.once.Do(func() { started = true })
	if !started {
		return ErrStopped
	}
	defer close(l.done)

	var (
		state       = Scanning
		token       string
		lastPayload string
		hinted      bool
		gen         uint64
		stopTimer   func() bool
		// non-nil while a Submit call has not returned, even after Dismiss
		cancelSubmit context.CancelFunc
	)

	cancelTimer := func() {
		if stopTimer != nil {
			stopTimer()
			stopTimer = nil
		}
	}
	defer cancelTimer()
	defer func() {
		if cancelSubmit != nil {
			cancelSubmit()
		}
	}()

	publish := func(user User, msg string) {
		s := Snapshot{State: state, Token: token, User: user, Message: msg}
		l.mu.Lock()
		l.snap = s
		l.mu.Unlock()
		if l.observer != nil {
			l.observer(s)
		}
	}
	publish(User{}, "")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-l.events:
			switch ev := ev.(type) {
			case frameEvent:
				payload := strings.TrimSpace(ev.payload)
				if state != Scanning || payload == "" || cancelSubmit != nil {
					continue
				}
				if payload == lastPayload {
					if !hinted {
						hinted = true
						publish(User{}, DuplicateHint)
					}
					continue
				}
				gen++
				state, token, lastPayload, hinted = Submitting, payload, payload, false
				publish(User{}, "")
				subCtx, cancel := context.WithCancel(ctx)
				cancelSubmit = cancel
				go l.submit(subCtx, gen, payload)

			case resultEvent:
				// the one outstanding call has returned, stale or not
				if cancelSubmit != nil {
					cancelSubmit()
					cancelSubmit = nil
				}
				if ev.gen != gen || ev.token != token || state != Submitting {
					log.Debug().Str("token", ev.token).Msg("scanner: dropping stale result")
					continue
				}
				res := ev.result
				if ev.err != nil {
					res = Result{Outcome: Error, Message: ev.err.Error()}
				}
				if !res.Outcome.Terminal() {
					res.Outcome = Error
				}
				state = res.Outcome
				resetGen := gen
				stopTimer = l.after(l.delays.For(state), func() { l.post(resetEvent{gen: resetGen}) })
				publish(res.User, res.Message)

			case resetEvent:
				if ev.gen != gen || !state.Terminal() {
					continue
				}
				stopTimer = nil
				gen++
				state, token = Scanning, ""
				publish(User{}, "")

			case dismissEvent:
				cancelTimer()
				if cancelSubmit != nil {
					cancelSubmit()
				}
				gen++
				state, token, lastPayload, hinted = Scanning, "", "", false
				publish(User{}, "")
			}
		}
	}
}

func (l *Loop) submit(ctx context.Context, gen uint64, token string) {
	res, err := l.submitter.Submit(ctx, token)
	l.post(resultEvent{gen: gen, token: token, result: res, err: err})
}
