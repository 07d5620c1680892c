package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errRelay = errors.New("relay down")

func newTestBreaker() (*CircuitBreaker, *time.Time) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	})
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker()
	fail := func() error { return errRelay }

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(fail), errRelay)
	}
	assert.Equal(t, CBOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open breaker must not call through")
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker()
	fail := func() error { return errRelay }
	ok := func() error { return nil }

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	_ = cb.Execute(ok)
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, now := newTestBreaker()
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errRelay })
	}
	assert.Equal(t, CBOpen, cb.State())

	*now = now.Add(31 * time.Second)
	assert.Equal(t, CBHalfOpen, cb.State())

	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBHalfOpen, cb.State())
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	cb, now := newTestBreaker()
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errRelay })
	}
	*now = now.Add(31 * time.Second)

	assert.ErrorIs(t, cb.Execute(func() error { return errRelay }), errRelay)
	assert.Equal(t, CBOpen, cb.State())
}

func TestCBState_String(t *testing.T) {
	assert.Equal(t, "closed", CBClosed.String())
	assert.Equal(t, "open", CBOpen.String())
	assert.Equal(t, "half-open", CBHalfOpen.String())
	assert.Equal(t, "unknown", CBState(42).String())
}

func TestCircuitBreaker_HalfOpenAdmitsOneProbeAtATime(t *testing.T) {
	cb, now := newTestBreaker()
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errRelay })
	}
	*now = now.Add(31 * time.Second)

	var inner error
	err := cb.Execute(func() error {
		inner = cb.Execute(func() error { return nil })
		return nil
	})
	assert.NoError(t, err)
	assert.ErrorIs(t, inner, ErrCircuitOpen, "second caller is rejected while the probe runs")
}

func TestCircuitBreaker_IgnoredErrorsDoNotTrip(t *testing.T) {
	errRecipient := errors.New("550 mailbox unavailable")
	var changes []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "smtp",
		FailureThreshold: 2,
		IsFailure:        func(err error) bool { return !errors.Is(err, errRecipient) },
		OnStateChange: func(name string, from, to CBState) {
			changes = append(changes, name+":"+from.String()+">"+to.String())
		},
	})

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errRecipient }), errRecipient)
	}
	assert.Equal(t, CBClosed, cb.State())
	assert.Empty(t, changes)

	_ = cb.Execute(func() error { return errRelay })
	_ = cb.Execute(func() error { return errRelay })
	assert.Equal(t, CBOpen, cb.State())
	assert.Equal(t, []string{"smtp:closed>open"}, changes)
}
