package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CBState is the position of a CircuitBreaker.
//
// Closed lets every call through. After FailureThreshold consecutive
// failures it opens and rejects calls for OpenTimeout. It then half-opens:
// exactly one probe call runs at a time, and SuccessThreshold successful
// probes close it again while a failed probe reopens it.
type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling through while the breaker is
// open, or half-open with a probe already in flight.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // default 5
	SuccessThreshold int           // default 2
	OpenTimeout      time.Duration // default 60s

	// IsFailure decides whether an error counts against the breaker.
	// Nil counts every non-nil error.
	IsFailure func(error) bool
	// OnStateChange is called under the breaker lock; keep it cheap.
	OnStateChange func(name string, from, to CBState)
}

// DefaultCBConfig returns the thresholds used for the mail relay.
func DefaultCBConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
	}
}

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     CBState
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 60 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expireOpen()
	return cb.state
}

// Execute runs fn unless the breaker rejects the call.
// fn's error is returned unchanged.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probe, err := cb.admit()
	if err != nil {
		return err
	}

	err = fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if probe {
		cb.probing = false
	}
	if err != nil && cb.counts(err) {
		cb.recordFailure()
	} else {
		cb.recordSuccess()
	}
	return err
}

func (cb *CircuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expireOpen()

	switch cb.state {
	case CBOpen:
		return false, ErrCircuitOpen
	case CBHalfOpen:
		if cb.probing {
			return false, ErrCircuitOpen
		}
		cb.probing = true
		return true, nil
	}
	return false, nil
}

func (cb *CircuitBreaker) counts(err error) bool {
	return cb.cfg.IsFailure == nil || cb.cfg.IsFailure(err)
}

// expireOpen moves an open breaker to half-open once OpenTimeout elapsed.
// Caller holds mu.
func (cb *CircuitBreaker) expireOpen() {
	if cb.state == CBOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.OpenTimeout {
		cb.setState(CBHalfOpen)
	}
}

func (cb *CircuitBreaker) recordFailure() {
	switch cb.state {
	case CBClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.setState(CBOpen)
		}
	case CBHalfOpen:
		cb.setState(CBOpen)
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	switch cb.state {
	case CBClosed:
		cb.failures = 0
	case CBHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.setState(CBClosed)
		}
	}
}

// setState resets the counters of the state being entered. Caller holds mu.
func (cb *CircuitBreaker) setState(to CBState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.failures, cb.successes = 0, 0
	if to == CBOpen {
		cb.openedAt = cb.now()
	}

	log.Warn().
		Str("breaker", cb.cfg.Name).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("circuit breaker state change")
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}
