package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CircuitBreaker guards an outbound dependency (the SMTP relay) so a dead
// relay fails jobs fast instead of holding worker goroutines on dial timeouts.
//
//	closed ──(FailureThreshold consecutive failures)──▶ open
//	open ──(OpenTimeout elapsed)──▶ half-open
//	half-open ──(SuccessThreshold successes)──▶ closed, any failure ──▶ open
type CircuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig
	now  func() time.Time

	mu        sync.Mutex
	state     CBState
	failures  int
	successes int
	openedAt  time.Time
}

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

// ErrCircuitOpen is returned by Execute while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

// DefaultCBConfig suits an SMTP relay: a handful of failed sends trips it and
// it probes again after a minute.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      time.Minute,
	}
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &CircuitBreaker{name: name, cfg: cfg, now: time.Now, state: CBClosed}
}

// State returns the current state, moving open to half-open once the timeout
// has elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentLocked()
}

func (cb *CircuitBreaker) currentLocked() CBState {
	if cb.state == CBOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.OpenTimeout {
		cb.setLocked(CBHalfOpen)
	}
	return cb.state
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb.State() == CBOpen {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.failures++
		switch cb.currentLocked() {
		case CBClosed:
			if cb.failures >= cb.cfg.FailureThreshold {
				cb.tripLocked()
			}
		case CBHalfOpen:
			cb.tripLocked()
		}
		return err
	}

	switch cb.currentLocked() {
	case CBClosed:
		cb.failures = 0
	case CBHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.setLocked(CBClosed)
		}
	}
	return nil
}

func (cb *CircuitBreaker) tripLocked() {
	cb.openedAt = cb.now()
	cb.setLocked(CBOpen)
}

func (cb *CircuitBreaker) setLocked(s CBState) {
	if cb.state == s {
		return
	}
	log.Warn().Str("breaker", cb.name).
		Str("from", cb.state.String()).
		Str("to", s.String()).
		Msg("circuit breaker state change")
	cb.state = s
	cb.failures = 0
	cb.successes = 0
}
