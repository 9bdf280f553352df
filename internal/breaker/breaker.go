// Package breaker provides per-dependency circuit breakers shared by all requests.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the current mode of a breaker
type State int

const (
	// Closed passes calls through
	Closed State = iota
	// Open rejects calls without attempting them
	Open
	// HalfOpen admits a single probe call
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON payloads
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrOpen is matched by every rejection from an open breaker.
var ErrOpen = errors.New("circuit open")

// OpenError is returned when a breaker denies permission.
type OpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("circuit %s open: retry after %s", e.Name, e.RetryAfter.Round(time.Millisecond))
	}
	return fmt.Sprintf("circuit %s open: probe in flight", e.Name)
}

// Is reports ErrOpen equivalence for errors.Is.
func (e *OpenError) Is(target error) bool {
	return target == ErrOpen
}

// Clock abstracts time for tests
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Settings configures a breaker
type Settings struct {
	Name         string
	Threshold    int
	ResetTimeout time.Duration
	Clock        Clock
	// OnStateChange is called outside the lock after every transition.
	OnStateChange func(name string, from, to State)
}

// Snapshot is a point-in-time view of a breaker
type Snapshot struct {
	Name         string        `json:"name"`
	State        State         `json:"state"`
	Failures     int           `json:"failures"`
	Threshold    int           `json:"threshold"`
	ResetTimeout time.Duration `json:"reset_timeout"`
	LastFailure  time.Time     `json:"last_failure,omitempty"`
}

// Breaker guards one external dependency. All methods are safe for concurrent use.
type Breaker struct {
	name         string
	threshold    int
	resetTimeout time.Duration
	clock        Clock
	onChange     func(name string, from, to State)

	mu            sync.Mutex
	state         State
	failures      int
	lastFailure   time.Time
	probeInFlight bool
	generation    uint64
}

// New creates a closed breaker
func New(s Settings) *Breaker {
	if s.Threshold < 1 {
		s.Threshold = 1
	}
	if s.Clock == nil {
		s.Clock = systemClock{}
	}
	return &Breaker{
		name:         s.Name,
		threshold:    s.Threshold,
		resetTimeout: s.ResetTimeout,
		clock:        s.Clock,
		onChange:     s.OnStateChange,
	}
}

// Name returns the dependency name
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, applying the OPEN to HALF_OPEN timeout.
func (b *Breaker) State() State {
	b.mu.Lock()
	from, to := b.refresh()
	state := b.state
	b.mu.Unlock()
	b.notify(from, to)
	return state
}

// Permit is the permission for one guarded call. Exactly one of Success,
// Failure or Release should be called on it. A permit only answers for the
// generation it was issued in: once the breaker has changed state, or another
// probe has been admitted, its outcome is ignored.
type Permit struct {
	b   *Breaker
	gen uint64
}

// Success records a successful call.
func (p Permit) Success() {
	if p.b != nil {
		p.b.success(p.gen)
	}
}

// Failure records a failed call.
func (p Permit) Failure() {
	if p.b != nil {
		p.b.failure(p.gen)
	}
}

// Release gives back the permission without recording an outcome.
func (p Permit) Release() {
	if p.b != nil {
		p.b.release(p.gen)
	}
}

// Allow requests permission for one guarded call. On success the caller
// must report the outcome through the returned Permit.
func (b *Breaker) Allow() (Permit, error) {
	b.mu.Lock()
	from, to := b.refresh()

	var err error
	switch b.state {
	case Open:
		retry := b.resetTimeout - b.clock.Now().Sub(b.lastFailure)
		err = &OpenError{Name: b.name, RetryAfter: retry}
	case HalfOpen:
		if b.probeInFlight {
			err = &OpenError{Name: b.name}
		} else {
			b.probeInFlight = true
			b.generation++
		}
	}
	permit := Permit{b: b, gen: b.generation}
	b.mu.Unlock()

	b.notify(from, to)
	if err != nil {
		return Permit{}, err
	}
	return permit, nil
}

func (b *Breaker) success(gen uint64) {
	b.mu.Lock()
	if gen != b.generation {
		b.mu.Unlock()
		return
	}
	from := b.state
	switch b.state {
	case HalfOpen:
		b.setState(Closed)
		b.failures = 0
	case Closed:
		b.failures = 0
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

func (b *Breaker) failure(gen uint64) {
	b.mu.Lock()
	if gen != b.generation {
		b.mu.Unlock()
		return
	}
	from := b.state
	b.lastFailure = b.clock.Now()

	switch b.state {
	case HalfOpen:
		b.setState(Open)
		b.failures = 0
	case Closed:
		b.failures++
		if b.failures >= b.threshold {
			b.setState(Open)
		}
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

func (b *Breaker) release(gen uint64) {
	b.mu.Lock()
	if gen == b.generation && b.state == HalfOpen {
		b.probeInFlight = false
	}
	b.mu.Unlock()
}

// Execute runs fn under the breaker. Calls abandoned because ctx ended are
// released rather than counted as failures.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	permit, err := b.Allow()
	if err != nil {
		return err
	}

	err = fn(ctx)
	switch {
	case err == nil:
		permit.Success()
	case ctx.Err() != nil:
		permit.Release()
	default:
		permit.Failure()
	}
	return err
}

// Snapshot returns the current view of the breaker
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	from, to := b.refresh()
	snap := Snapshot{
		Name:         b.name,
		State:        b.state,
		Failures:     b.failures,
		Threshold:    b.threshold,
		ResetTimeout: b.resetTimeout,
		LastFailure:  b.lastFailure,
	}
	b.mu.Unlock()

	b.notify(from, to)
	return snap
}

// refresh moves OPEN to HALF_OPEN once the reset timeout has elapsed. Caller holds mu.
func (b *Breaker) refresh() (State, State) {
	if b.state == Open && b.clock.Now().Sub(b.lastFailure) >= b.resetTimeout {
		b.setState(HalfOpen)
		return Open, HalfOpen
	}
	return b.state, b.state
}

// setState enters a new state and starts a new generation, invalidating every
// outstanding permit. Caller holds mu.
func (b *Breaker) setState(s State) {
	b.state = s
	b.probeInFlight = false
	b.generation++
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}
