package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

var (
	// ErrCancelled is returned by Push after the subscriber went away.
	ErrCancelled = errors.New("event channel cancelled")
	// ErrClosed is returned by Push after a terminal event or Close.
	ErrClosed = errors.New("event channel closed")
)

// Channel is an isolated, ordered event queue owned by a single request.
// Push never blocks; Next blocks until an event is available.
type Channel struct {
	mu        sync.Mutex
	queue     []Event
	seq       uint64
	closed    bool // no more pushes accepted
	cancelled bool
	finished  bool // terminal event drained, or closed and empty

	notify chan struct{}
	done   chan struct{}
	now    func() time.Time
}

// NewChannel creates an empty channel for one request
func NewChannel() *Channel {
	return &Channel{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		now:    time.Now,
	}
}

// Push appends an event. Terminal kinds close the channel to further pushes.
func (c *Channel) Push(kind Kind, payload any) error {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return ErrCancelled
	}
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	c.seq++
	c.queue = append(c.queue, Event{Seq: c.seq, Kind: kind, Time: c.now(), Payload: payload})
	if kind.Terminal() {
		c.closed = true
	}
	c.mu.Unlock()

	c.wake()
	return nil
}

// Next returns the next event in push order. It returns io.EOF once the
// terminal event has been returned or the channel was closed and drained.
func (c *Channel) Next(ctx context.Context) (Event, error) {
	for {
		c.mu.Lock()
		if c.finished {
			c.mu.Unlock()
			return Event{}, io.EOF
		}
		if len(c.queue) > 0 {
			ev := c.queue[0]
			c.queue[0] = Event{}
			c.queue = c.queue[1:]
			if ev.Kind.Terminal() || (c.closed && len(c.queue) == 0) {
				c.finished = true
			}
			c.mu.Unlock()
			return ev, nil
		}
		if c.closed || c.cancelled {
			c.finished = true
			c.mu.Unlock()
			return Event{}, io.EOF
		}
		c.mu.Unlock()

		select {
		case <-c.notify:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// Drain calls fn for every event until the stream ends. It returns nil on a
// normal end, or the first error from fn or ctx.
func (c *Channel) Drain(ctx context.Context, fn func(Event) error) error {
	for {
		ev, err := c.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

// Cancel marks the subscriber as gone. Later pushes are no-ops and Done is closed.
func (c *Channel) Cancel() {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	c.queue = nil
	close(c.done)
	c.mu.Unlock()

	c.wake()
}

// Done is closed when the channel is cancelled.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close ends the stream without a terminal event. Queued events are still delivered.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.wake()
}

// Cancelled reports whether Cancel was called
func (c *Channel) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

func (c *Channel) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}
