// Package eventloop runs the work of one script context on a single goroutine.
//
// Inbound messages and timer callbacks are queued and executed one at a time, in
// the order they were posted, so handler bodies never interleave.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/tether/internal/logging"
)

var (
	// ErrClosed is returned when posting to a closed loop.
	ErrClosed = errors.New("eventloop: closed")

	// ErrRunning is returned when Run is called on a loop that is already running.
	ErrRunning = errors.New("eventloop: already running")
)

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used for recovered task panics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// Loop is a cooperative single-goroutine task queue.
type Loop struct {
	mu      sync.Mutex
	tasks   []func()
	timers  map[*Timer]struct{}
	closed  bool
	running bool

	wake   chan struct{}
	done   chan struct{}
	logger *slog.Logger
}

// New creates a loop. Nothing runs until Run is called.
func New(opts ...Option) *Loop {
	l := &Loop{
		timers: make(map[*Timer]struct{}),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues fn for execution on the loop goroutine.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Do queues fn and waits for it to finish. It must not be called from the loop
// goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// Run executes queued tasks until ctx is cancelled or Close is called.
// It returns nil after Close and ctx.Err() on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrRunning
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		fn, ok := l.next()
		if ok {
			l.exec(fn)
			continue
		}
		if l.isClosed() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || len(l.tasks) == 0 {
		return nil, false
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return fn, true
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", "error", fmt.Errorf("%v", r))
		}
	}()
	fn()
}

func (l *Loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close stops the loop. Pending tasks and timers are abandoned without running.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.tasks = nil
	timers := l.timers
	l.timers = make(map[*Timer]struct{})
	l.mu.Unlock()

	for t := range timers {
		t.Stop()
	}
	close(l.done)
}

// Done is closed when the loop is closed.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Timer is a pending AfterFunc callback.
type Timer struct {
	loop *Loop
	t    *time.Timer

	mu       sync.Mutex
	finished bool
}

// AfterFunc runs fn on the loop goroutine once d has elapsed.
// Stopping the timer cancels fn even if the deadline has passed and the callback
// is already queued.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	timer := &Timer{loop: l}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		timer.finished = true
		return timer
	}
	l.timers[timer] = struct{}{}
	l.mu.Unlock()

	timer.mu.Lock()
	timer.t = time.AfterFunc(d, func() {
		_ = l.Post(func() {
			if timer.claim() {
				fn()
			}
		})
	})
	timer.mu.Unlock()
	return timer
}

// claim marks the timer as fired. It reports false if the timer was stopped first.
func (t *Timer) claim() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return false
	}
	t.finished = true
	t.loop.forget(t)
	return true
}

// Stop cancels the timer. It reports whether the callback was prevented from running.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return false
	}
	t.finished = true
	if t.t != nil {
		t.t.Stop()
	}
	t.loop.forget(t)
	return true
}

func (l *Loop) forget(t *Timer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.timers, t)
}
