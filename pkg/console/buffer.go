// Package console implements the diagnostic text buffer shown by the UI context.
//
// Text accumulates until a fixed delay has passed since the last append, then the
// buffer clears itself once. Every append cancels the pending clear and schedules
// a fresh one, so a burst of updates produces a single clear.
package console

import (
	"strings"
	"sync"
	"time"
)

// DefaultClearDelay is how long text stays visible after the last append.
const DefaultClearDelay = 2 * time.Second

// Option configures a Buffer.
type Option func(*Buffer)

// WithDelay sets the auto-clear delay. Zero or negative disables auto-clear.
func WithDelay(d time.Duration) Option {
	return func(b *Buffer) {
		b.delay = d
	}
}

// WithScheduler sets the timer source.
func WithScheduler(s Scheduler) Option {
	return func(b *Buffer) {
		b.sched = s
	}
}

// WithOnChange registers a callback invoked with the full text after every change.
func WithOnChange(fn func(text string)) Option {
	return func(b *Buffer) {
		b.onChange = fn
	}
}

// Buffer is a debounced auto-clearing text accumulator.
type Buffer struct {
	mu       sync.Mutex
	text     strings.Builder
	delay    time.Duration
	sched    Scheduler
	pending  Timer
	gen      uint64
	closed   bool
	onChange func(string)
}

// New creates an empty buffer.
func New(opts ...Option) *Buffer {
	b := &Buffer{
		delay: DefaultClearDelay,
		sched: SystemScheduler{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Extend appends text and reschedules the single pending clear.
func (b *Buffer) Extend(text string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.text.WriteString(text)
	if b.pending != nil {
		b.pending.Stop()
		b.pending = nil
	}
	b.gen++
	if b.delay > 0 {
		gen := b.gen
		b.pending = b.sched.AfterFunc(b.delay, func() { b.expire(gen) })
	}
	current := b.text.String()
	b.mu.Unlock()

	b.notify(current)
}

// expire clears the buffer if gen still identifies the pending timer.
func (b *Buffer) expire(gen uint64) {
	b.mu.Lock()
	if b.closed || b.pending == nil || b.gen != gen {
		b.mu.Unlock()
		return
	}
	b.pending = nil
	b.text.Reset()
	b.mu.Unlock()

	b.notify("")
}

// Text returns the accumulated text.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text.String()
}

// Pending reports whether an auto-clear is scheduled.
func (b *Buffer) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending != nil
}

// Clear empties the buffer now and cancels the pending clear.
func (b *Buffer) Clear() {
	b.mu.Lock()
	if b.pending != nil {
		b.pending.Stop()
		b.pending = nil
	}
	b.gen++
	b.text.Reset()
	b.mu.Unlock()

	b.notify("")
}

// Close abandons the pending clear without side effects. Later appends are ignored.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.pending != nil {
		b.pending.Stop()
		b.pending = nil
	}
}

func (b *Buffer) notify(text string) {
	if b.onChange != nil {
		b.onChange(text)
	}
}
