// Package router dispatches inbound host messages to per-kind handlers.
//
// One Router is owned by each script context. Handlers decode their own payload
// and are individually fail-soft: an error or panic in one handler is logged and
// reported, and later messages keep flowing. Unknown kinds are ignored.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/tether/internal/logging"
	"github.com/aretw0/tether/pkg/domain"
)

// ErrClosed is reported for messages routed after Close.
var ErrClosed = errors.New("router: closed")

// KnownKinds lists every inbound message kind the host may send.
var KnownKinds = []domain.MessageKind{
	domain.MsgStateChange,
	domain.MsgMIDI,
	domain.MsgHydrationData,
	domain.MsgTableContent,
	domain.MsgError,
	domain.MsgLog,
	domain.MsgConsole,
}

// Handler processes the raw payload text of one message.
type Handler func(ctx context.Context, payload string) error

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithErrorHook registers a callback for handler failures.
func WithErrorHook(fn func(context.Context, domain.MessageKind, error)) Option {
	return func(r *Router) {
		r.onError = fn
	}
}

// Router is an explicit registry from message kind to handler.
type Router struct {
	mu       sync.RWMutex
	handlers map[domain.MessageKind]Handler
	closed   bool
	logger   *slog.Logger
	onError  func(context.Context, domain.MessageKind, error)
}

// New creates an empty router.
func New(opts ...Option) *Router {
	r := &Router{
		handlers: make(map[domain.MessageKind]Handler),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds a handler to kind, replacing any previous one.
func (r *Router) Register(kind domain.MessageKind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.handlers[kind] = h
}

// Kinds returns the registered kinds, sorted.
func (r *Router) Kinds() []domain.MessageKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]domain.MessageKind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Handles reports whether kind has a handler.
func (r *Router) Handles(kind domain.MessageKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[kind]
	return ok
}

// Route runs the handler for msg.Kind. It reports whether a handler ran; handler
// failures are contained here and never returned.
func (r *Router) Route(ctx context.Context, msg domain.InboundMessage) bool {
	r.mu.RLock()
	h, ok := r.handlers[msg.Kind]
	closed := r.closed
	r.mu.RUnlock()

	if closed {
		r.logger.Debug("message after close dropped", "kind", msg.Kind)
		return false
	}
	if !ok {
		r.logger.Debug("ignoring unknown message kind", "kind", msg.Kind)
		return false
	}

	if err := invoke(ctx, h, msg.Payload); err != nil {
		r.logger.Warn("inbound message handler failed", "kind", msg.Kind, "error", err)
		if r.onError != nil {
			r.onError(ctx, msg.Kind, err)
		}
	}
	return true
}

func invoke(ctx context.Context, h Handler, payload string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return h(ctx, payload)
}

// Close tears the registry down. Later registrations and messages are ignored.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.handlers = make(map[domain.MessageKind]Handler)
}
