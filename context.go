package tether

import (
	"context"
	"log/slog"

	"github.com/aretw0/tether/internal/eventloop"
	"github.com/aretw0/tether/pkg/dispatch"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/router"
	"github.com/google/uuid"
)

// Role names the kind of script context.
type Role string

const (
	RoleHeadless Role = "headless"
	RoleUI       Role = "ui"
)

// Context is the part shared by every script context: an event loop, an inbound
// router and an outbound dispatcher.
type Context struct {
	id         string
	role       Role
	loop       *eventloop.Loop
	router     *router.Router
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	ready      bool
	onClose    []func()
}

func newContext(role Role, cfg *config) *Context {
	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}
	logger := cfg.logger.With("context", string(role), "context_id", id)

	hooks := cfg.hooks
	c := &Context{
		id:     id,
		role:   role,
		logger: logger,
		hooks:  hooks,
		loop:   eventloop.New(eventloop.WithLogger(logger)),
		router: router.New(
			router.WithLogger(logger),
			router.WithErrorHook(func(ctx context.Context, kind domain.MessageKind, err error) {
				if hooks.OnDecodeErr != nil {
					hooks.OnDecodeErr(ctx, kind, err)
				}
			}),
		),
		dispatcher: dispatch.New(
			dispatch.WithLogger(logger),
			dispatch.WithDevMode(cfg.devMode),
			dispatch.WithHooks(cfg.dispatchHooks),
			dispatch.WithBridge(cfg.bridge),
		),
	}
	c.ready = role == RoleUI
	if cfg.announceReady != nil {
		c.ready = *cfg.announceReady
	}
	return c
}

// ID returns the context instance identifier.
func (c *Context) ID() string {
	return c.id
}

// Role reports whether this is a headless or UI context.
func (c *Context) Role() Role {
	return c.role
}

// Dispatcher returns the outbound command dispatcher.
func (c *Context) Dispatcher() *dispatch.Dispatcher {
	return c.dispatcher
}

// Router returns the inbound router, mainly for introspection of handled kinds.
func (c *Context) Router() *router.Router {
	return c.router
}

// Attach installs the host bridge.
func (c *Context) Attach(b dispatch.Bridge) {
	c.dispatcher.Attach(b)
}

// Deliver queues an inbound message for processing on the context's loop.
func (c *Context) Deliver(ctx context.Context, msg domain.InboundMessage) error {
	return c.loop.Post(func() {
		c.router.Route(ctx, msg)
	})
}

// DeliverWait is Deliver followed by waiting until the message has been handled.
func (c *Context) DeliverWait(ctx context.Context, msg domain.InboundMessage) error {
	return c.loop.Do(ctx, func() {
		c.router.Route(ctx, msg)
	})
}

// Do runs fn on the context's loop and waits for it.
func (c *Context) Do(ctx context.Context, fn func()) error {
	return c.loop.Do(ctx, fn)
}

// Run processes messages until ctx is cancelled or Close is called.
func (c *Context) Run(ctx context.Context) error {
	if c.ready {
		if err := c.loop.Post(func() { c.dispatcher.Ready() }); err != nil {
			return err
		}
	}
	c.logger.Debug("context running")
	return c.loop.Run(ctx)
}

// Close tears the context down: pending messages and timers are abandoned, the
// router is emptied and the bridge detached.
func (c *Context) Close() {
	c.loop.Close()
	c.router.Close()
	for _, fn := range c.onClose {
		fn()
	}
	c.dispatcher.Detach()
	c.logger.Debug("context closed")
}
