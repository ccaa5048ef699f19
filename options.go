package tether

import (
	"log/slog"
	"time"

	"github.com/aretw0/tether/internal/logging"
	"github.com/aretw0/tether/pkg/console"
	"github.com/aretw0/tether/pkg/delegate"
	"github.com/aretw0/tether/pkg/dispatch"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/render"
)

type config struct {
	id            string
	logger        *slog.Logger
	hooks         domain.LifecycleHooks
	dispatchHooks dispatch.Hooks
	bridge        dispatch.Bridge
	devMode       bool
	topology      []string
	sink          delegate.BatchSink
	delegate      *delegate.Delegate
	consoleDelay  time.Duration
	scheduler     console.Scheduler
	onConsole     func(string)
	announceReady *bool
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:       logging.NewNop(),
		topology:     render.DefaultTopology,
		consoleDelay: console.DefaultClearDelay,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option configures a script context.
type Option func(*config)

// WithID overrides the generated context identifier.
func WithID(id string) Option {
	return func(c *config) {
		c.id = id
	}
}

// WithLogger sets a custom structured logger for the context.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) {
		c.hooks = hooks
	}
}

// WithDispatchHooks registers callbacks for outbound commands.
func WithDispatchHooks(hooks dispatch.Hooks) Option {
	return func(c *config) {
		c.dispatchHooks = hooks
	}
}

// WithBridge attaches the host bridge at construction.
func WithBridge(b dispatch.Bridge) Option {
	return func(c *config) {
		c.bridge = b
	}
}

// WithDevMode enables development-only commands (reload).
func WithDevMode(enabled bool) Option {
	return func(c *config) {
		c.devMode = enabled
	}
}

// WithTopology sets the state fields whose change forces a full render.
func WithTopology(fields ...string) Option {
	return func(c *config) {
		c.topology = append([]string(nil), fields...)
	}
}

// WithBatchSink sets where the headless delegate sends instruction batches.
func WithBatchSink(sink delegate.BatchSink) Option {
	return func(c *config) {
		c.sink = sink
	}
}

// WithDelegate replaces the headless context's render delegate.
func WithDelegate(d *delegate.Delegate) Option {
	return func(c *config) {
		c.delegate = d
	}
}

// WithConsoleDelay sets the UI console auto-clear delay.
func WithConsoleDelay(d time.Duration) Option {
	return func(c *config) {
		c.consoleDelay = d
	}
}

// WithScheduler replaces the loop-backed timer source of the UI console.
func WithScheduler(s console.Scheduler) Option {
	return func(c *config) {
		c.scheduler = s
	}
}

// WithReadyOnRun controls whether Run announces readiness to the host.
// UI contexts announce by default, headless contexts do not.
func WithReadyOnRun(enabled bool) Option {
	return func(c *config) {
		c.announceReady = &enabled
	}
}

// WithConsoleListener registers a callback receiving the full UI console text
// after every change, including the automatic clear.
func WithConsoleListener(fn func(text string)) Option {
	return func(c *config) {
		c.onConsole = fn
	}
}
