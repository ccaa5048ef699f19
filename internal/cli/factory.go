// Package cli holds the command implementations behind cmd/tether.
package cli

import (
	"log/slog"

	"github.com/aretw0/tether"
	"github.com/aretw0/tether/internal/config"
	"github.com/aretw0/tether/pkg/adapters/memory"
	"github.com/aretw0/tether/pkg/adapters/redis"
	"github.com/aretw0/tether/pkg/host"
	"github.com/aretw0/tether/pkg/observability"
	"github.com/aretw0/tether/pkg/persistence/middleware"
	"github.com/aretw0/tether/pkg/ports"
	"github.com/aretw0/tether/pkg/render"
	"github.com/aretw0/tether/pkg/synth"
)

// DefaultManifest declares the parameters of the tone graph, used when no manifest
// file is configured.
func DefaultManifest() host.Manifest {
	return host.Manifest{Parameters: []host.Parameter{
		{ParamID: "frequency", Name: "Frequency", Min: 20, Max: 2000, DefaultValue: 440},
		{ParamID: "gain", Name: "Gain", Min: 0, Max: 1, DefaultValue: 0.5},
	}}
}

// Factory resolves the configured graph factory by name.
func Factory(name string) (render.GraphFactory, error) {
	return synth.Factories.Get(name)
}

// ContextOptions returns the script-context options implied by cfg. Metrics may be nil.
func ContextOptions(cfg config.Config, logger *slog.Logger, metrics *observability.Metrics) []tether.Option {
	hooks := []tether.Option{}
	lifecycle := observability.LoggingHooks(logger)
	if metrics != nil {
		lifecycle = observability.Chain(lifecycle, metrics.LifecycleHooks())
		hooks = append(hooks, tether.WithDispatchHooks(metrics.DispatchHooks()))
	}
	return append(hooks,
		tether.WithLifecycleHooks(lifecycle),
		tether.WithTopology(cfg.Topology...),
		tether.WithConsoleDelay(cfg.ConsoleDelay),
	)
}

// NewHost builds the reference host from cfg. Redis backs the table and snapshot
// stores when an address is configured; otherwise they live in memory. Snapshots
// are encrypted when a key is configured. The returned cleanup closes the host
// and any store connection.
func NewHost(cfg config.Config, logger *slog.Logger, metrics *observability.Metrics) (*host.Host, func(), error) {
	factory, err := Factory(cfg.Host.Factory)
	if err != nil {
		return nil, nil, err
	}

	manifest := DefaultManifest()
	if cfg.Host.Manifest != "" {
		if manifest, err = host.LoadManifest(cfg.Host.Manifest); err != nil {
			return nil, nil, err
		}
	}

	opts := []host.Option{
		host.WithLogger(logger),
		host.WithDevMode(cfg.DevMode),
		host.WithContextOptions(ContextOptions(cfg, logger, metrics)...),
	}
	if cfg.Host.InstanceID != "" {
		opts = append(opts, host.WithInstanceID(cfg.Host.InstanceID))
	}

	var encrypt middleware.Middleware
	if cfg.Encryption.Enabled() {
		active, fallback, err := cfg.Encryption.Keys()
		if err != nil {
			return nil, nil, err
		}
		if encrypt, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}); err != nil {
			return nil, nil, err
		}
	}
	snapshots := func(s ports.SnapshotStore) ports.SnapshotStore {
		if encrypt == nil {
			return s
		}
		return encrypt(s)
	}

	closeStore := func() {}
	if cfg.Redis.Addr != "" {
		storeOpts := []redis.Option{redis.WithPrefix(cfg.Redis.Prefix)}
		if cfg.Redis.TTL > 0 {
			storeOpts = append(storeOpts, redis.WithTTL(cfg.Redis.TTL))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, storeOpts...)
		opts = append(opts,
			host.WithTableStore(store),
			host.WithSnapshotStore(snapshots(store)),
			host.WithLocker(redis.NewLocker(store.Client(), cfg.Redis.Prefix)),
		)
		closeStore = func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close redis store", "error", err)
			}
		}
		logger.Debug("using redis stores", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
	} else {
		store := memory.NewStore()
		opts = append(opts, host.WithTableStore(store), host.WithSnapshotStore(snapshots(store)))
	}

	h := host.New(factory, manifest, opts...)
	return h, func() {
		h.Close()
		closeStore()
	}, nil
}
