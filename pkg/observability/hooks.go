package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/tether/pkg/domain"
)

// LoggingHooks logs every lifecycle event at debug level, decode failures at warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRender: func(ctx context.Context, e *domain.RenderEvent) {
			logger.Debug("render", "context_id", e.ContextID, "decision", e.Decision, "patched", e.Patched, "error", e.Err)
		},
		OnHydrate: func(ctx context.Context, e *domain.HydrationEvent) {
			logger.Debug("hydrate", "context_id", e.ContextID, "applied", e.Applied, "error", e.Err)
		},
		OnMIDI: func(ctx context.Context, e *domain.MIDIEvent) {
			logger.Debug("midi", "context_id", e.ContextID, "accepted", e.Accepted, "rejected", e.Rejected)
		},
		OnDecodeErr: func(ctx context.Context, kind domain.MessageKind, err error) {
			logger.Warn("decode failed", "kind", kind, "error", err)
		},
	}
}

// Chain merges hooks so each event reaches every non-nil callback in order.
func Chain(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRender: func(ctx context.Context, e *domain.RenderEvent) {
			for _, h := range all {
				if h.OnRender != nil {
					h.OnRender(ctx, e)
				}
			}
		},
		OnHydrate: func(ctx context.Context, e *domain.HydrationEvent) {
			for _, h := range all {
				if h.OnHydrate != nil {
					h.OnHydrate(ctx, e)
				}
			}
		},
		OnMIDI: func(ctx context.Context, e *domain.MIDIEvent) {
			for _, h := range all {
				if h.OnMIDI != nil {
					h.OnMIDI(ctx, e)
				}
			}
		},
		OnDecodeErr: func(ctx context.Context, kind domain.MessageKind, err error) {
			for _, h := range all {
				if h.OnDecodeErr != nil {
					h.OnDecodeErr(ctx, kind, err)
				}
			}
		},
	}
}
