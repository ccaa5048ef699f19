package delegate

import (
	"context"

	"github.com/aretw0/tether/pkg/domain"
)

// BatchSink receives the instruction batches produced by renders and patches.
type BatchSink interface {
	ApplyInstructions(ctx context.Context, batch []domain.Instruction) error
}

// SinkFunc adapts a function to BatchSink.
type SinkFunc func(ctx context.Context, batch []domain.Instruction) error

// ApplyInstructions calls f.
func (f SinkFunc) ApplyInstructions(ctx context.Context, batch []domain.Instruction) error {
	return f(ctx, batch)
}

type nopSink struct{}

func (nopSink) ApplyInstructions(context.Context, []domain.Instruction) error { return nil }
