package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/aretw0/tether/pkg/domain"
)

// Deliverer accepts inbound notifications, typically a script context.
type Deliverer interface {
	DeliverWait(ctx context.Context, msg domain.InboundMessage) error
}

// Pump reads notifications until EOF or ctx is done and delivers each one in order,
// waiting for it to be handled before reading the next. Malformed lines are logged
// and skipped. It returns the number of delivered notifications.
func Pump(ctx context.Context, r *Reader, d Deliverer, logger *slog.Logger) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		msg, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			if errors.Is(err, ErrInvalidFrame) || errors.Is(err, ErrInvalidUTF8) {
				logger.Warn("skipping malformed line", "error", err)
				continue
			}
			return n, err
		}
		if err := d.DeliverWait(ctx, msg); err != nil {
			return n, err
		}
		n++
	}
}
