package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/tether"
	"github.com/aretw0/tether/internal/config"
	"github.com/aretw0/tether/pkg/delegate"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/observability"
	"github.com/aretw0/tether/pkg/transport"
)

// CmdRenderBatch is the command an attached headless context posts for every
// instruction batch, since the native runtime lives in the parent process.
const CmdRenderBatch = "renderBatch"

// AttachOptions configures an attached context process.
type AttachOptions struct {
	Role    tether.Role
	Config  config.Config
	In      io.Reader
	Out     io.Writer
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Attach runs one script context over JSON lines: notifications are read from In,
// commands are written to Out. It returns when In is exhausted or ctx is done,
// with the number of notifications handled.
func Attach(ctx context.Context, opts AttachOptions) (int, error) {
	logger := opts.Logger
	enc := transport.NewEncoder(opts.Out)

	ctxOpts := append(ContextOptions(opts.Config, logger, opts.Metrics),
		tether.WithLogger(logger),
		tether.WithDevMode(opts.Config.DevMode),
		tether.WithBridge(enc),
	)

	var c *tether.Context
	switch opts.Role {
	case tether.RoleUI:
		ui := tether.NewUI(append(ctxOpts, tether.WithConsoleListener(func(text string) {
			if text != "" {
				logger.Info("console", "text", text)
			}
		}))...)
		ui.HostState.Subscribe(func(s domain.HostState) {
			logger.Debug("host state", "sample_rate", s.SampleRate, "fields", len(s.Fields))
		})
		c = ui.Context
	case tether.RoleHeadless:
		factory, err := Factory(opts.Config.Host.Factory)
		if err != nil {
			return 0, err
		}
		sink := delegate.SinkFunc(func(_ context.Context, batch []domain.Instruction) error {
			data, err := json.Marshal(batch)
			if err != nil {
				return err
			}
			return enc.PostNativeMessage(CmdRenderBatch, data)
		})
		c = tether.NewHeadless(factory, append(ctxOpts, tether.WithBatchSink(sink))...).Context
	default:
		return 0, fmt.Errorf("unknown role %q", opts.Role)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(runCtx) }()

	n, err := transport.Pump(runCtx, transport.NewReader(opts.In), c, logger)
	logger.Debug("input drained", "role", string(opts.Role), "delivered", n)

	if err == nil {
		// let work queued behind the last notification, such as ready, reach Out
		err = c.Do(runCtx, func() {})
	}
	c.Close()
	cancel()
	if runErr := <-done; runErr != nil && !errors.Is(runErr, context.Canceled) && err == nil {
		err = runErr
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return n, err
}
