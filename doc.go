/*
Package tether implements the script contexts of a plugin whose DSP graph and UI are
driven from a native audio host.

A host embeds two independent contexts. The headless context is always running and
owns the render engine and, through its render delegate, the node-identity map. The
optional UI context mirrors host state into observable cells and a diagnostic
console. Both receive the same asynchronous notifications from the host and post
commands back; they never talk to each other.

# Concept

Each context runs on its own event loop. Inbound messages are routed by kind to
handlers that decode their own payload and fail soft: a malformed message is logged
and dropped, and the next message is processed as usual.

  - State changes drive the render-decision engine: a sample-rate change rebuilds the
    graph, anything else patches node properties in place.
  - Hydration data seeds the node-identity map after a restart so the native graph
    keeps its node identities.
  - MIDI travels as "90 3C 64" style hex triplets and is validated on the way in and out.

# Usage

	headless := tether.NewHeadless(factory,
		tether.WithLogger(logger),
		tether.WithBridge(bridge),
		tether.WithBatchSink(runtime),
	)
	go headless.Run(ctx)
	defer headless.Close()

	_ = headless.Deliver(ctx, domain.InboundMessage{
		Kind:    domain.MsgStateChange,
		Payload: `{"sampleRate": 48000, "gain": 0.5}`,
	})

The reference host in pkg/host wires both contexts to an in-process runtime and is
what the tether CLI drives.
*/
package tether
