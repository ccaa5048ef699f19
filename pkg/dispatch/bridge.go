// Package dispatch posts commands from a script context to the host.
//
// Every post is guarded: while no bridge is attached (during startup, or after
// teardown) commands are dropped without error, so callers never check
// availability themselves.
package dispatch

// Bridge is the host-provided post primitive. Payload is the JSON text of the
// command payload.
type Bridge interface {
	PostNativeMessage(name string, payload []byte) error
}

// BridgeFunc adapts a function to Bridge.
type BridgeFunc func(name string, payload []byte) error

// PostNativeMessage calls f.
func (f BridgeFunc) PostNativeMessage(name string, payload []byte) error {
	return f(name, payload)
}
