package domain

import "context"

// MessageKind is the tag of an inbound host notification.
type MessageKind string

const (
	MsgStateChange   MessageKind = "receiveStateChange"
	MsgMIDI          MessageKind = "receiveMIDI"
	MsgHydrationData MessageKind = "receiveHydrationData"
	MsgTableContent  MessageKind = "receiveTableContent"
	MsgError         MessageKind = "receiveError"
	MsgLog           MessageKind = "receiveLog"
	MsgConsole       MessageKind = "log"
)

// InboundMessage is one host notification. Payload is always the serialized text
// exactly as the host sent it; each handler decodes it on its own.
type InboundMessage struct {
	Kind    MessageKind `json:"kind"`
	Payload string      `json:"payload"`
}

// Command names accepted by the host bridge.
const (
	CmdReady             = "ready"
	CmdSetParameterValue = "setParameterValue"
	CmdSendMIDI          = "sendMIDI"
	CmdReload            = "reload"
	CmdResetTableContent = "resetTableContent"
)

// OutboundCommand is one message posted from a script context to the host.
type OutboundCommand struct {
	Name    string `json:"name"`
	Payload any    `json:"payload"`
}

// SetParameterPayload is the payload of setParameterValue.
type SetParameterPayload struct {
	ParamID string  `json:"paramId"`
	Value   float64 `json:"value"`
}

// SendMIDIPayload is the payload of one sendMIDI command.
// Index counts accepted messages only, starting at zero.
type SendMIDIPayload struct {
	Message string `json:"message"`
	Index   int    `json:"index"`
}

// ErrorNotice is the payload of receiveError.
type ErrorNotice struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// String formats the notice the way the diagnostics log shows it.
func (e ErrorNotice) String() string {
	return "[Error: " + e.Name + "] " + e.Message
}

// Decision is the outcome of the render-decision engine.
type Decision string

const (
	DecisionFullRender        Decision = "full_render"
	DecisionIncrementalUpdate Decision = "incremental_update"
)

// RenderEvent describes one processed state change.
type RenderEvent struct {
	ContextID string
	Decision  Decision
	State     HostState
	Patched   int
	Err       error
}

// HydrationEvent describes one hydration attempt.
type HydrationEvent struct {
	ContextID string
	Applied   int
	Err       error
}

// MIDIEvent describes one inbound MIDI delivery after validation.
type MIDIEvent struct {
	ContextID string
	Accepted  int
	Rejected  int
}

// LifecycleHooks defines callbacks for context observability.
type LifecycleHooks struct {
	OnRender    func(context.Context, *RenderEvent)
	OnHydrate   func(context.Context, *HydrationEvent)
	OnMIDI      func(context.Context, *MIDIEvent)
	OnDecodeErr func(context.Context, MessageKind, error)
}
