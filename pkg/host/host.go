package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/tether"
	"github.com/aretw0/tether/internal/logging"
	"github.com/aretw0/tether/pkg/delegate"
	"github.com/aretw0/tether/pkg/dispatch"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/midi"
	"github.com/aretw0/tether/pkg/ports"
	"github.com/aretw0/tether/pkg/render"
	"github.com/google/uuid"
)

// ErrClosed is returned by operations on a closed host.
var ErrClosed = errors.New("host: closed")

// DefaultLockTTL bounds how long a snapshot write may hold the instance lock.
const DefaultLockTTL = 5 * time.Second

// OutgoingMIDI is one message queued by a script context for the audio thread.
type OutgoingMIDI struct {
	Message midi.Message
	Index   int
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger. Context loggers derive from it.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithInstanceID sets the key used for persisted tables and snapshots.
func WithInstanceID(id string) Option {
	return func(h *Host) {
		h.id = id
	}
}

// WithDevMode enables reload requests from the UI.
func WithDevMode(enabled bool) Option {
	return func(h *Host) {
		h.devMode = enabled
	}
}

// WithTableStore persists the auxiliary table.
func WithTableStore(s ports.TableStore) Option {
	return func(h *Host) {
		h.tables = s
	}
}

// WithSnapshotStore enables Persist and Resume.
func WithSnapshotStore(s ports.SnapshotStore) Option {
	return func(h *Host) {
		h.snapshots = s
	}
}

// WithLocker guards snapshot writes with a per-instance lock.
func WithLocker(l ports.DistributedLocker) Option {
	return func(h *Host) {
		h.locker = l
	}
}

// WithContextOptions adds options applied to every script context the host creates.
func WithContextOptions(opts ...tether.Option) Option {
	return func(h *Host) {
		h.ctxOpts = append(h.ctxOpts, opts...)
	}
}

// Host is a reference plugin host. It owns the parameter state, the native
// runtime, the always-running headless context and an optional UI context, and
// relays notifications between them.
type Host struct {
	mu sync.Mutex

	id        string
	manifest  Manifest
	factory   render.GraphFactory
	logger    *slog.Logger
	devMode   bool
	ctxOpts   []tether.Option
	tables    ports.TableStore
	snapshots ports.SnapshotStore
	locker    ports.DistributedLocker

	state      domain.Object
	sampleRate float64
	blockSize  int
	prepared   bool
	table      domain.TableContent
	midiIn     []midi.Message
	midiOut    []OutgoingMIDI
	pending    domain.Object

	runtime  *Runtime
	headless *tether.Headless
	ui       *tether.UI

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// New creates a host for the given manifest. The parameter state starts at the
// manifest defaults. No context runs until Prepare.
func New(factory render.GraphFactory, manifest Manifest, opts ...Option) *Host {
	runCtx, cancel := context.WithCancel(context.Background())
	h := &Host{
		manifest: manifest,
		factory:  factory,
		logger:   logging.NewNop(),
		state:    make(domain.Object, len(manifest.Parameters)),
		runCtx:   runCtx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.id == "" {
		h.id = uuid.NewString()
	}
	h.logger = h.logger.With("instance", h.id)
	for _, p := range manifest.Parameters {
		h.state[p.ParamID] = domain.Number(p.DefaultValue)
	}
	return h
}

// ID returns the instance identifier.
func (h *Host) ID() string {
	return h.id
}

// Manifest returns the parameter manifest.
func (h *Host) Manifest() Manifest {
	return h.manifest
}

// Prepare is called whenever the audio settings may have changed. A new sample
// rate or block size replaces the runtime and restarts the headless context,
// hydrated from the runtime snapshot. The current state is then relayed.
func (h *Host) Prepare(ctx context.Context, sampleRate float64, blockSize int) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	changed := !h.prepared || sampleRate != h.sampleRate || blockSize != h.blockSize
	if changed {
		h.sampleRate = sampleRate
		h.blockSize = blockSize
		h.prepared = true
		h.runtime = NewRuntime(sampleRate, blockSize)
		if h.pending != nil {
			if err := h.runtime.Load(h.pending); err != nil {
				h.logger.Warn("discarding persisted nodes", "error", err)
			}
			h.pending = nil
		}
		h.logger.Info("runtime initialized", "sample_rate", sampleRate, "block_size", blockSize)
		if err := h.restartHeadlessLocked(); err != nil {
			h.mu.Unlock()
			return err
		}
	}
	h.mu.Unlock()

	h.DispatchState(ctx)
	h.dispatchMIDIIn(ctx)
	return nil
}

// restartHeadlessLocked replaces the headless context and hydrates it from the
// runtime so nodes the runtime already holds are not created again.
func (h *Host) restartHeadlessLocked() error {
	if h.headless != nil {
		h.headless.Close()
	}

	rt := h.runtime
	sink := func(ctx context.Context, batch []domain.Instruction) error {
		err := rt.ApplyInstructions(ctx, batch)
		if err != nil {
			h.DispatchError(ctx, "Runtime Error", err.Error())
		}
		return err
	}

	opts := append([]tether.Option{
		tether.WithLogger(h.logger),
		tether.WithDevMode(h.devMode),
	}, h.ctxOpts...)
	opts = append(opts,
		tether.WithBatchSink(delegate.SinkFunc(sink)),
		tether.WithBridge(h.bridge(tether.RoleHeadless)),
	)
	hl := tether.NewHeadless(h.factory, opts...)

	payload, err := json.Marshal(domain.ToAny(rt.Snapshot()))
	if err != nil {
		return fmt.Errorf("failed to encode hydration payload: %w", err)
	}
	if err := hl.Deliver(h.runCtx, domain.InboundMessage{Kind: domain.MsgHydrationData, Payload: string(payload)}); err != nil {
		return err
	}

	h.headless = hl
	h.start(hl.Context)
	return nil
}

func (h *Host) start(c *tether.Context) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := c.Run(h.runCtx); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Debug("context stopped", "context", string(c.Role()), "error", err)
		}
	}()
}

// OpenUI creates and starts a UI context wired to this host. An open UI is closed
// first. The UI announces readiness, which triggers a state relay.
func (h *Host) OpenUI(opts ...tether.Option) (*tether.UI, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	if h.ui != nil {
		h.ui.Close()
	}

	all := append([]tether.Option{
		tether.WithLogger(h.logger),
		tether.WithDevMode(h.devMode),
	}, h.ctxOpts...)
	all = append(all, opts...)
	all = append(all, tether.WithBridge(h.bridge(tether.RoleUI)))

	ui := tether.NewUI(all...)
	h.ui = ui
	h.start(ui.Context)
	return ui, nil
}

// CloseUI tears down the UI context, if any.
func (h *Host) CloseUI() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ui != nil {
		h.ui.Close()
		h.ui = nil
	}
}

// Headless returns the running headless context, nil before Prepare.
func (h *Host) Headless() *tether.Headless {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.headless
}

// UI returns the open UI context, if any.
func (h *Host) UI() *tether.UI {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ui
}

// Runtime returns the current runtime, nil before Prepare.
func (h *Host) Runtime() *Runtime {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runtime
}

// State returns the current host state, sample rate included.
func (h *Host) State() domain.HostState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stateLocked()
}

func (h *Host) stateLocked() domain.HostState {
	return domain.HostState{SampleRate: h.sampleRate, Fields: domain.Clone(h.state).(domain.Object)}
}

// SetParameter updates a manifest parameter, clamped to its range, and relays the
// new state. Unknown parameters are ignored.
func (h *Host) SetParameter(ctx context.Context, paramID string, value float64) bool {
	p, ok := h.manifest.Lookup(paramID)
	if !ok {
		h.logger.Warn("unknown parameter", "param", paramID)
		return false
	}
	h.mu.Lock()
	h.state[paramID] = domain.Number(p.Clamp(value))
	h.mu.Unlock()
	h.DispatchState(ctx)
	return true
}

// ReceiveMIDI stores the latest inbound MIDI and relays it to both contexts.
func (h *Host) ReceiveMIDI(ctx context.Context, msgs []midi.Message) {
	h.mu.Lock()
	h.midiIn = append([]midi.Message(nil), msgs...)
	h.mu.Unlock()
	h.dispatchMIDIIn(ctx)
}

// DrainMIDIOut returns the queued outgoing messages ordered by index and empties the queue.
func (h *Host) DrainMIDIOut() []OutgoingMIDI {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.midiOut
	h.midiOut = nil
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Table returns the current auxiliary table.
func (h *Host) Table() domain.TableContent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.table.Clone()
}

// SetTableContent replaces the auxiliary table, persists it when a store is
// configured, and relays it to both contexts.
func (h *Host) SetTableContent(ctx context.Context, table domain.TableContent) error {
	if h.tables != nil {
		if err := h.tables.SaveTable(ctx, h.id, table); err != nil {
			return fmt.Errorf("failed to save table: %w", err)
		}
	}
	h.mu.Lock()
	h.table = table.Clone()
	h.mu.Unlock()
	h.DispatchTableContent(ctx)
	return nil
}

// ResetTableContent clears the table in the store and then locally, and relays the
// empty table. A store failure leaves the in-memory table as it was.
func (h *Host) ResetTableContent(ctx context.Context) error {
	if h.tables != nil {
		if err := h.tables.DeleteTable(ctx, h.id); err != nil {
			return fmt.Errorf("failed to delete table: %w", err)
		}
	}
	h.mu.Lock()
	h.table = domain.TableContent{}
	h.mu.Unlock()
	h.DispatchTableContent(ctx)
	return nil
}

// SaveState serializes the parameter state.
func (h *Host) SaveState() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return domain.MarshalValue(h.state)
}

// RestoreState overwrites known parameters from data. Keys absent from the current
// state are ignored; a payload that is not a JSON object leaves the state untouched.
func (h *Host) RestoreState(data []byte) error {
	v, err := domain.ParseValue(data)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidState, err)
	}
	obj, ok := v.(domain.Object)
	if !ok {
		return fmt.Errorf("%w: payload is not an object", domain.ErrInvalidState)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.restoreLocked(obj)
	return nil
}

func (h *Host) restoreLocked(obj domain.Object) {
	for key, val := range obj {
		if _, known := h.state[key]; !known {
			continue
		}
		h.state[key] = domain.Clone(val)
	}
}

// Persist writes the state and the runtime node snapshot to the snapshot store.
func (h *Host) Persist(ctx context.Context) error {
	if h.snapshots == nil {
		return nil
	}
	if h.locker != nil {
		unlock, err := h.locker.Lock(ctx, "instance:"+h.id, DefaultLockTTL)
		if err != nil {
			return fmt.Errorf("failed to lock instance: %w", err)
		}
		defer func() {
			if err := unlock(context.Background()); err != nil {
				h.logger.Warn("failed to release instance lock", "error", err)
			}
		}()
	}

	h.mu.Lock()
	snap := domain.Snapshot{State: h.stateLocked(), Nodes: domain.Object{}}
	if h.runtime != nil {
		snap.Nodes = h.runtime.Snapshot()
	}
	h.mu.Unlock()

	if err := h.snapshots.SaveSnapshot(ctx, h.id, snap); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	h.logger.Debug("snapshot persisted", "nodes", len(snap.Nodes))
	return nil
}

// Resume restores state, nodes and table from the stores. It reports whether a
// snapshot was found. Nodes are loaded into the current runtime, or into the next
// one Prepare creates.
func (h *Host) Resume(ctx context.Context) (bool, error) {
	if h.tables != nil {
		table, err := h.tables.LoadTable(ctx, h.id)
		switch {
		case err == nil:
			h.mu.Lock()
			h.table = table
			h.mu.Unlock()
		case !errors.Is(err, domain.ErrTableNotFound):
			return false, fmt.Errorf("failed to load table: %w", err)
		}
	}

	if h.snapshots == nil {
		return false, nil
	}
	snap, err := h.snapshots.LoadSnapshot(ctx, h.id)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load snapshot: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.restoreLocked(snap.State.Fields)
	if h.runtime != nil {
		if err := h.runtime.Load(snap.Nodes); err != nil {
			return true, err
		}
	} else {
		h.pending = snap.Nodes
	}
	return true, nil
}

// Flush waits until every running context has drained the messages queued so far.
func (h *Host) Flush(ctx context.Context) error {
	for _, c := range h.contexts() {
		if err := c.Do(ctx, func() {}); err != nil {
			return err
		}
	}
	return nil
}

// Close stops every context. The host cannot be reused.
func (h *Host) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	if h.headless != nil {
		h.headless.Close()
	}
	if h.ui != nil {
		h.ui.Close()
	}
	h.cancel()
	h.mu.Unlock()

	h.wg.Wait()
}

type target struct {
	ui       bool
	headless bool
}

var toBoth = target{ui: true, headless: true}

func (h *Host) contexts() []*tether.Context {
	return h.targets(toBoth)
}

func (h *Host) targets(to target) []*tether.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*tether.Context
	if to.headless && h.headless != nil {
		out = append(out, h.headless.Context)
	}
	if to.ui && h.ui != nil {
		out = append(out, h.ui.Context)
	}
	return out
}

func (h *Host) send(ctx context.Context, to target, kind domain.MessageKind, payload string) {
	for _, c := range h.targets(to) {
		if err := c.Deliver(ctx, domain.InboundMessage{Kind: kind, Payload: payload}); err != nil {
			h.logger.Debug("notification dropped", "kind", kind, "context", string(c.Role()), "error", err)
		}
	}
}

func (h *Host) sendJSON(ctx context.Context, to target, kind domain.MessageKind, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to encode notification", "kind", kind, "error", err)
		return
	}
	h.send(ctx, to, kind, string(data))
}

// DispatchState relays the state, with the sample rate injected, to both contexts.
func (h *Host) DispatchState(ctx context.Context) {
	h.sendJSON(ctx, toBoth, domain.MsgStateChange, h.State())
}

func (h *Host) dispatchMIDIIn(ctx context.Context) {
	h.mu.Lock()
	msgs := h.midiIn
	h.mu.Unlock()
	if len(msgs) == 0 {
		return
	}
	hex := make([]string, len(msgs))
	for i, m := range msgs {
		hex[i] = m.String()
	}
	h.sendJSON(ctx, toBoth, domain.MsgMIDI, hex)
}

// DispatchTableContent relays the table, wrapped under chordProgression, to both contexts.
func (h *Host) DispatchTableContent(ctx context.Context) {
	h.sendJSON(ctx, toBoth, domain.MsgTableContent, h.Table())
}

// DispatchLog sends diagnostic text to the UI only.
func (h *Host) DispatchLog(ctx context.Context, text string) {
	h.send(ctx, target{ui: true}, domain.MsgLog, text)
}

// DispatchError relays an error notice to both contexts.
func (h *Host) DispatchError(ctx context.Context, name, message string) {
	h.logger.Warn("dispatching error", "name", name, "message", message)
	h.sendJSON(ctx, toBoth, domain.MsgError, domain.ErrorNotice{Name: name, Message: message})
}

// bridge returns the native-message entry point for a context of the given role.
func (h *Host) bridge(role tether.Role) dispatch.Bridge {
	return dispatch.BridgeFunc(func(name string, payload []byte) error {
		return h.HandleCommand(h.runCtx, role, name, payload)
	})
}

// HandleCommand processes one command posted by a script context. It never blocks
// on a context loop, so it is safe to call from inside one.
func (h *Host) HandleCommand(ctx context.Context, role tether.Role, name string, payload []byte) error {
	h.logger.Debug("command", "from", string(role), "command", name)
	switch name {
	case domain.CmdReady:
		h.DispatchState(ctx)
		h.DispatchTableContent(ctx)
		return nil

	case domain.CmdSetParameterValue:
		var p domain.SetParameterPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", name, err)
		}
		h.SetParameter(ctx, p.ParamID, p.Value)
		return nil

	case domain.CmdSendMIDI:
		var p domain.SendMIDIPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", name, err)
		}
		h.handleMIDIOut(ctx, p)
		return nil

	case domain.CmdReload:
		if !h.devMode {
			h.logger.Warn("reload ignored outside dev mode")
			return nil
		}
		return h.reload(ctx)

	case domain.CmdResetTableContent:
		return h.ResetTableContent(ctx)

	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func (h *Host) handleMIDIOut(ctx context.Context, p domain.SendMIDIPayload) {
	msg, err := midi.Parse(strings.TrimSpace(p.Message))
	if err != nil {
		h.DispatchLog(ctx, "MIDI Error: Message was not a 3 byte message.")
		return
	}
	h.mu.Lock()
	h.midiOut = append(h.midiOut, OutgoingMIDI{Message: msg, Index: p.Index})
	h.mu.Unlock()
	h.DispatchLog(ctx, "MIDI Out > "+midi.FormatList(msg))
}

// reload restarts the headless context against the existing runtime.
func (h *Host) reload(ctx context.Context) error {
	h.mu.Lock()
	if h.runtime == nil {
		h.mu.Unlock()
		return nil
	}
	err := h.restartHeadlessLocked()
	h.mu.Unlock()
	if err != nil {
		return err
	}
	h.logger.Info("headless context reloaded")
	h.DispatchState(ctx)
	return nil
}
