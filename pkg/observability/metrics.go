package observability

import (
	"context"
	"errors"
	"net/http"

	"github.com/aretw0/tether/pkg/dispatch"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tether"

// Metrics holds the counters fed by context hooks.
type Metrics struct {
	registry prometheus.Gatherer

	renders        *prometheus.CounterVec
	hydrations     *prometheus.CounterVec
	hydratedNodes  prometheus.Counter
	midiMessages   *prometheus.CounterVec
	decodeFailures *prometheus.CounterVec
	commands       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// It panics if a collector is already registered, like prometheus.MustRegister.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_decisions_total",
			Help:      "State changes processed, by decision and result.",
		}, []string{"decision", "result"}),
		hydrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hydrations_total",
			Help:      "Hydration payloads received, by result.",
		}, []string{"result"}),
		hydratedNodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hydrated_nodes_total",
			Help:      "Node identities injected by hydration.",
		}),
		midiMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "midi_messages_total",
			Help:      "MIDI messages validated, by direction and result.",
		}, []string{"direction", "result"}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Inbound payloads that failed to decode, by message kind.",
		}, []string{"kind"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Outbound commands, by name and whether they reached the host.",
		}, []string{"command", "result"}),
	}
	reg.MustRegister(m.renders, m.hydrations, m.hydratedNodes, m.midiMessages, m.decodeFailures, m.commands)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// LifecycleHooks returns context hooks that record into m.
func (m *Metrics) LifecycleHooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRender: func(ctx context.Context, e *domain.RenderEvent) {
			m.renders.WithLabelValues(string(e.Decision), result(e.Err)).Inc()
		},
		OnHydrate: func(ctx context.Context, e *domain.HydrationEvent) {
			if e.Err != nil {
				m.hydrations.WithLabelValues("rejected").Inc()
				return
			}
			m.hydrations.WithLabelValues("ok").Inc()
			m.hydratedNodes.Add(float64(e.Applied))
		},
		OnMIDI: func(ctx context.Context, e *domain.MIDIEvent) {
			m.midiMessages.WithLabelValues("in", "accepted").Add(float64(e.Accepted))
			m.midiMessages.WithLabelValues("in", "rejected").Add(float64(e.Rejected))
		},
		OnDecodeErr: func(ctx context.Context, kind domain.MessageKind, err error) {
			m.decodeFailures.WithLabelValues(string(kind)).Inc()
		},
	}
}

// DispatchHooks returns dispatcher hooks that record into m.
func (m *Metrics) DispatchHooks() dispatch.Hooks {
	return dispatch.Hooks{
		OnPost: func(name string, dispatched bool) {
			res := "posted"
			if !dispatched {
				res = "dropped"
			}
			m.commands.WithLabelValues(name, res).Inc()
		},
		OnMIDI: func(accepted, rejected int) {
			m.midiMessages.WithLabelValues("out", "accepted").Add(float64(accepted))
			m.midiMessages.WithLabelValues("out", "rejected").Add(float64(rejected))
		},
	}
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
