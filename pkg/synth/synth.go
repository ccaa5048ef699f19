// Package synth provides example graph factories for the headless context.
package synth

import (
	"context"
	"fmt"

	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/dsl"
	"github.com/aretw0/tether/pkg/registry"
	"github.com/aretw0/tether/pkg/render"
)

// Thru passes every input straight to its output.
func Thru(ctx context.Context, props render.FactoryProps, inputs ...render.Input) (render.Graph, error) {
	roots := make([]domain.GraphNode, len(inputs))
	for i, in := range inputs {
		roots[i] = in.Node()
	}
	return render.Graph{Roots: roots}, nil
}

// Tone mixes a sine oscillator into every input. The oscillator frequency and
// gain follow the "frequency" and "gain" state fields and are updated in place,
// without a full render.
func Tone(ctx context.Context, props render.FactoryProps, inputs ...render.Input) (render.Graph, error) {
	if props.SampleRate <= 0 {
		return render.Graph{}, fmt.Errorf("synth: invalid sample rate %v", props.SampleRate)
	}

	osc := dsl.Node("cycle").
		Key(props.Key+":osc").
		Prop("frequency", number(props.State, "frequency", 440))
	amp := dsl.Node("mul").
		Key(props.Key+":amp").
		Prop("value", number(props.State, "gain", 0.5)).
		Child(osc)

	b := dsl.New()
	for _, in := range inputs {
		b.Root(dsl.Node("add").Child(amp, dsl.Input(in)))
	}
	return b.
		Bind("frequency", osc, "frequency").
		Bind("gain", amp, "value").
		Build()
}

// Factories holds the built-in graph factories under their config names.
var Factories = func() *registry.Registry {
	r := registry.NewRegistry()
	r.Register("thru", Thru)
	r.Register("tone", Tone)
	return r
}()

// Lookup returns a built-in factory by name.
func Lookup(name string) (render.GraphFactory, bool) {
	f, err := Factories.Get(name)
	return f, err == nil
}

func number(s domain.HostState, field string, def float64) domain.Value {
	if v, ok := s.Field(field); ok {
		if n, ok := v.(domain.Number); ok {
			return n
		}
	}
	return domain.Number(def)
}
