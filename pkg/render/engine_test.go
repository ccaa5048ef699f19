package render_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type patchCall struct {
	hash  uint64
	props domain.Object
}

type fakeDelegate struct {
	renders   [][]domain.GraphNode
	patches   []patchCall
	renderErr error
}

func (f *fakeDelegate) Render(ctx context.Context, roots ...domain.GraphNode) (domain.RenderStats, error) {
	if f.renderErr != nil {
		return domain.RenderStats{}, f.renderErr
	}
	f.renders = append(f.renders, roots)
	return domain.RenderStats{
		Nodes: len(roots),
		Keys:  map[string]uint64{"osc": 0xabc},
	}, nil
}

func (f *fakeDelegate) Patch(ctx context.Context, hash uint64, props domain.Object) error {
	f.patches = append(f.patches, patchCall{hash: hash, props: props})
	return nil
}

func sineFactory(calls *[]render.FactoryProps) render.GraphFactory {
	return func(ctx context.Context, props render.FactoryProps, inputs ...render.Input) (render.Graph, error) {
		*calls = append(*calls, props)
		osc := domain.GraphNode{Kind: "sine", Key: "osc"}
		roots := make([]domain.GraphNode, 0, len(inputs))
		for _, in := range inputs {
			roots = append(roots, domain.GraphNode{Kind: "add", Children: []domain.GraphNode{osc, in.Node()}})
		}
		return render.Graph{
			Roots: roots,
			Refs:  render.RefMap{"freq": {NodeKey: "osc", Field: "frequency", Prop: "frequency"}},
		}, nil
	}
}

func TestEngine_FirstStateRendersFully(t *testing.T) {
	var calls []render.FactoryProps
	del := &fakeDelegate{}
	eng := render.New(sineFactory(&calls), del)

	out, err := eng.Apply(context.Background(), state(t, 44100, map[string]any{"frequency": 440.0}))
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionFullRender, out.Decision)
	require.Len(t, calls, 1)
	assert.Equal(t, render.GraphKey, calls[0].Key)
	assert.Equal(t, 44100.0, calls[0].SampleRate)
	require.Len(t, del.renders, 1)
	assert.Len(t, del.renders[0], 2, "left and right roots")

	prev, ok := eng.Previous()
	require.True(t, ok)
	assert.Equal(t, 44100.0, prev.SampleRate)
}

func TestEngine_IncrementalPatchesBoundRefsOnly(t *testing.T) {
	var calls []render.FactoryProps
	del := &fakeDelegate{}
	eng := render.New(sineFactory(&calls), del)
	ctx := context.Background()

	_, err := eng.Apply(ctx, state(t, 44100, map[string]any{"frequency": 440.0, "label": "a"}))
	require.NoError(t, err)

	out, err := eng.Apply(ctx, state(t, 44100, map[string]any{"frequency": 880.0, "label": "a"}))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionIncrementalUpdate, out.Decision)
	assert.Equal(t, 1, out.Patched)
	require.Len(t, del.patches, 1)
	assert.Equal(t, uint64(0xabc), del.patches[0].hash)
	assert.Equal(t, domain.Object{"frequency": domain.Number(880)}, del.patches[0].props)

	out, err = eng.Apply(ctx, state(t, 44100, map[string]any{"frequency": 880.0, "label": "b"}))
	require.NoError(t, err)
	assert.Zero(t, out.Patched, "unbound field does not patch")
	assert.Len(t, calls, 1, "factory not called again")
}

func TestEngine_SampleRateChangeRerenders(t *testing.T) {
	var calls []render.FactoryProps
	del := &fakeDelegate{}
	eng := render.New(sineFactory(&calls), del)
	ctx := context.Background()

	_, err := eng.Apply(ctx, state(t, 44100, nil))
	require.NoError(t, err)
	out, err := eng.Apply(ctx, state(t, 48000, nil))
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionFullRender, out.Decision)
	assert.Len(t, calls, 2)
	assert.Empty(t, del.patches)
}

func TestEngine_FailureKeepsRetainedState(t *testing.T) {
	var calls []render.FactoryProps
	del := &fakeDelegate{}
	eng := render.New(sineFactory(&calls), del)
	ctx := context.Background()

	_, err := eng.Apply(ctx, state(t, 44100, nil))
	require.NoError(t, err)

	del.renderErr = errors.New("native graph rejected")
	_, err = eng.Apply(ctx, state(t, 96000, nil))
	require.Error(t, err)

	prev, _ := eng.Previous()
	assert.Equal(t, 44100.0, prev.SampleRate)

	del.renderErr = nil
	out, err := eng.Apply(ctx, state(t, 96000, nil))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionFullRender, out.Decision)
}

func TestEngine_NoFactory(t *testing.T) {
	eng := render.New(nil, &fakeDelegate{})
	_, err := eng.Apply(context.Background(), state(t, 44100, nil))
	assert.ErrorIs(t, err, render.ErrNoFactory)

	_, ok := eng.Previous()
	assert.False(t, ok)
}

func TestEngine_DecisionHook(t *testing.T) {
	var calls []render.FactoryProps
	var seen []domain.Decision
	eng := render.New(sineFactory(&calls), &fakeDelegate{},
		render.WithTopology(domain.FieldSampleRate, "voices"),
		render.WithDecisionHook(func(ctx context.Context, o render.Outcome) {
			seen = append(seen, o.Decision)
		}),
	)
	ctx := context.Background()

	_, _ = eng.Apply(ctx, state(t, 44100, map[string]any{"voices": 4.0}))
	_, _ = eng.Apply(ctx, state(t, 44100, map[string]any{"voices": 8.0}))
	_, _ = eng.Apply(ctx, state(t, 44100, map[string]any{"voices": 8.0}))

	assert.Equal(t, []domain.Decision{
		domain.DecisionFullRender,
		domain.DecisionFullRender,
		domain.DecisionIncrementalUpdate,
	}, seen)
	assert.Equal(t, []string{domain.FieldSampleRate, "voices"}, eng.Topology())
}
