package delegate_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/tether/pkg/delegate"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	batches [][]domain.Instruction
	err     error
}

func (s *recordingSink) ApplyInstructions(ctx context.Context, batch []domain.Instruction) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, batch)
	return nil
}

func countOps(batch []domain.Instruction, op domain.InstructionOp) int {
	n := 0
	for _, ins := range batch {
		if ins.Op == op {
			n++
		}
	}
	return n
}

func voice(freq float64) []domain.GraphNode {
	osc := domain.GraphNode{Kind: "cycle", Key: "osc", Props: domain.Object{"frequency": domain.Number(freq)}}
	left := domain.GraphNode{Kind: "mul", Children: []domain.GraphNode{osc, {Kind: "const", Props: domain.Object{"value": domain.Number(0.5)}}}}
	right := domain.GraphNode{Kind: "mul", Children: []domain.GraphNode{osc, {Kind: "const", Props: domain.Object{"value": domain.Number(0.25)}}}}
	return []domain.GraphNode{left, right}
}

func TestRender_CreatesNodesOnce(t *testing.T) {
	sink := &recordingSink{}
	d := delegate.New(delegate.WithSink(sink))
	ctx := context.Background()

	stats, err := d.Render(ctx, voice(440)...)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Nodes, "shared oscillator counted once")
	assert.Equal(t, 5, stats.Created)
	assert.Len(t, stats.Roots, 2)
	assert.Contains(t, stats.Keys, "osc")
	assert.Equal(t, 5, d.Nodes().Len())

	require.Len(t, sink.batches, 1)
	batch := sink.batches[0]
	assert.Equal(t, 5, countOps(batch, domain.OpCreateNode))
	assert.Equal(t, domain.OpActivateRoots, batch[len(batch)-2].Op)
	assert.Equal(t, domain.OpCommitUpdates, batch[len(batch)-1].Op)
}

func TestRender_SecondPassReusesAndBumpsGeneration(t *testing.T) {
	sink := &recordingSink{}
	d := delegate.New(delegate.WithSink(sink))
	ctx := context.Background()

	first, err := d.Render(ctx, voice(440)...)
	require.NoError(t, err)
	second, err := d.Render(ctx, voice(440)...)
	require.NoError(t, err)

	assert.Equal(t, first.Roots, second.Roots)
	assert.Zero(t, second.Created)
	assert.Equal(t, 5, second.Reused)
	assert.Zero(t, countOps(sink.batches[1], domain.OpCreateNode))
	assert.Zero(t, countOps(sink.batches[1], domain.OpSetProperty))

	ref, ok := d.Nodes().Get(second.Keys["osc"])
	require.True(t, ok)
	assert.Equal(t, uint64(1), ref.Generation)
}

func TestRender_KeyedNodeKeepsIdentityAcrossProps(t *testing.T) {
	sink := &recordingSink{}
	d := delegate.New(delegate.WithSink(sink))
	ctx := context.Background()

	first, err := d.Render(ctx, voice(440)...)
	require.NoError(t, err)
	second, err := d.Render(ctx, voice(880)...)
	require.NoError(t, err)

	assert.Equal(t, first.Keys["osc"], second.Keys["osc"])
	assert.Equal(t, 1, countOps(sink.batches[1], domain.OpSetProperty))
}

func TestRender_SinkFailureLeavesMapUntouched(t *testing.T) {
	sink := &recordingSink{err: errors.New("runtime offline")}
	d := delegate.New(delegate.WithSink(sink))

	_, err := d.Render(context.Background(), voice(440)...)
	require.Error(t, err)
	assert.Zero(t, d.Nodes().Len())
}

func TestPatch(t *testing.T) {
	sink := &recordingSink{}
	d := delegate.New(delegate.WithSink(sink))
	ctx := context.Background()

	stats, err := d.Render(ctx, voice(440)...)
	require.NoError(t, err)
	osc := stats.Keys["osc"]

	require.NoError(t, d.Patch(ctx, osc, domain.Object{"frequency": domain.Number(220)}))

	ref, _ := d.Nodes().Get(osc)
	assert.Equal(t, domain.Number(220), ref.Props.(domain.Object)["frequency"])

	last := sink.batches[len(sink.batches)-1]
	require.Len(t, last, 2)
	assert.Equal(t, domain.OpSetProperty, last[0].Op)
	assert.Equal(t, "frequency", last[0].Prop)
	assert.Equal(t, 220.0, last[0].Value)

	err = d.Patch(ctx, 12345, domain.Object{"x": domain.Number(1)})
	assert.ErrorIs(t, err, delegate.ErrNodeNotFound)
}

func TestRender_AfterHydrationCreatesNothing(t *testing.T) {
	src := delegate.New()
	ctx := context.Background()
	_, err := src.Render(ctx, voice(440)...)
	require.NoError(t, err)

	snapshot, err := json.Marshal(src.Nodes())
	require.NoError(t, err)

	sink := &recordingSink{}
	dst := delegate.New(delegate.WithSink(sink))
	n, err := dst.HydrateJSON(string(snapshot))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	stats, err := dst.Render(ctx, voice(440)...)
	require.NoError(t, err)
	assert.Zero(t, stats.Created)
	assert.Zero(t, countOps(sink.batches[0], domain.OpCreateNode))

	ref, _ := dst.Nodes().Get(stats.Keys["osc"])
	assert.Equal(t, "cycle", ref.Kind, "rendered kind replaces the hydrated marker")
}

func TestHashNode_Deterministic(t *testing.T) {
	n := domain.GraphNode{Kind: "const", Props: domain.Object{"b": domain.Number(2), "a": domain.Number(1)}}
	assert.Equal(t, delegate.HashNode(n, nil), delegate.HashNode(n, nil))

	other := domain.GraphNode{Kind: "const", Props: domain.Object{"a": domain.Number(1), "b": domain.Number(3)}}
	assert.NotEqual(t, delegate.HashNode(n, nil), delegate.HashNode(other, nil))

	assert.NotEqual(t, delegate.HashNode(n, []uint64{1}), delegate.HashNode(n, []uint64{2}))
}
