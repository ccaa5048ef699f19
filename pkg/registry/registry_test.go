package registry_test

import (
	"context"
	"testing"

	"github.com/aretw0/tether/pkg/registry"
	"github.com/aretw0/tether/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func empty(ctx context.Context, props render.FactoryProps, inputs ...render.Input) (render.Graph, error) {
	return render.Graph{}, nil
}

func TestRegistry(t *testing.T) {
	r := registry.NewRegistry()
	r.Register("b", empty)
	r.Register("a", empty)

	assert.Equal(t, []string{"a", "b"}, r.Names())

	f, err := r.Get("a")
	require.NoError(t, err)
	assert.NotNil(t, f)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, registry.ErrFactoryNotFound)
}
