package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/tether/pkg/adapters/memory"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/persistence/middleware"
	"github.com/aretw0/tether/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func wrap(t *testing.T, next ports.SnapshotStore, cfg middleware.EncryptionConfig) ports.SnapshotStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func snapshot(gain float64) domain.Snapshot {
	return domain.Snapshot{
		State: domain.HostState{SampleRate: 48000, Fields: domain.Object{"gain": domain.Number(gain)}},
		Nodes: domain.Object{"1f": domain.Object{"value": domain.Number(gain)}},
	}
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, wrap(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)}))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	secure := wrap(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	require.NoError(t, secure.SaveSnapshot(ctx, "inst", snapshot(0.25)))

	stored, err := underlying.LoadSnapshot(ctx, "inst")
	require.NoError(t, err)
	assert.Empty(t, stored.State.Fields, "parameters are hidden")
	assert.Equal(t, 48000.0, stored.State.SampleRate)
	assert.Contains(t, stored.Nodes, middleware.EnvelopeKey)
	assert.NotContains(t, stored.Nodes, "1f")

	loaded, err := secure.LoadSnapshot(ctx, "inst")
	require.NoError(t, err)
	assert.True(t, loaded.State.Equal(snapshot(0.25).State))
	assert.True(t, domain.Equal(snapshot(0.25).Nodes, loaded.Nodes))
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)

	oldStore := wrap(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, oldStore.SaveSnapshot(ctx, "inst", snapshot(0.1)))

	newStore := wrap(t, underlying, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}})
	loaded, err := newStore.LoadSnapshot(ctx, "inst")
	require.NoError(t, err)
	assert.Equal(t, domain.Number(0.1), loaded.State.Fields["gain"])

	require.NoError(t, newStore.SaveSnapshot(ctx, "inst", snapshot(0.9)))
	_, err = oldStore.LoadSnapshot(ctx, "inst")
	assert.Error(t, err, "the old key alone cannot read snapshots written with the new one")
}

func TestEncryptionMiddleware_PlainSnapshot(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	require.NoError(t, underlying.SaveSnapshot(ctx, "inst", snapshot(0.5)))

	_, err := wrap(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)}).LoadSnapshot(ctx, "inst")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    make([]byte, 32),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}
