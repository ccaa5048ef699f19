package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tether/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTableStoreContract verifies that a TableStore implementation adheres to the
// interface contract.
func RunTableStoreContract(t *testing.T, store TableStore) {
	ctx := context.Background()
	instanceID := "contract-table-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		table := domain.TableContent{ChordProgression: []domain.ChordNotes{
			{NoteNumbers: []int{60, 64, 67}},
			{NoteNumbers: []int{62, 65, 69}},
		}}

		require.NoError(t, store.SaveTable(ctx, instanceID, table))

		loaded, err := store.LoadTable(ctx, instanceID)
		require.NoError(t, err)
		assert.Equal(t, table, loaded)
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		loaded, err := store.LoadTable(ctx, instanceID)
		require.NoError(t, err)
		loaded.ChordProgression[0].NoteNumbers[0] = 0

		again, err := store.LoadTable(ctx, instanceID)
		require.NoError(t, err)
		assert.Equal(t, 60, again.ChordProgression[0].NoteNumbers[0])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.LoadTable(ctx, "missing-"+instanceID)
		assert.ErrorIs(t, err, domain.ErrTableNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.DeleteTable(ctx, instanceID))
		_, err := store.LoadTable(ctx, instanceID)
		assert.ErrorIs(t, err, domain.ErrTableNotFound)

		assert.NoError(t, store.DeleteTable(ctx, instanceID), "deleting twice is fine")
	})
}

// RunSnapshotStoreContract verifies that a SnapshotStore implementation adheres to
// the interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	instanceID := "contract-snapshot-" + time.Now().Format("20060102150405")

	snapshot := func() domain.Snapshot {
		state, err := domain.NewHostState(48000, map[string]any{"gain": 0.5, "mode": "poly"})
		require.NoError(t, err)
		return domain.Snapshot{
			State: state,
			Nodes: domain.Object{"1a": domain.Object{"frequency": domain.Number(440)}},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		snap := snapshot()
		require.NoError(t, store.SaveSnapshot(ctx, instanceID, snap))

		loaded, err := store.LoadSnapshot(ctx, instanceID)
		require.NoError(t, err)
		assert.True(t, snap.State.Equal(loaded.State))
		assert.True(t, domain.Equal(snap.Nodes, loaded.Nodes))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.LoadSnapshot(ctx, "missing-"+instanceID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1 := instanceID + "-1"
		id2 := instanceID + "-2"
		_ = store.SaveSnapshot(ctx, id1, snapshot())
		_ = store.SaveSnapshot(ctx, id2, snapshot())
		defer func() {
			_ = store.DeleteSnapshot(ctx, id1)
			_ = store.DeleteSnapshot(ctx, id2)
		}()

		ids, err := store.ListSnapshots(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.DeleteSnapshot(ctx, instanceID))
		_, err := store.LoadSnapshot(ctx, instanceID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})
}
