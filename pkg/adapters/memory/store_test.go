package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/tether/pkg/adapters/memory"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_TableContract(t *testing.T) {
	ports.RunTableStoreContract(t, memory.NewStore())
}

func TestMemoryStore_SnapshotContract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, memory.NewStore())
}

func TestMemoryStore_SaveCopies(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	table := domain.TableContent{ChordProgression: []domain.ChordNotes{{NoteNumbers: []int{60}}}}
	require.NoError(t, store.SaveTable(ctx, "inst", table))
	table.ChordProgression[0].NoteNumbers[0] = 1

	loaded, err := store.LoadTable(ctx, "inst")
	require.NoError(t, err)
	assert.Equal(t, 60, loaded.ChordProgression[0].NoteNumbers[0])
}
