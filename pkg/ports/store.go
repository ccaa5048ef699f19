package ports

import (
	"context"

	"github.com/aretw0/tether/pkg/domain"
)

// TableStore persists the auxiliary table of a plugin instance.
type TableStore interface {
	// SaveTable replaces the table stored for instanceID.
	SaveTable(ctx context.Context, instanceID string, table domain.TableContent) error

	// LoadTable returns the stored table.
	// Returns domain.ErrTableNotFound if nothing was saved.
	LoadTable(ctx context.Context, instanceID string) (domain.TableContent, error)

	// DeleteTable removes the stored table. Deleting a missing table is not an error.
	DeleteTable(ctx context.Context, instanceID string) error
}

// SnapshotStore persists plugin snapshots so a host can restore state and hydrate
// a fresh headless context.
type SnapshotStore interface {
	// SaveSnapshot persists the snapshot for instanceID.
	SaveSnapshot(ctx context.Context, instanceID string, snap domain.Snapshot) error

	// LoadSnapshot retrieves the snapshot for instanceID.
	// Returns domain.ErrSnapshotNotFound if it does not exist.
	LoadSnapshot(ctx context.Context, instanceID string) (domain.Snapshot, error)

	// DeleteSnapshot removes the snapshot for instanceID.
	DeleteSnapshot(ctx context.Context, instanceID string) error

	// ListSnapshots returns the instance IDs with a stored snapshot.
	ListSnapshots(ctx context.Context) ([]string, error)
}
