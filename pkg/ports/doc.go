/*
Package ports defines the driven ports (interfaces) of the reference host.

These interfaces decouple the host from its storage backends.

# Key Interfaces

  - TableStore: persists the auxiliary table content of a plugin instance.
  - SnapshotStore: persists host state and the node snapshot used for hydration.
  - DistributedLocker: serializes snapshot writes across host replicas sharing a store.
*/
package ports
