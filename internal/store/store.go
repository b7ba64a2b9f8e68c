package store

import (
	"context"
	"errors"
	"time"

	"corral/internal/fleet"
)

// StatusRecord is the persisted compute fleet status for one cluster.
// Revision is the store's version token: every successful write bumps it,
// and compare-and-set writes name the revision they were derived from.
type StatusRecord struct {
	ClusterName   string
	Status        fleet.Status
	LastUpdatedAt time.Time
	Revision      int64
}

// ErrNotFound is returned by Get when no record exists for the cluster.
var ErrNotFound = errors.New("store: status record not found")

// ErrStaleWrite is returned by Put when the supplied prior revision no
// longer matches the persisted one. The caller re-reads and retries.
var ErrStaleWrite = errors.New("store: stale revision")

// FleetStore persists compute fleet status records. Writes are serialized
// per cluster via revision compare-and-set; the store never blocks readers
// on in-flight writes.
type FleetStore interface {
	// Get returns the current record for the cluster, or ErrNotFound.
	Get(ctx context.Context, clusterName string) (*StatusRecord, error)

	// Put writes status with a fresh timestamp. priorRevision is the
	// revision the caller observed; pass 0 to create a record that does
	// not exist yet. A mismatched revision yields ErrStaleWrite. The
	// persisted LastUpdatedAt never moves backward.
	Put(ctx context.Context, clusterName string, status fleet.Status, priorRevision int64) (*StatusRecord, error)

	// Delete removes the record; deleting an absent record is a no-op.
	// Used only when a cluster is deprovisioned.
	Delete(ctx context.Context, clusterName string) error

	// Close releases the underlying resources.
	Close()
}

// now is swapped out by tests that need deterministic timestamps.
var now = time.Now
