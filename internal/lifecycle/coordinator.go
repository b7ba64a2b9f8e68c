// Package lifecycle implements the compute fleet state machine: it
// reconciles the caller's requested state, the scheduler backend's actual
// state, and the persisted status record.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"corral/internal/backend"
	"corral/internal/cluster"
	"corral/internal/events"
	"corral/internal/fleet"
	"corral/internal/metrics"
	"corral/internal/store"
)

// FleetState is what describe and update return to callers.
type FleetState struct {
	Status        fleet.Status `json:"status"`
	LastUpdatedAt time.Time    `json:"lastStatusUpdatedTime"`
}

// Options bundles the coordinator's tunables.
type Options struct {
	BackendTimeout  time.Duration // per backend call
	StatusTTL       time.Duration // store records older than this are re-probed
	ConflictRetries int           // CAS attempts before surfacing Conflict
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		BackendTimeout:  30 * time.Second,
		StatusTTL:       15 * time.Second,
		ConflictRetries: 3,
	}
}

// Coordinator orchestrates fleet describe/update requests. It holds no
// cluster-scoped locks; concurrent writes serialize at the store through
// revision compare-and-set.
type Coordinator struct {
	stack    cluster.Stack
	gate     cluster.Gate
	registry *cluster.Registry
	adapters map[cluster.SchedulerKind]backend.Adapter
	store    store.FleetStore
	emitter  *events.Emitter
	opts     Options
	logger   *slog.Logger

	// now is swapped out by tests.
	now func() time.Time
}

// New creates a coordinator. registry may be nil; adapters is keyed by the
// scheduler kind each one serves.
func New(
	stack cluster.Stack,
	gate cluster.Gate,
	registry *cluster.Registry,
	adapters []backend.Adapter,
	fleetStore store.FleetStore,
	emitter *events.Emitter,
	opts Options,
	logger *slog.Logger,
) *Coordinator {
	byKind := make(map[cluster.SchedulerKind]backend.Adapter, len(adapters))
	for _, a := range adapters {
		byKind[a.Kind()] = a
	}
	return &Coordinator{
		stack:    stack,
		gate:     gate,
		registry: registry,
		adapters: byKind,
		store:    fleetStore,
		emitter:  emitter,
		opts:     opts,
		logger:   logger.With("component", "lifecycle"),
		now:      time.Now,
	}
}

// Describe returns the compute fleet status for the named cluster,
// refreshing the status record from the backend when it is absent or stale.
func (c *Coordinator) Describe(ctx context.Context, clusterName string) (*FleetState, error) {
	metrics.FleetDescribesTotal.WithLabelValues(clusterName).Inc()

	ref, adapter, err := c.resolve(ctx, clusterName)
	if err != nil {
		return nil, err
	}

	st, err := c.currentState(ctx, ref, adapter)
	if err != nil {
		return nil, err
	}
	metrics.SetFleetStatus(clusterName, string(st.Status), fleet.AllStatuses())
	return st, nil
}

// Update requests a fleet transition. Validation failures never reach the
// backend or the store; a successful backend action is always followed by
// either a fresh status or a kinded error, never a stale success.
func (c *Coordinator) Update(ctx context.Context, clusterName string, requested fleet.RequestedStatus) (*FleetState, error) {
	ref, adapter, err := c.resolve(ctx, clusterName)
	if err != nil {
		return nil, err
	}

	transition, err := adapter.Validate(requested)
	if err != nil {
		metrics.FleetTransitionsTotal.WithLabelValues(clusterName, string(requested), "invalid").Inc()
		return nil, err
	}

	// Closed states refuse all transitions. The backend imposed PROTECTED;
	// UNKNOWN means we cannot see the backend at all.
	if cur, err := c.currentState(ctx, ref, adapter); err == nil {
		switch cur.Status {
		case fleet.StatusProtected:
			metrics.FleetTransitionsTotal.WithLabelValues(clusterName, string(transition), "protected").Inc()
			return nil, &fleet.Error{
				Kind:    fleet.KindBackendRejected,
				Message: fmt.Sprintf("compute fleet of cluster %q is protected and cannot be modified", clusterName),
			}
		case fleet.StatusUnknown:
			metrics.FleetTransitionsTotal.WithLabelValues(clusterName, string(transition), "unknown").Inc()
			return nil, &fleet.Error{
				Kind:    fleet.KindInvalidState,
				Message: fmt.Sprintf("compute fleet status of cluster %q is unknown, refusing to modify it", clusterName),
			}
		}
	}

	c.emitRequested(clusterName, transition, requested)

	applyCtx, cancel := context.WithTimeout(ctx, c.opts.BackendTimeout)
	err = adapter.Apply(applyCtx, ref, transition)
	cancel()
	if err != nil {
		metrics.FleetTransitionsTotal.WithLabelValues(clusterName, string(transition), "backend_error").Inc()
		return nil, c.mapBackendErr(clusterName, err)
	}

	rec, err := c.writeStatus(ctx, clusterName, transition.Transitional())
	if err != nil {
		return nil, err
	}
	metrics.FleetTransitionsTotal.WithLabelValues(clusterName, string(transition), "ok").Inc()

	// The backend may converge faster than the transitional status. Only a
	// probe showing the transition's steady state counts as advancement; a
	// backend that still reports the old state must not roll us back.
	st := &FleetState{Status: rec.Status, LastUpdatedAt: rec.LastUpdatedAt}
	steady := fleet.StatusRunning
	if transition == fleet.TransitionStop {
		steady = fleet.StatusStopped
	}
	if observed, probeErr := c.probe(ctx, ref, adapter); probeErr == nil && observed == steady {
		if refreshed, werr := c.store.Put(ctx, clusterName, observed, rec.Revision); werr == nil {
			st = &FleetState{Status: refreshed.Status, LastUpdatedAt: refreshed.LastUpdatedAt}
		}
	}

	c.emitter.Emit(events.Event{
		Type:    events.FleetStatusChanged,
		Cluster: clusterName,
		Fields: map[string]string{
			"status":    string(st.Status),
			"scheduler": string(ref.Scheduler),
		},
	})
	metrics.SetFleetStatus(clusterName, string(st.Status), fleet.AllStatuses())
	return st, nil
}

// resolve maps a cluster name to its ref and adapter, running the stack
// probe and the version gate. Everything here is pure validation; it fails
// fast and leaves no partial state.
func (c *Coordinator) resolve(ctx context.Context, clusterName string) (cluster.Ref, backend.Adapter, error) {
	ref, err := c.stack.Describe(ctx, clusterName)
	if errors.Is(err, cluster.ErrStackNotFound) {
		if c.registry != nil {
			c.registry.Forget(clusterName)
		}
		c.emitter.Emit(events.Event{Type: events.ClusterNotFound, Cluster: clusterName})
		return cluster.Ref{}, nil, fleet.NotFoundError(clusterName)
	}
	if err != nil {
		return cluster.Ref{}, nil, &fleet.Error{
			Kind:    fleet.KindBackendUnavailable,
			Message: fmt.Sprintf("could not resolve cluster %q, try again later", clusterName),
		}
	}

	if !c.gate.Check(ref) {
		return cluster.Ref{}, nil, fleet.IncompatibleVersionError(clusterName)
	}

	adapter, ok := c.adapters[ref.Scheduler]
	if !ok {
		// A scheduler tag we don't recognize means the stack is from a
		// different era; indistinguishable from absence to callers.
		c.logger.Warn("unknown scheduler kind", "cluster", clusterName, "scheduler", string(ref.Scheduler))
		return cluster.Ref{}, nil, fleet.NotFoundError(clusterName)
	}

	if c.registry != nil {
		c.registry.Observe(ref)
	}
	return ref, adapter, nil
}

// currentState reads the status record, re-deriving it from the backend
// when absent or older than the freshness window. Probe results are only
// persisted when the status actually changed, so last_updated_at keeps
// meaning "when the status last changed".
func (c *Coordinator) currentState(ctx context.Context, ref cluster.Ref, adapter backend.Adapter) (*FleetState, error) {
	rec, err := c.store.Get(ctx, ref.Name)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, &fleet.Error{
			Kind:    fleet.KindBackendUnavailable,
			Message: fmt.Sprintf("could not read compute fleet status for cluster %q", ref.Name),
		}
	}

	if rec != nil && c.now().Sub(rec.LastUpdatedAt) < c.opts.StatusTTL {
		return &FleetState{Status: rec.Status, LastUpdatedAt: rec.LastUpdatedAt}, nil
	}

	observed, probeErr := c.probe(ctx, ref, adapter)
	if probeErr != nil {
		c.emitter.Emit(events.Event{
			Type:    events.FleetProbeFailed,
			Cluster: ref.Name,
			Fields:  map[string]string{"error": probeErr.Error()},
		})
		// Transient blindness is not worth persisting; show UNKNOWN with
		// the last change time we have.
		if rec != nil {
			return &FleetState{Status: fleet.StatusUnknown, LastUpdatedAt: rec.LastUpdatedAt}, nil
		}
		return &FleetState{Status: fleet.StatusUnknown, LastUpdatedAt: c.now()}, nil
	}

	if rec != nil && rec.Status == observed {
		return &FleetState{Status: rec.Status, LastUpdatedAt: rec.LastUpdatedAt}, nil
	}

	fresh, err := c.writeStatus(ctx, ref.Name, observed)
	if err != nil {
		return nil, err
	}
	return &FleetState{Status: fresh.Status, LastUpdatedAt: fresh.LastUpdatedAt}, nil
}

// writeStatus performs the optimistic-concurrency write: fresh read, CAS on
// the observed revision, bounded retries, then Conflict.
func (c *Coordinator) writeStatus(ctx context.Context, clusterName string, status fleet.Status) (*store.StatusRecord, error) {
	for attempt := 0; attempt < c.opts.ConflictRetries; attempt++ {
		var prior int64
		rec, err := c.store.Get(ctx, clusterName)
		switch {
		case errors.Is(err, store.ErrNotFound):
			prior = 0
		case err != nil:
			return nil, &fleet.Error{
				Kind:    fleet.KindBackendUnavailable,
				Message: fmt.Sprintf("could not read compute fleet status for cluster %q", clusterName),
			}
		default:
			prior = rec.Revision
		}

		written, err := c.store.Put(ctx, clusterName, status, prior)
		if errors.Is(err, store.ErrStaleWrite) {
			metrics.StoreConflictsTotal.WithLabelValues(clusterName).Inc()
			continue
		}
		if err != nil {
			return nil, &fleet.Error{
				Kind:    fleet.KindBackendUnavailable,
				Message: fmt.Sprintf("could not persist compute fleet status for cluster %q", clusterName),
			}
		}
		return written, nil
	}
	return nil, fleet.ConflictError(clusterName)
}

func (c *Coordinator) probe(ctx context.Context, ref cluster.Ref, adapter backend.Adapter) (fleet.Status, error) {
	probeCtx, cancel := context.WithTimeout(ctx, c.opts.BackendTimeout)
	defer cancel()

	status, err := adapter.Probe(probeCtx, ref)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.BackendProbesTotal.WithLabelValues(string(ref.Scheduler), result).Inc()
	return status, err
}

func (c *Coordinator) mapBackendErr(clusterName string, err error) error {
	var fe *fleet.Error
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, backend.ErrRejected) {
		return &fleet.Error{
			Kind:    fleet.KindBackendRejected,
			Message: fmt.Sprintf("the scheduler backend refused the request for cluster %q: %s", clusterName, err),
		}
	}
	return &fleet.Error{
		Kind:    fleet.KindBackendUnavailable,
		Message: fmt.Sprintf("the scheduler backend for cluster %q is unavailable, try again later", clusterName),
	}
}

func (c *Coordinator) emitRequested(clusterName string, t fleet.Transition, requested fleet.RequestedStatus) {
	evType := events.FleetStartRequested
	if t == fleet.TransitionStop {
		evType = events.FleetStopRequested
	}
	c.emitter.Emit(events.Event{
		Type:    evType,
		Cluster: clusterName,
		Fields:  map[string]string{"requested": string(requested)},
	})
}
