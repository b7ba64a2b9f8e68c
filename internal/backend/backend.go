// Package backend translates validated fleet transitions into actions
// against the scheduler infrastructure. Each scheduler kind has exactly one
// adapter; the coordinator selects by kind and never sees backend-specific
// request vocabulary.
package backend

import (
	"context"
	"errors"

	"corral/internal/cluster"
	"corral/internal/fleet"
)

// ErrUnavailable reports a transient backend failure; the caller may retry
// the same request.
var ErrUnavailable = errors.New("backend: unavailable")

// ErrRejected reports that the backend itself refused the action, e.g. a
// capacity safeguard. Not retryable without operator intervention.
var ErrRejected = errors.New("backend: rejected")

// Adapter issues start/stop actions against one scheduler kind and owns
// that kind's request vocabulary. Adapters are stateless; all per-call
// state travels through arguments.
type Adapter interface {
	// Kind names the scheduler this adapter serves.
	Kind() cluster.SchedulerKind

	// Validate checks the requested value against this kind's accepted
	// vocabulary and maps it to a transition. Rejections carry an
	// InvalidTransitionRequest kind naming the two accepted values.
	Validate(requested fleet.RequestedStatus) (fleet.Transition, error)

	// Apply issues the backend action. Idempotent at the backend level:
	// starting an already-running fleet is an acknowledged no-op.
	Apply(ctx context.Context, ref cluster.Ref, t fleet.Transition) error

	// Probe derives the fleet's current status from the backend.
	Probe(ctx context.Context, ref cluster.Ref) (fleet.Status, error)
}

func invalidTransition(requested fleet.RequestedStatus, kindName, first, second string) *fleet.Error {
	return &fleet.Error{
		Kind: fleet.KindInvalidRequest,
		Message: "the update compute fleet status can only be set to `" + first +
			"` or `" + second + "` for " + kindName + " clusters, got `" + string(requested) + "`",
	}
}
