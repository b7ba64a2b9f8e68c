package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"corral/internal/bus"
	"corral/internal/cluster"
	"corral/internal/fleet"
)

// ControlBus is the slice of the message bus the batch adapter needs.
type ControlBus interface {
	Request(subject string, event bus.Event, timeout time.Duration) (*bus.Event, error)
}

// Batch drives batch-compute style fleets: the compute environment is
// enabled or disabled as a whole through a request to the batch scheduler
// daemon's control subject.
type Batch struct {
	bus     ControlBus
	source  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewBatch creates the batch adapter. timeout bounds every control
// round-trip; an expired wait reads as backend unavailability, never as
// success or failure of the action.
func NewBatch(controlBus ControlBus, source string, timeout time.Duration, logger *slog.Logger) *Batch {
	return &Batch{
		bus:     controlBus,
		source:  source,
		timeout: timeout,
		logger:  logger.With("component", "backend-batch"),
	}
}

func (b *Batch) Kind() cluster.SchedulerKind {
	return cluster.SchedulerBatch
}

func (b *Batch) Validate(requested fleet.RequestedStatus) (fleet.Transition, error) {
	switch requested {
	case fleet.RequestedEnabled:
		return fleet.TransitionStart, nil
	case fleet.RequestedDisabled:
		return fleet.TransitionStop, nil
	default:
		return "", invalidTransition(requested, "batch",
			string(fleet.RequestedEnabled), string(fleet.RequestedDisabled))
	}
}

func (b *Batch) Apply(ctx context.Context, ref cluster.Ref, t fleet.Transition) error {
	action := "enable"
	if t == fleet.TransitionStop {
		action = "disable"
	}
	b.logger.Info("requesting compute environment change", "cluster", ref.Name, "action", action)

	reply, err := b.control(ctx, ref.Name, action)
	if err != nil {
		return err
	}
	if !reply.OK {
		return fmt.Errorf("%w: %s", ErrRejected, reply.Reason)
	}
	return nil
}

func (b *Batch) Probe(ctx context.Context, ref cluster.Ref) (fleet.Status, error) {
	reply, err := b.control(ctx, ref.Name, "status")
	if err != nil {
		return fleet.StatusUnknown, err
	}
	if !reply.OK {
		return fleet.StatusUnknown, fmt.Errorf("%w: %s", ErrRejected, reply.Reason)
	}

	status := fleet.Status(reply.Status)
	switch status {
	case fleet.StatusStopped, fleet.StatusStopping, fleet.StatusStarting,
		fleet.StatusRunning, fleet.StatusProtected:
		return status, nil
	default:
		return fleet.StatusUnknown, nil
	}
}

func (b *Batch) control(ctx context.Context, clusterName, action string) (*bus.BatchControlReply, error) {
	ev, err := bus.NewEvent("batch.control", b.source, bus.BatchControlRequest{
		Cluster: clusterName,
		Action:  action,
	})
	if err != nil {
		return nil, fmt.Errorf("build control request: %w", err)
	}

	timeout := b.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	replyEv, err := b.bus.Request(bus.BatchControlSubject(clusterName), ev, timeout)
	if errors.Is(err, bus.ErrTimeout) || errors.Is(err, bus.ErrNoResponders) {
		return nil, fmt.Errorf("%w: batch scheduler for cluster %q not responding", ErrUnavailable, clusterName)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	var reply bus.BatchControlReply
	if err := json.Unmarshal(replyEv.Data, &reply); err != nil {
		return nil, fmt.Errorf("%w: malformed control reply: %s", ErrUnavailable, err)
	}
	return &reply, nil
}
