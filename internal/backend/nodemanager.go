package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"

	"corral/internal/cluster"
	"corral/internal/fleet"
)

// LabelProtected marks a compute node whose capacity is safeguarded against
// disruption; its presence freezes the whole fleet.
const LabelProtected = "corral.protected"

// NodeManager drives resource-manager style fleets: compute capacity is a
// set of node containers started and stopped individually through the
// Docker engine.
type NodeManager struct {
	docker *client.Client
	logger *slog.Logger
}

// NewNodeManager creates the node-manager adapter.
func NewNodeManager(docker *client.Client, logger *slog.Logger) *NodeManager {
	return &NodeManager{
		docker: docker,
		logger: logger.With("component", "backend-nodemgr"),
	}
}

func (n *NodeManager) Kind() cluster.SchedulerKind {
	return cluster.SchedulerNodeManager
}

func (n *NodeManager) Validate(requested fleet.RequestedStatus) (fleet.Transition, error) {
	switch requested {
	case fleet.RequestedStart:
		return fleet.TransitionStart, nil
	case fleet.RequestedStop:
		return fleet.TransitionStop, nil
	default:
		return "", invalidTransition(requested, "node-manager",
			string(fleet.RequestedStart), string(fleet.RequestedStop))
	}
}

func (n *NodeManager) Apply(ctx context.Context, ref cluster.Ref, t fleet.Transition) error {
	nodes, err := n.computeNodes(ctx, ref.Name)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	for _, node := range nodes {
		if node.Labels[LabelProtected] == "true" {
			return fmt.Errorf("%w: compute node %s is protected", ErrRejected, nodeName(node))
		}
	}

	for _, node := range nodes {
		name := nodeName(node)
		var actErr error
		switch t {
		case fleet.TransitionStart:
			n.logger.Info("starting compute node", "cluster", ref.Name, "node", name)
			actErr = n.docker.ContainerStart(ctx, node.ID, container.StartOptions{})
		case fleet.TransitionStop:
			n.logger.Info("stopping compute node", "cluster", ref.Name, "node", name)
			actErr = n.docker.ContainerStop(ctx, node.ID, container.StopOptions{})
		}
		// Already in the requested state: acknowledged no-op.
		if actErr != nil && errdefs.IsNotModified(actErr) {
			actErr = nil
		}
		if actErr != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %s", ErrUnavailable, ctx.Err())
			}
			return fmt.Errorf("%w: %s node %q: %s", ErrUnavailable, t, name, actErr)
		}
	}
	return nil
}

func (n *NodeManager) Probe(ctx context.Context, ref cluster.Ref) (fleet.Status, error) {
	nodes, err := n.computeNodes(ctx, ref.Name)
	if err != nil {
		return fleet.StatusUnknown, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	running, stopped := 0, 0
	for _, node := range nodes {
		if node.Labels[LabelProtected] == "true" {
			return fleet.StatusProtected, nil
		}
		if node.State == "running" {
			running++
		} else {
			stopped++
		}
	}

	switch {
	case running == 0:
		return fleet.StatusStopped, nil
	case stopped == 0:
		return fleet.StatusRunning, nil
	default:
		// Partially converged fleets read as starting; the direction of
		// travel isn't observable from container state alone.
		return fleet.StatusStarting, nil
	}
}

func (n *NodeManager) computeNodes(ctx context.Context, clusterName string) ([]types.Container, error) {
	f := filters.NewArgs()
	f.Add("label", cluster.LabelCluster+"="+clusterName)
	f.Add("label", cluster.LabelRole+"="+cluster.RoleCompute)

	return n.docker.ContainerList(ctx, container.ListOptions{
		All:     true, // include stopped
		Filters: f,
	})
}

func nodeName(c types.Container) string {
	if len(c.Names) > 0 {
		name := c.Names[0]
		// Docker prefixes names with /
		if len(name) > 0 && name[0] == '/' {
			name = name[1:]
		}
		return name
	}
	if len(c.ID) >= 12 {
		return c.ID[:12]
	}
	return c.ID
}
