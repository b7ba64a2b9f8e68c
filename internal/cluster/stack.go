package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// Stack label vocabulary. Every container belonging to a cluster stack
// carries LabelCluster; the head node additionally carries the version and
// scheduler tags this package resolves from.
const (
	LabelCluster   = "corral.cluster"
	LabelRole      = "corral.role"
	LabelVersion   = "corral.version"
	LabelScheduler = "corral.scheduler"

	RoleHead    = "head"
	RoleCompute = "compute"
)

// ErrStackNotFound reports that a cluster's backing stack is absent. The
// caller cannot tell whether it never existed or has since been torn down.
var ErrStackNotFound = errors.New("cluster: stack not found")

// Stack probes the infrastructure backing a cluster. Existence and the
// creation-time attributes are read through here; the stack itself is
// managed elsewhere.
type Stack interface {
	Describe(ctx context.Context, name string) (Ref, error)
}

// DockerStack resolves cluster stacks from the local Docker engine: the
// head node container is the stack's anchor and carries its metadata.
type DockerStack struct {
	docker *client.Client
	logger *slog.Logger
}

// NewDockerStack creates a Docker-backed stack probe.
func NewDockerStack(docker *client.Client, logger *slog.Logger) *DockerStack {
	return &DockerStack{
		docker: docker,
		logger: logger.With("component", "stack"),
	}
}

func (s *DockerStack) Describe(ctx context.Context, name string) (Ref, error) {
	f := filters.NewArgs()
	f.Add("label", LabelCluster+"="+name)
	f.Add("label", LabelRole+"="+RoleHead)

	containers, err := s.docker.ContainerList(ctx, container.ListOptions{
		All:     true, // a stopped head node still anchors the stack
		Filters: f,
	})
	if err != nil {
		return Ref{}, fmt.Errorf("list head node for cluster %q: %w", name, err)
	}
	if len(containers) == 0 {
		return Ref{}, ErrStackNotFound
	}

	head := containers[0]
	ref := Ref{
		Name:      name,
		Scheduler: SchedulerKind(head.Labels[LabelScheduler]),
		Version:   head.Labels[LabelVersion],
	}

	s.logger.Debug("stack resolved",
		"cluster", name,
		"scheduler", string(ref.Scheduler),
		"version", ref.Version,
		"head_state", head.State,
	)
	return ref, nil
}
