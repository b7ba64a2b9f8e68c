package cluster

import (
	"strings"
)

// SchedulerKind identifies which backend technology manages a cluster's
// compute fleet. Fixed at cluster creation; never changes afterwards.
type SchedulerKind string

const (
	// SchedulerNodeManager is a resource-manager style scheduler: the
	// fleet is a set of compute node containers started and stopped
	// individually.
	SchedulerNodeManager SchedulerKind = "nodemgr"

	// SchedulerBatch is a batch-compute style scheduler: the fleet is a
	// managed compute environment toggled enabled/disabled as a whole.
	SchedulerBatch SchedulerKind = "batch"
)

// Valid reports whether k names a known scheduler kind.
func (k SchedulerKind) Valid() bool {
	return k == SchedulerNodeManager || k == SchedulerBatch
}

// Ref is a resolved cluster reference: identity plus the immutable
// attributes stamped on its stack at creation time.
type Ref struct {
	Name      string
	Scheduler SchedulerKind
	Version   string // control-plane version tag, e.g. "3.9.1"
}

// Gate rejects clusters whose control-plane version belongs to a different
// major version family than this build supports.
type Gate struct {
	SupportedMajor string
}

// NewGate derives the gate from a full version string ("3.9.1" -> "3").
func NewGate(version string) Gate {
	return Gate{SupportedMajor: majorOf(version)}
}

// Check returns true if the cluster's version tag is from the supported
// major family. Pure; callers treat false as a hard rejection.
func (g Gate) Check(ref Ref) bool {
	if ref.Version == "" {
		return false
	}
	return majorOf(ref.Version) == g.SupportedMajor
}

func majorOf(version string) string {
	if i := strings.IndexByte(version, '.'); i >= 0 {
		return version[:i]
	}
	return version
}
