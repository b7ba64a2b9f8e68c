package fleet

// Status is the observed state of a cluster's compute fleet.
type Status string

const (
	StatusStopped        Status = "STOPPED"
	StatusStopRequested  Status = "STOP_REQUESTED"
	StatusStopping       Status = "STOPPING"
	StatusStartRequested Status = "START_REQUESTED"
	StatusStarting       Status = "STARTING"
	StatusRunning        Status = "RUNNING"
	StatusProtected      Status = "PROTECTED"
	StatusUnknown        Status = "UNKNOWN"
)

// RequestedStatus is the raw value an operator submits on update. The
// accepted vocabulary depends on the cluster's scheduler kind: node-manager
// clusters take START_REQUESTED/STOP_REQUESTED, batch clusters take
// ENABLED/DISABLED.
type RequestedStatus string

const (
	RequestedStart    RequestedStatus = "START_REQUESTED"
	RequestedStop     RequestedStatus = "STOP_REQUESTED"
	RequestedEnabled  RequestedStatus = "ENABLED"
	RequestedDisabled RequestedStatus = "DISABLED"
)

// Transition is a validated intent, independent of the backend vocabulary
// it was requested with.
type Transition string

const (
	TransitionStart Transition = "start"
	TransitionStop  Transition = "stop"
)

// Transitional returns the in-progress status a freshly applied transition
// settles into before the backend converges.
func (t Transition) Transitional() Status {
	if t == TransitionStart {
		return StatusStarting
	}
	return StatusStopping
}

// AllStatuses lists every fleet status value, for gauge fan-out.
func AllStatuses() []string {
	return []string{
		string(StatusStopped), string(StatusStopRequested), string(StatusStopping),
		string(StatusStartRequested), string(StatusStarting), string(StatusRunning),
		string(StatusProtected), string(StatusUnknown),
	}
}

// Terminal reports whether transitions out of s are refused. PROTECTED is
// imposed by the backend (capacity safeguard); UNKNOWN means the backend
// could not be queried. Neither has a recovery path through this API.
func (s Status) Terminal() bool {
	return s == StatusProtected || s == StatusUnknown
}
