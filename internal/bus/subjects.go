package bus

import "fmt"

// Subject hierarchy constants for the corral message bus.
const (
	// Fleet lifecycle subjects.
	SubjectFleetStartRequested = "corral.fleet.%s.start_requested"
	SubjectFleetStopRequested  = "corral.fleet.%s.stop_requested"
	SubjectFleetStatusChanged  = "corral.fleet.%s.status_changed"

	// Batch scheduler control subjects (request/reply).
	SubjectBatchControl = "corral.batch.%s.control"

	// Wildcard patterns for subscriptions.
	SubjectAllFleet = "corral.fleet.>"
	SubjectAllBatch = "corral.batch.>"
	SubjectAll      = "corral.>"
)

// FleetSubject returns a subject for a specific cluster's fleet event.
func FleetSubject(pattern, cluster string) string {
	return fmt.Sprintf(pattern, cluster)
}

// BatchControlSubject returns the control subject for a cluster's batch
// scheduler daemon.
func BatchControlSubject(cluster string) string {
	return fmt.Sprintf(SubjectBatchControl, cluster)
}
