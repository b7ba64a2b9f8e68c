package bus

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the standardised envelope for all bus messages.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new Event with a generated ID and current timestamp.
func NewEvent(eventType, source string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Marshal serialises the event to JSON bytes.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent deserialises an event from JSON bytes.
func UnmarshalEvent(data []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(data, &ev)
	return ev, err
}

// FleetStatusData is the payload for fleet status change events.
type FleetStatusData struct {
	Cluster   string `json:"cluster"`
	Scheduler string `json:"scheduler"`
	Status    string `json:"status"`
	Requested string `json:"requested,omitempty"`
}

// BatchControlRequest is the request payload sent to a batch scheduler
// daemon's control subject.
type BatchControlRequest struct {
	Cluster string `json:"cluster"`
	Action  string `json:"action"` // "enable", "disable", or "status"
}

// BatchControlReply is the batch scheduler daemon's reply.
type BatchControlReply struct {
	OK     bool   `json:"ok"`
	Status string `json:"status,omitempty"`
	Reason string `json:"reason,omitempty"`
}
