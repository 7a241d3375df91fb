package domain

import "encoding/json"

// EventType realtime change event kind
type EventType string

const (
	// EventInsert row inserted
	EventInsert EventType = "insert"
	// EventUpdate row updated
	EventUpdate EventType = "update"
	// EventDelete row deleted
	EventDelete EventType = "delete"
)

// ChangeEvent one committed row change on a subscribed scope
type ChangeEvent struct {
	Type   EventType       `json:"event_type"`
	NewRow json.RawMessage `json:"new_row,omitempty"`
	OldRow json.RawMessage `json:"old_row,omitempty"`
}

// ThreadChannel pub/sub channel carrying one thread's message changes
func ThreadChannel(threadID string) string {
	return "feed:thread:" + threadID
}

// UserChannel pub/sub channel carrying one recipient's notification changes
func UserChannel(userID string) string {
	return "feed:user:" + userID
}

// DecodeRow unmarshal an event row into its concrete type
func DecodeRow[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}
