package protocol

import "time"

// UserEvent is the outbound record of one user interaction on a rendered
// node. The interpreter only supplies the data; packaging it with the
// current layout, state, and catalog reference into an upstream request is
// the transport collaborator's job.
type UserEvent struct {
	SourceNodeID string         `json:"sourceNodeId"`
	Name         string         `json:"eventName"`
	Timestamp    time.Time      `json:"timestamp"`
	Arguments    map[string]any `json:"arguments,omitempty"`
}

// NewUserEvent stamps an event with the current time.
func NewUserEvent(sourceNodeID, name string, args map[string]any) UserEvent {
	return UserEvent{
		SourceNodeID: sourceNodeID,
		Name:         name,
		Timestamp:    time.Now().UTC(),
		Arguments:    args,
	}
}
