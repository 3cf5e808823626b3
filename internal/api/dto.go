package api

import (
	"github.com/starford/raido/internal/interp"
	"github.com/starford/raido/internal/journal"
)

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	ID string `json:"id" example:"session-1" validate:"required"`
}

// SessionResponse describes one session.
type SessionResponse = journal.SessionRow

// SessionListResponse wraps the session listing.
type SessionListResponse struct {
	Sessions []journal.SessionRow `json:"sessions" validate:"required"`
}

// IngestResponse is returned after stream lines are accepted.
type IngestResponse struct {
	Accepted int  `json:"accepted" example:"3" validate:"required"`
	Skipped  int  `json:"skipped" example:"0" validate:"required"`
	Ready    bool `json:"ready" example:"true" validate:"required"`
}

// SnapshotResponse is the renderer-facing view of a session: the raw
// snapshot plus each node's properties resolved against current state.
type SnapshotResponse struct {
	Snapshot interp.Snapshot           `json:"snapshot" validate:"required"`
	Resolved map[string]map[string]any `json:"resolved,omitempty"`
}

// UserEventRequest is the request body for recording a user interaction.
type UserEventRequest struct {
	SourceNodeID string         `json:"sourceNodeId" example:"btn-1" validate:"required"`
	Name         string         `json:"eventName" example:"click" validate:"required"`
	Arguments    map[string]any `json:"arguments,omitempty"`
}
