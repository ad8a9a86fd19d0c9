package model

import "time"

// Action is the kind of audited operation performed on a document.
type Action string

const (
	ActionCreated    Action = "created"
	ActionViewed     Action = "viewed"
	ActionUpdated    Action = "updated"
	ActionDeleted    Action = "deleted"
	ActionDownloaded Action = "downloaded"
)

// HistoryEvent is one immutable audit record for a document action.
// Events are append-only: they are never updated or deleted, and they outlive
// the document they reference (DocumentID is a soft reference).
type HistoryEvent struct {
	ID         int64          `json:"id"`
	DocumentID string         `json:"document_id"`
	Action     Action         `json:"action"`
	ActorID    string         `json:"actor_id"`
	Details    map[string]any `json:"details"`
	Origin     string         `json:"origin"`
	CreatedAt  time.Time      `json:"created_at"`
}
