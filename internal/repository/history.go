package repository

import (
	"context"

	"erpdocs/internal/model"
)

// HistoryRepository defines data access for the document audit trail.
// The trail is append-only: there are no update or delete operations, and
// events reference documents softly so they survive document deletion.
type HistoryRepository interface {
	// Append inserts one event and returns it with its assigned ID.
	Append(ctx context.Context, ev *model.HistoryEvent) (*model.HistoryEvent, error)

	// ListByDocument returns all events for a document ordered by creation
	// time, ties broken by insertion order.
	ListByDocument(ctx context.Context, documentID string) ([]model.HistoryEvent, error)
}
