package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"erpdocs/internal/model"
	"erpdocs/internal/repository"
)

// HistoryPostgres is a PostgreSQL implementation of repository.HistoryRepository.
// Inserts only; the audit trail is never updated or deleted.
type HistoryPostgres struct {
	db *sql.DB
}

// NewHistoryPostgres creates a new HistoryPostgres repository.
func NewHistoryPostgres(db *sql.DB) *HistoryPostgres {
	return &HistoryPostgres{db: db}
}

var _ repository.HistoryRepository = (*HistoryPostgres)(nil)

// Append inserts one audit event and returns it with its assigned ID.
func (r *HistoryPostgres) Append(ctx context.Context, ev *model.HistoryEvent) (*model.HistoryEvent, error) {
	details := ev.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("encode details: %w", err)
	}

	const q = `
		INSERT INTO document_history (document_id, action, actor_id, details, origin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	out := *ev
	if err := r.db.QueryRowContext(ctx, q,
		ev.DocumentID, ev.Action, ev.ActorID, raw, ev.Origin, ev.CreatedAt,
	).Scan(&out.ID); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByDocument returns a document's events ordered by creation time, with
// the auto-increment ID breaking ties in insertion order.
func (r *HistoryPostgres) ListByDocument(ctx context.Context, documentID string) ([]model.HistoryEvent, error) {
	const q = `
		SELECT id, document_id, action, actor_id, details, origin, created_at
		FROM document_history
		WHERE document_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.HistoryEvent, 0)
	for rows.Next() {
		var ev model.HistoryEvent
		var raw []byte
		if err := rows.Scan(&ev.ID, &ev.DocumentID, &ev.Action, &ev.ActorID, &raw, &ev.Origin, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &ev.Details); err != nil {
				return nil, fmt.Errorf("decode details: %w", err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
