package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sms-planner/internal/models"
)

// GetResponseState returns the open guest response state for phone.
func (q *Queries) GetResponseState(ctx context.Context, phone string) (*models.GuestResponseState, error) {
	var st models.GuestResponseState
	err := q.queryRow(ctx,
		`SELECT phone, event_id, kind, scratch, created_at FROM guest_response_states WHERE phone = ?`, phone).
		Scan(&st.Phone, &st.EventID, &st.Kind, &st.Scratch, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load guest response state: %w", err)
	}
	return &st, nil
}

// PutResponseState opens (or replaces) the state for st.Phone; a phone has
// at most one.
func (q *Queries) PutResponseState(ctx context.Context, st models.GuestResponseState) error {
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	_, err := q.exec(ctx,
		`INSERT INTO guest_response_states (phone, event_id, kind, scratch, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (phone) DO UPDATE SET
		   event_id = excluded.event_id, kind = excluded.kind,
		   scratch = excluded.scratch, created_at = excluded.created_at`,
		st.Phone, st.EventID, st.Kind, st.Scratch, st.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save guest response state: %w", err)
	}
	return nil
}

// DeleteResponseState clears the state for phone if it still belongs to
// eventID. A state another event has put in its place is left alone.
func (q *Queries) DeleteResponseState(ctx context.Context, phone string, eventID int64) error {
	_, err := q.exec(ctx, `DELETE FROM guest_response_states WHERE phone = ? AND event_id = ?`, phone, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete guest response state: %w", err)
	}
	return nil
}

// DeleteStaleResponseStates drops states for phone that belong to any
// event other than keepEventID.
func (q *Queries) DeleteStaleResponseStates(ctx context.Context, phone string, keepEventID int64) error {
	_, err := q.exec(ctx, `DELETE FROM guest_response_states WHERE phone = ? AND event_id <> ?`, phone, keepEventID)
	if err != nil {
		return fmt.Errorf("failed to delete stale guest response states: %w", err)
	}
	return nil
}
