package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sms-planner/internal/models"
)

const guestColumns = `id, event_id, name, phone, rsvp_status, availability_provided`

// AddGuest adds a guest to an event. A phone already on the event yields
// ErrDuplicateGuest.
func (q *Queries) AddGuest(ctx context.Context, eventID int64, name, phone string) (*models.Guest, error) {
	var id int64
	err := q.queryRow(ctx,
		`INSERT INTO guests (event_id, name, phone, rsvp_status, availability_provided)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (event_id, phone) DO NOTHING RETURNING id`,
		eventID, name, phone, models.RSVPPending, false).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDuplicateGuest
		}
		return nil, fmt.Errorf("failed to add guest: %w", err)
	}
	return &models.Guest{
		ID:         id,
		EventID:    eventID,
		Name:       name,
		Phone:      phone,
		RSVPStatus: models.RSVPPending,
	}, nil
}

// ListGuests returns an event's guests in the order they were added.
func (q *Queries) ListGuests(ctx context.Context, eventID int64) ([]models.Guest, error) {
	rows, err := q.query(ctx, `SELECT `+guestColumns+` FROM guests WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	defer rows.Close()

	var guests []models.Guest
	for rows.Next() {
		var g models.Guest
		if err := rows.Scan(&g.ID, &g.EventID, &g.Name, &g.Phone, &g.RSVPStatus, &g.AvailabilityProvided); err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

// GuestByPhone finds the guest with phone on an event.
func (q *Queries) GuestByPhone(ctx context.Context, eventID int64, phone string) (*models.Guest, error) {
	var g models.Guest
	err := q.queryRow(ctx, `SELECT `+guestColumns+` FROM guests WHERE event_id = ? AND phone = ?`, eventID, phone).
		Scan(&g.ID, &g.EventID, &g.Name, &g.Phone, &g.RSVPStatus, &g.AvailabilityProvided)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load guest: %w", err)
	}
	return &g, nil
}

// SetAvailabilityProvided flags whether the guest has answered.
func (q *Queries) SetAvailabilityProvided(ctx context.Context, guestID int64, provided bool) error {
	_, err := q.exec(ctx, `UPDATE guests SET availability_provided = ? WHERE id = ?`, provided, guestID)
	if err != nil {
		return fmt.Errorf("failed to update guest: %w", err)
	}
	return nil
}

// UpdateRSVP updates the RSVP status for a guest.
func (q *Queries) UpdateRSVP(ctx context.Context, guestID int64, status models.RSVPStatus) error {
	_, err := q.exec(ctx, `UPDATE guests SET rsvp_status = ? WHERE id = ?`, status, guestID)
	if err != nil {
		return fmt.Errorf("failed to update rsvp: %w", err)
	}
	return nil
}

// UpsertContact saves name/phone to the planner's contact book, renaming
// an existing entry with the same phone.
func (q *Queries) UpsertContact(ctx context.Context, plannerID int64, name, phone string) error {
	_, err := q.exec(ctx,
		`INSERT INTO contacts (planner_id, name, phone) VALUES (?, ?, ?)
		 ON CONFLICT (planner_id, phone) DO UPDATE SET name = excluded.name`,
		plannerID, name, phone)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}
	return nil
}

// ListContacts returns the planner's contacts ordered by name.
func (q *Queries) ListContacts(ctx context.Context, plannerID int64) ([]models.Contact, error) {
	rows, err := q.query(ctx,
		`SELECT id, planner_id, name, phone FROM contacts WHERE planner_id = ? ORDER BY LOWER(name), id`,
		plannerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.PlannerID, &c.Name, &c.Phone); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// DeleteContact removes one contact owned by the planner.
func (q *Queries) DeleteContact(ctx context.Context, plannerID, contactID int64) error {
	_, err := q.exec(ctx, `DELETE FROM contacts WHERE planner_id = ? AND id = ?`, plannerID, contactID)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	return nil
}
