package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sms-planner/internal/models"
)

const eventColumns = `id, planner_id, status, current_stage, previous_stage, proposed_dates,
	selected_date, selected_start, selected_end, selected_venue, selected_guests,
	user_set_start_time, start_time, activity, location, venue_options, venue_exclusions, notes,
	created_at, updated_at`

// ActiveEvent returns the planner's planning-status event.
func (q *Queries) ActiveEvent(ctx context.Context, plannerID int64) (*models.Event, error) {
	return q.scanEvent(q.queryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE planner_id = ? AND status = ?`,
		plannerID, models.EventPlanning))
}

// GetEvent loads an event by id.
func (q *Queries) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	return q.scanEvent(q.queryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
}

// CreateEvent opens a new planning event in the given stage. The unique
// index rejects a second planning event for the same planner.
func (q *Queries) CreateEvent(ctx context.Context, plannerID int64, stage models.Stage) (*models.Event, error) {
	now := time.Now().UTC()
	var id int64
	err := q.queryRow(ctx,
		`INSERT INTO events (planner_id, status, current_stage, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		plannerID, models.EventPlanning, stage, now, now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return q.GetEvent(ctx, id)
}

// UpdateEvent writes every mutable column of ev.
func (q *Queries) UpdateEvent(ctx context.Context, ev *models.Event) error {
	enc, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	ev.UpdatedAt = time.Now().UTC()

	_, err = q.exec(ctx, `UPDATE events SET
		status = ?, current_stage = ?, previous_stage = ?, proposed_dates = ?,
		selected_date = ?, selected_start = ?, selected_end = ?, selected_venue = ?,
		selected_guests = ?, user_set_start_time = ?, start_time = ?, activity = ?, location = ?,
		venue_options = ?, venue_exclusions = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		ev.Status, ev.CurrentStage, ev.PreviousStage, enc.proposed,
		enc.selectedDate, int(ev.SelectedStart), int(ev.SelectedEnd), enc.venue,
		enc.selectedGuests, ev.UserSetStartTime, int(ev.StartTime), ev.Activity, ev.Location,
		enc.options, enc.exclusions, ev.Notes, ev.UpdatedAt,
		ev.ID)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

// CancelEvent marks the event cancelled and drops its guests, availability
// and any open guest response states pointing at it.
func (q *Queries) CancelEvent(ctx context.Context, id int64) error {
	stmts := []string{
		`DELETE FROM guest_response_states WHERE event_id = ?`,
		`DELETE FROM availabilities WHERE event_id = ?`,
		`DELETE FROM guests WHERE event_id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := q.exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to cancel event: %w", err)
		}
	}
	_, err := q.exec(ctx, `UPDATE events SET status = ?, updated_at = ? WHERE id = ?`,
		models.EventCancelled, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to cancel event: %w", err)
	}
	return nil
}

type encodedEvent struct {
	proposed       string
	selectedDate   string
	venue          string
	selectedGuests string
	options        string
	exclusions     string
}

func encodeEvent(ev *models.Event) (encodedEvent, error) {
	var enc encodedEvent

	dates := make([]string, len(ev.ProposedDates))
	for i, d := range ev.ProposedDates {
		dates[i] = d.Format(models.DateLayout)
	}
	if err := marshalInto(&enc.proposed, dates); err != nil {
		return enc, err
	}
	if !ev.SelectedDate.IsZero() {
		enc.selectedDate = ev.SelectedDate.Format(models.DateLayout)
	}
	if ev.SelectedVenue != nil {
		if err := marshalInto(&enc.venue, ev.SelectedVenue); err != nil {
			return enc, err
		}
	}
	if err := marshalInto(&enc.selectedGuests, nonNil(ev.SelectedGuests)); err != nil {
		return enc, err
	}
	if err := marshalInto(&enc.options, nonNilVenues(ev.VenueOptions)); err != nil {
		return enc, err
	}
	if err := marshalInto(&enc.exclusions, nonNil(ev.VenueExclusions)); err != nil {
		return enc, err
	}
	return enc, nil
}

func (q *Queries) scanEvent(row *sql.Row) (*models.Event, error) {
	var (
		ev                    models.Event
		enc                   encodedEvent
		start, end, userStart int
	)
	err := row.Scan(&ev.ID, &ev.PlannerID, &ev.Status, &ev.CurrentStage, &ev.PreviousStage, &enc.proposed,
		&enc.selectedDate, &start, &end, &enc.venue, &enc.selectedGuests,
		&ev.UserSetStartTime, &userStart, &ev.Activity, &ev.Location, &enc.options, &enc.exclusions, &ev.Notes,
		&ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	ev.SelectedStart = models.Clock(start)
	ev.SelectedEnd = models.Clock(end)
	ev.StartTime = models.Clock(userStart)

	var dates []string
	if err := unmarshalFrom(enc.proposed, &dates); err != nil {
		return nil, err
	}
	for _, s := range dates {
		d, err := models.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("failed to decode proposed date: %w", err)
		}
		ev.ProposedDates = append(ev.ProposedDates, d)
	}
	if enc.selectedDate != "" {
		d, err := models.ParseDate(enc.selectedDate)
		if err != nil {
			return nil, fmt.Errorf("failed to decode selected date: %w", err)
		}
		ev.SelectedDate = d
	}
	if enc.venue != "" {
		ev.SelectedVenue = &models.Venue{}
		if err := unmarshalFrom(enc.venue, ev.SelectedVenue); err != nil {
			return nil, err
		}
	}
	if err := unmarshalFrom(enc.selectedGuests, &ev.SelectedGuests); err != nil {
		return nil, err
	}
	if err := unmarshalFrom(enc.options, &ev.VenueOptions); err != nil {
		return nil, err
	}
	if err := unmarshalFrom(enc.exclusions, &ev.VenueExclusions); err != nil {
		return nil, err
	}
	if len(ev.SelectedGuests) == 0 {
		ev.SelectedGuests = nil
	}
	if len(ev.VenueOptions) == 0 {
		ev.VenueOptions = nil
	}
	if len(ev.VenueExclusions) == 0 {
		ev.VenueExclusions = nil
	}
	return &ev, nil
}

func marshalInto(dst *string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	*dst = string(b)
	return nil
}

func unmarshalFrom(src string, v any) error {
	if src == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(src), v); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilVenues(v []models.Venue) []models.Venue {
	if v == nil {
		return []models.Venue{}
	}
	return v
}
