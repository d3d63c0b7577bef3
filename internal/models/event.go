package models

import "time"

// EventStatus is the lifecycle of an event
type EventStatus string

const (
	EventPlanning  EventStatus = "planning"
	EventFinalized EventStatus = "finalized"
	EventCancelled EventStatus = "cancelled"
)

// Stage is a state of the planner conversation
type Stage string

const (
	StageNone                   Stage = ""
	StageCollectingName         Stage = "collecting_name"
	StageCollectingGuests       Stage = "collecting_guests"
	StageCollectingDates        Stage = "collecting_dates"
	StageAwaitingConfirmation   Stage = "awaiting_confirmation"
	StageAddingGuest            Stage = "adding_guest"
	StageCollectingAvailability Stage = "collecting_availability"
	StageSelectingTime          Stage = "selecting_time"
	StageSelectingPartialTime   Stage = "selecting_partial_time"
	StageCollectingActivity     Stage = "collecting_activity"
	StageSelectingVenue         Stage = "selecting_venue"
	StageFinalConfirmation      Stage = "final_confirmation"
	StageSettingStartTime       Stage = "setting_start_time"
	StageFinalized              Stage = "finalized"
)

// PastAvailability reports whether the stage comes after the planner
// started looking at overlaps, i.e. a time, activity or venue may
// already have been chosen.
func (s Stage) PastAvailability() bool {
	switch s {
	case StageSelectingTime, StageSelectingPartialTime, StageCollectingActivity,
		StageSelectingVenue, StageFinalConfirmation, StageSettingStartTime:
		return true
	}
	return false
}

// AvailabilityRequested reports whether guests have already been asked
// for their availability when the event is in this stage.
func (s Stage) AvailabilityRequested() bool {
	return s == StageCollectingAvailability || s.PastAvailability()
}

// Event is a single gathering being planned
type Event struct {
	ID            int64       `json:"id"`
	PlannerID     int64       `json:"planner_id"`
	Status        EventStatus `json:"status"`
	CurrentStage  Stage       `json:"current_stage"`
	PreviousStage Stage       `json:"previous_stage,omitempty"`
	ProposedDates []time.Time `json:"proposed_dates,omitempty"`

	SelectedDate     time.Time `json:"selected_date,omitempty"`
	SelectedStart    Clock     `json:"selected_start"`
	SelectedEnd      Clock     `json:"selected_end"`
	SelectedVenue    *Venue    `json:"selected_venue,omitempty"`
	SelectedGuests   []string  `json:"selected_guests,omitempty"`
	UserSetStartTime bool      `json:"user_set_start_time"`
	StartTime        Clock     `json:"start_time,omitempty"`

	Activity        string   `json:"activity,omitempty"`
	Location        string   `json:"location,omitempty"`
	VenueOptions    []Venue  `json:"venue_options,omitempty"`
	VenueExclusions []string `json:"venue_exclusions,omitempty"`

	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasSelection reports whether a time window has been chosen.
func (e *Event) HasSelection() bool {
	return !e.SelectedDate.IsZero()
}

// ClearSelections drops every choice derived from the overlap results.
func (e *Event) ClearSelections() {
	e.SelectedDate = time.Time{}
	e.SelectedStart = 0
	e.SelectedEnd = 0
	e.SelectedVenue = nil
	e.SelectedGuests = nil
	e.UserSetStartTime = false
	e.StartTime = 0
	e.VenueOptions = nil
	e.VenueExclusions = nil
}

// Venue is a place suggestion or the planner's literal pick
type Venue struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link,omitempty"`
}
