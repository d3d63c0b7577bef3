package models

// Guest represents an invitee on a single event
type Guest struct {
	ID                   int64      `json:"id"`
	EventID              int64      `json:"event_id"`
	Name                 string     `json:"name"`
	Phone                string     `json:"phone"`
	RSVPStatus           RSVPStatus `json:"rsvp_status"`
	AvailabilityProvided bool       `json:"availability_provided"`
}

// RSVPStatus represents the attendance confirmation status
type RSVPStatus string

const (
	RSVPPending RSVPStatus = "pending"
	RSVPYes     RSVPStatus = "yes"
	RSVPNo      RSVPStatus = "no"
	RSVPMaybe   RSVPStatus = "maybe"
)

// Contact is a planner's address book entry
type Contact struct {
	ID        int64  `json:"id"`
	PlannerID int64  `json:"planner_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
}

// Planner is the person organizing events from their own phone
type Planner struct {
	ID    int64  `json:"id"`
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
}
