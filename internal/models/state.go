package models

import "time"

// ResponseKind is what a guest's next message is expected to answer
type ResponseKind string

const (
	AwaitingAvailability ResponseKind = "awaiting_availability"
	AwaitingRSVP         ResponseKind = "awaiting_rsvp"
)

// GuestResponseState marks that the next inbound message from Phone is a
// guest reply for EventID rather than a planner message.
type GuestResponseState struct {
	Phone     string       `json:"phone"`
	EventID   int64        `json:"event_id"`
	Kind      ResponseKind `json:"kind"`
	Scratch   string       `json:"scratch,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
