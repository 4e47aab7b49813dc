package model

import "time"

const (
	EventSlotBooked  = "slot.booked"
	EventSlotUpdated = "slot.updated"
)

// SlotEvent is the payload published after a ledger change.
type SlotEvent struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id"`
	Booking    Booking   `json:"booking"`
	OccurredAt time.Time `json:"occurred_at"`
}
