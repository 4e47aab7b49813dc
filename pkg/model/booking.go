package model

import "time"

const (
	MinDurationHours = 1
	MaxDurationHours = 12
)

type Booking struct {
	ID            string    `json:"id"`
	LocationName  string    `json:"location_name"`
	SlotIndex     int       `json:"slot_index"`
	VehicleModel  string    `json:"vehicle_model"`
	VehicleNumber string    `json:"vehicle_number"`
	DurationHours int       `json:"duration_hours"`
	Cost          *int64    `json:"cost,omitempty"`
	BookedAt      time.Time `json:"booked_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	UpdatedBy     string    `json:"updated_by,omitempty"`
}

// BookingRequest is what the booking form collects for one slot.
type BookingRequest struct {
	VehicleModel  string `json:"vehicle_model" validate:"required,not_blank,max=60"`
	VehicleNumber string `json:"vehicle_number" validate:"required,not_blank,max=20"`
	DurationHours int    `json:"duration_hours" validate:"min=1,max=12"`
}
