package model

type SlotStatus string

const (
	SlotVacant SlotStatus = "vacant"
	SlotBooked SlotStatus = "booked"
)

type Slot struct {
	LocationName string     `json:"location_name"`
	Index        int        `json:"index"`
	Status       SlotStatus `json:"status"`
	Preseeded    bool       `json:"preseeded"`
	Booking      *Booking   `json:"booking,omitempty"`
}

func (s Slot) IsBooked() bool {
	return s.Status == SlotBooked
}

type Suggestion struct {
	LocationName string `json:"location_name"`
	Index        *int   `json:"index"`
	Available    bool   `json:"available"`
}
