package model

// Coordinates is a map position for a location marker.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location is one parking site of the catalog. BookedCount and VacantCount
// are seed values read once at start-up; they never change afterwards.
type Location struct {
	Name        string       `json:"name"`
	BookedCount int          `json:"booked_count"`
	VacantCount int          `json:"vacant_count"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	LiveUpdate  string       `json:"live_update,omitempty"`
	Places      []string     `json:"places,omitempty"`
}

// TotalSlots is the fixed capacity of the location.
func (l Location) TotalSlots() int {
	return l.BookedCount + l.VacantCount
}

type SlotCounts struct {
	BookedTotal int `json:"booked_total"`
	VacantTotal int `json:"vacant_total"`
}

// LocationView is a catalog entry together with the session's live counts.
type LocationView struct {
	Location
	TotalSlots    int        `json:"total_slots"`
	Counts        SlotCounts `json:"counts"`
	SuggestedSlot *int       `json:"suggested_slot"`
}

type Summary struct {
	Locations   int                   `json:"locations"`
	TotalSlots  int                   `json:"total_slots"`
	BookedTotal int                   `json:"booked_total"`
	VacantTotal int                   `json:"vacant_total"`
	ByLocation  map[string]SlotCounts `json:"by_location"`
}
