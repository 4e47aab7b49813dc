// Package store is the in-memory slot and booking state of one session.
//
// A slot is booked when its index lies in the pre-seeded block of its
// location (index < BookedCount) or when the ledger holds a record for it.
// Both sources are only ever consulted through locationState.isBooked.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	parkingerrors "parkly/internal/parking/errors"
	"parkly/internal/parking/validator"
	"parkly/pkg/model"
)

// Options selects the deployment profile of a store.
type Options struct {
	PricingEnabled bool
	HourlyRate     int64
	AdminEnabled   bool

	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() string
}

type locationState struct {
	mu       sync.Mutex
	location model.Location
	ledger   map[int]*model.Booking
}

type Store struct {
	order     []string
	locations map[string]*locationState
	validator *validator.BookingValidator
	opts      Options
}

// New builds a store over the given catalog. Location names must be unique
// and seed counts non-negative.
func New(locations []model.Location, v *validator.BookingValidator, opts Options) (*Store, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: validator is required", parkingerrors.ErrInvalidCatalog)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	s := &Store{
		order:     make([]string, 0, len(locations)),
		locations: make(map[string]*locationState, len(locations)),
		validator: v,
		opts:      opts,
	}

	for _, loc := range locations {
		if loc.Name == "" {
			return nil, fmt.Errorf("%w: location name is empty", parkingerrors.ErrInvalidCatalog)
		}
		if _, dup := s.locations[loc.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate location %q", parkingerrors.ErrInvalidCatalog, loc.Name)
		}
		if loc.BookedCount < 0 || loc.VacantCount < 0 {
			return nil, fmt.Errorf("%w: %q has negative seed counts", parkingerrors.ErrInvalidCatalog, loc.Name)
		}
		s.order = append(s.order, loc.Name)
		s.locations[loc.Name] = &locationState{
			location: loc,
			ledger:   make(map[int]*model.Booking),
		}
	}

	return s, nil
}

func (s *Store) ListLocations() []model.Location {
	out := make([]model.Location, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.locations[name].location)
	}
	return out
}

func (s *Store) GetLocation(name string) (model.Location, error) {
	ls, err := s.lookup(name)
	if err != nil {
		return model.Location{}, err
	}
	return ls.location, nil
}

func (s *Store) IsSlotBooked(name string, index int) (bool, error) {
	ls, err := s.lookup(name)
	if err != nil {
		return false, err
	}
	if err := ls.checkIndex(index); err != nil {
		return false, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.isBooked(index), nil
}

// FindFirstVacantSlot returns the lowest vacant index. The scan starts after
// the pre-seeded block so the result is deterministic.
func (s *Store) FindFirstVacantSlot(name string) (int, bool, error) {
	ls, err := s.lookup(name)
	if err != nil {
		return 0, false, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	for i := ls.location.BookedCount; i < ls.location.TotalSlots(); i++ {
		if !ls.isBooked(i) {
			return i, true, nil
		}
	}
	return 0, false, nil
}

func (s *Store) BookSlot(name string, index int, req model.BookingRequest) (*model.Booking, error) {
	ls, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if err := ls.checkIndex(index); err != nil {
		return nil, err
	}
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.isBooked(index) {
		return nil, parkingerrors.ErrAlreadyBooked
	}

	now := s.opts.Now()
	booking := &model.Booking{
		ID:            s.opts.NewID(),
		LocationName:  name,
		SlotIndex:     index,
		VehicleModel:  req.VehicleModel,
		VehicleNumber: req.VehicleNumber,
		DurationHours: req.DurationHours,
		Cost:          s.cost(req.DurationHours),
		BookedAt:      now,
		UpdatedAt:     now,
	}
	ls.ledger[index] = booking

	out := *booking
	return &out, nil
}

// UpdateSlot overwrites the record of a slot regardless of its occupancy.
// Indices below the location's BookedCount are pre-seeded and carry no
// record; they are rejected with ErrPreseededSlot, which the admin API
// reports as 409 Conflict. Vacant slots get a fresh record.
func (s *Store) UpdateSlot(name string, index int, req model.BookingRequest, updatedBy string) (*model.Booking, error) {
	if !s.opts.AdminEnabled {
		return nil, parkingerrors.ErrAdminDisabled
	}

	ls, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if err := ls.checkIndex(index); err != nil {
		return nil, err
	}
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	if index < ls.location.BookedCount {
		return nil, parkingerrors.ErrPreseededSlot
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	now := s.opts.Now()
	booking := &model.Booking{
		LocationName:  name,
		SlotIndex:     index,
		VehicleModel:  req.VehicleModel,
		VehicleNumber: req.VehicleNumber,
		DurationHours: req.DurationHours,
		Cost:          s.cost(req.DurationHours),
		UpdatedAt:     now,
		UpdatedBy:     updatedBy,
	}
	if prev, ok := ls.ledger[index]; ok {
		booking.ID = prev.ID
		booking.BookedAt = prev.BookedAt
	} else {
		booking.ID = s.opts.NewID()
		booking.BookedAt = now
	}
	ls.ledger[index] = booking

	out := *booking
	return &out, nil
}

func (s *Store) AggregateCounts(name string) (model.SlotCounts, error) {
	ls, err := s.lookup(name)
	if err != nil {
		return model.SlotCounts{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.counts(), nil
}

// Slots returns the full grid of a location, one entry per index.
func (s *Store) Slots(name string) ([]model.Slot, error) {
	ls, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	slots := make([]model.Slot, ls.location.TotalSlots())
	for i := range slots {
		slots[i] = ls.slot(i)
	}
	return slots, nil
}

// Slot returns a single grid entry together with its ledger record, if any.
func (s *Store) Slot(name string, index int) (model.Slot, error) {
	ls, err := s.lookup(name)
	if err != nil {
		return model.Slot{}, err
	}
	if err := ls.checkIndex(index); err != nil {
		return model.Slot{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.slot(index), nil
}

// Bookings returns the ledger records of a location by ascending index.
func (s *Store) Bookings(name string) ([]model.Booking, error) {
	ls, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	out := make([]model.Booking, 0, len(ls.ledger))
	for _, b := range ls.ledger {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotIndex < out[j].SlotIndex })
	return out, nil
}

func (s *Store) Summary() model.Summary {
	summary := model.Summary{
		Locations:  len(s.order),
		ByLocation: make(map[string]model.SlotCounts, len(s.order)),
	}
	for _, name := range s.order {
		ls := s.locations[name]
		ls.mu.Lock()
		counts := ls.counts()
		ls.mu.Unlock()

		summary.ByLocation[name] = counts
		summary.TotalSlots += ls.location.TotalSlots()
		summary.BookedTotal += counts.BookedTotal
		summary.VacantTotal += counts.VacantTotal
	}
	return summary
}

func (s *Store) PricingEnabled() bool {
	return s.opts.PricingEnabled
}

func (s *Store) lookup(name string) (*locationState, error) {
	ls, ok := s.locations[name]
	if !ok {
		return nil, parkingerrors.ErrLocationNotFound
	}
	return ls, nil
}

func (s *Store) validate(req *model.BookingRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("%w: %w", parkingerrors.ErrValidation, err)
	}
	return nil
}

func (s *Store) cost(hours int) *int64 {
	if !s.opts.PricingEnabled {
		return nil
	}
	c := int64(hours) * s.opts.HourlyRate
	return &c
}

func (ls *locationState) checkIndex(index int) error {
	if index < 0 || index >= ls.location.TotalSlots() {
		return parkingerrors.ErrInvalidIndex
	}
	return nil
}

// isBooked must be called with ls.mu held.
func (ls *locationState) isBooked(index int) bool {
	if index < ls.location.BookedCount {
		return true
	}
	_, ok := ls.ledger[index]
	return ok
}

// counts must be called with ls.mu held.
func (ls *locationState) counts() model.SlotCounts {
	booked := ls.location.BookedCount + len(ls.ledger)
	return model.SlotCounts{
		BookedTotal: booked,
		VacantTotal: ls.location.TotalSlots() - booked,
	}
}

// slot must be called with ls.mu held.
func (ls *locationState) slot(index int) model.Slot {
	slot := model.Slot{
		LocationName: ls.location.Name,
		Index:        index,
		Status:       model.SlotVacant,
		Preseeded:    index < ls.location.BookedCount,
	}
	if ls.isBooked(index) {
		slot.Status = model.SlotBooked
	}
	if b, ok := ls.ledger[index]; ok {
		cp := *b
		slot.Booking = &cp
	}
	return slot
}
