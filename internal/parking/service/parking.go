package service

import (
	"context"
	"errors"
	"time"

	parkingerrors "parkly/internal/parking/errors"
	"parkly/internal/parking/events"
	"parkly/internal/parking/store"
	"parkly/internal/parking/validator"
	"parkly/pkg/config"
	apperrors "parkly/pkg/errors"
	"parkly/pkg/model"
	"parkly/pkg/sanitizer"
)

const publishTimeout = 5 * time.Second

type ParkingService interface {
	StartSession(ctx context.Context) (*model.Session, error)
	EndSession(ctx context.Context, sessionID string) error

	ListLocations(ctx context.Context, sessionID string) ([]model.LocationView, error)
	GetLocation(ctx context.Context, sessionID, name string) (*model.LocationView, error)
	Counts(ctx context.Context, sessionID, name string) (*model.SlotCounts, error)
	Suggest(ctx context.Context, sessionID, name string) (*model.Suggestion, error)
	Slots(ctx context.Context, sessionID, name string) ([]model.Slot, error)
	Slot(ctx context.Context, sessionID, name string, index int) (*model.Slot, error)
	Bookings(ctx context.Context, sessionID, name string) ([]model.Booking, error)
	Summary(ctx context.Context, sessionID string) (*model.Summary, error)

	Book(ctx context.Context, sessionID, name string, index int, req model.BookingRequest) (*model.Booking, error)
	Override(ctx context.Context, sessionID, name string, index int, req model.BookingRequest, adminEmail string) (*model.Booking, error)
}

// Sessions is implemented by *session.Manager.
type Sessions interface {
	Create() (model.Session, error)
	Get(id string) (*store.Store, error)
	End(id string) error
}

type parkingService struct {
	sessions  Sessions
	publisher events.Publisher
	cfg       *config.Config
}

func NewParkingService(sessions Sessions, publisher events.Publisher, cfg *config.Config) ParkingService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &parkingService{
		sessions:  sessions,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *parkingService) StartSession(_ context.Context) (*model.Session, error) {
	sess, err := s.sessions.Create()
	if err != nil {
		s.cfg.Log.Error("Failed to create session", "error", err)
		return nil, apperrors.Internal("Failed to create session", err)
	}
	return &sess, nil
}

func (s *parkingService) EndSession(_ context.Context, sessionID string) error {
	if err := s.sessions.End(sessionID); err != nil {
		return s.translateError(err, nil, "", 0)
	}
	return nil
}

func (s *parkingService) ListLocations(_ context.Context, sessionID string) ([]model.LocationView, error) {
	st, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	locations := st.ListLocations()
	views := make([]model.LocationView, 0, len(locations))
	for _, loc := range locations {
		view, err := s.view(st, loc)
		if err != nil {
			return nil, s.translateError(err, st, loc.Name, 0)
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *parkingService) GetLocation(_ context.Context, sessionID, name string) (*model.LocationView, error) {
	st, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	loc, err := st.GetLocation(name)
	if err != nil {
		return nil, s.translateError(err, st, name, 0)
	}
	view, err := s.view(st, loc)
	if err != nil {
		return nil, s.translateError(err, st, name, 0)
	}
	return view, nil
}

func (s *parkingService) Counts(_ context.Context, sessionID, name string) (*model.SlotCounts, error) {
	st, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	counts, err := st.AggregateCounts(name)
	if err != nil {
		return nil, s.translateError(err, st, name, 0)
	}
	return &counts, nil
}

func (s *parkingService) Suggest(_ context.Context, sessionID, name string) (*model.Suggestion, error) {
	st, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	idx, ok, err := st.FindFirstVacantSlot(name)
	if err != nil {
		return nil, s.translateError(err, st, name, 0)
	}

	suggestion := &model.Suggestion{LocationName: name, Available: ok}
	if ok {
		suggestion.Index = &idx
	}
	return suggestion, nil
}

func (s *parkingService) Slots(_ context.Context, sessionID, name string) ([]model.Slot, error) {
	st, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	slots, err := st.Slots(name)
	if err != nil {
		return nil, s.translateError(err, st, name, 0)
	}
	return slots, nil
}

func (s *parkingService) Slot(_ context.Context, sessionID, name string, index int) (*model.Slot, error) {
	st, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	slot, err := st.Slot(name, index)
	if err != nil {
		return nil, s.translateError(err, st, name, index)
	}
	return &slot, nil
}

func (s *parkingService) Bookings(_ context.Context, sessionID, name string) ([]model.Booking, error) {
	st, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	bookings, err := st.Bookings(name)
	if err != nil {
		return nil, s.translateError(err, st, name, 0)
	}
	return bookings, nil
}

func (s *parkingService) Summary(_ context.Context, sessionID string) (*model.Summary, error) {
	st, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	summary := st.Summary()
	return &summary, nil
}

func (s *parkingService) Book(ctx context.Context, sessionID, name string, index int, req model.BookingRequest) (*model.Booking, error) {
	st, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	req = sanitizer.SanitizeBookingRequest(req)
	booking, err := st.BookSlot(name, index, req)
	if err != nil {
		return nil, s.translateError(err, st, name, index)
	}

	s.cfg.Log.Info("Slot booked successfully",
		"session_id", sessionID,
		"booking_id", booking.ID,
		"location", name,
		"index", index,
		"duration_hours", booking.DurationHours,
	)
	s.publish(ctx, model.EventSlotBooked, sessionID, *booking)
	return booking, nil
}

func (s *parkingService) Override(ctx context.Context, sessionID, name string, index int, req model.BookingRequest, adminEmail string) (*model.Booking, error) {
	st, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	req = sanitizer.SanitizeBookingRequest(req)
	booking, err := st.UpdateSlot(name, index, req, adminEmail)
	if err != nil {
		return nil, s.translateError(err, st, name, index)
	}

	s.cfg.Log.Info("Slot overridden by admin",
		"session_id", sessionID,
		"booking_id", booking.ID,
		"location", name,
		"index", index,
		"admin", adminEmail,
	)
	s.publish(ctx, model.EventSlotUpdated, sessionID, *booking)
	return booking, nil
}

func (s *parkingService) session(sessionID string) (*store.Store, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("X-Session-ID header is required")
	}
	st, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, s.translateError(err, nil, "", 0)
	}
	return st, nil
}

func (s *parkingService) view(st *store.Store, loc model.Location) (*model.LocationView, error) {
	counts, err := st.AggregateCounts(loc.Name)
	if err != nil {
		return nil, err
	}
	view := &model.LocationView{
		Location:   loc,
		TotalSlots: loc.TotalSlots(),
		Counts:     counts,
	}
	idx, ok, err := st.FindFirstVacantSlot(loc.Name)
	if err != nil {
		return nil, err
	}
	if ok {
		view.SuggestedSlot = &idx
	}
	return view, nil
}

// publish never fails the caller; the ledger change has already happened.
func (s *parkingService) publish(ctx context.Context, eventType, sessionID string, booking model.Booking) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := model.SlotEvent{
		Type:       eventType,
		SessionID:  sessionID,
		Booking:    booking,
		OccurredAt: booking.UpdatedAt,
	}
	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.cfg.Log.Error("Failed to publish slot event",
			"type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
	}
}

func (s *parkingService) translateError(err error, st *store.Store, name string, index int) error {
	switch {
	case errors.Is(err, parkingerrors.ErrSessionNotFound):
		return apperrors.NotFound("Session")
	case errors.Is(err, parkingerrors.ErrLocationNotFound):
		return apperrors.NotFoundWithID("Location", name)
	case errors.Is(err, parkingerrors.ErrInvalidIndex):
		total := 0
		if st != nil {
			if loc, lerr := st.GetLocation(name); lerr == nil {
				total = loc.TotalSlots()
			}
		}
		return apperrors.InvalidIndex(name, index, total)
	case errors.Is(err, parkingerrors.ErrValidation):
		s.cfg.Log.Warn("Booking rejected by validation", "location", name, "index", index, "error", err)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.Validation("Booking validation failed", verrs.Fields())
		}
		return apperrors.Validation("Booking validation failed", nil)
	case errors.Is(err, parkingerrors.ErrAlreadyBooked):
		return apperrors.AlreadyBooked(name, index)
	case errors.Is(err, parkingerrors.ErrPreseededSlot):
		return apperrors.Conflict("Slot is pre-booked and has no record to override").
			WithDetails(map[string]any{"location": name, "index": index})
	case errors.Is(err, parkingerrors.ErrAdminDisabled):
		return apperrors.Forbidden("Admin profile is disabled")
	default:
		s.cfg.Log.Error("Unexpected parking error", "location", name, "index", index, "error", err)
		return apperrors.Internal("Failed to process parking request", err)
	}
}
