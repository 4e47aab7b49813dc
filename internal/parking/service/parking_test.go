package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"parkly/internal/parking/catalog"
	"parkly/internal/parking/session"
	"parkly/internal/parking/store"
	"parkly/internal/parking/validator"
	"parkly/pkg/config"
	apperrors "parkly/pkg/errors"
	"parkly/pkg/logger"
	"parkly/pkg/model"
)

type mockPublisher struct {
	mu     sync.Mutex
	events []model.SlotEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event model.SlotEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *mockPublisher) Close() error { return nil }

type failingSessions struct{}

func (failingSessions) Create() (model.Session, error)   { return model.Session{}, errors.New("boom") }
func (failingSessions) Get(string) (*store.Store, error) { return nil, errors.New("boom") }
func (failingSessions) End(string) error                 { return errors.New("boom") }

func newTestService(t *testing.T, opts store.Options) (ParkingService, *mockPublisher) {
	t.Helper()

	log := logger.NewNop()
	v := validator.NewBookingValidator(log)
	manager := session.NewManager(func() (*store.Store, error) {
		return store.New(catalog.Locations(), v, opts)
	}, time.Hour, log)

	pub := &mockPublisher{}
	return NewParkingService(manager, pub, &config.Config{Log: log}), pub
}

func startSession(t *testing.T, svc ParkingService) string {
	t.Helper()
	sess, err := svc.StartSession(context.Background())
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	return sess.ID
}

func assertAppError(t *testing.T, err error, code string, status int) *apperrors.AppError {
	t.Helper()
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != code || appErr.StatusCode() != status {
		t.Errorf("got %s/%d, want %s/%d", appErr.Code, appErr.StatusCode(), code, status)
	}
	return appErr
}

var civic = model.BookingRequest{VehicleModel: "Civic", VehicleNumber: "KA01AB1234", DurationHours: 2}

func TestParkingService_BookScenario(t *testing.T) {
	svc, pub := newTestService(t, store.Options{})
	ctx := context.Background()
	sid := startSession(t, svc)

	suggestion, err := svc.Suggest(ctx, sid, "Koramangala")
	if err != nil || !suggestion.Available || *suggestion.Index != 5 {
		t.Fatalf("Suggest() = %+v, %v", suggestion, err)
	}

	booking, err := svc.Book(ctx, sid, "Koramangala", 5, civic)
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	if booking.DurationHours != 2 {
		t.Errorf("DurationHours = %d", booking.DurationHours)
	}

	counts, _ := svc.Counts(ctx, sid, "Koramangala")
	if counts.BookedTotal != 6 || counts.VacantTotal != 9 {
		t.Errorf("Counts() = %+v", counts)
	}

	if len(pub.events) != 1 || pub.events[0].Type != model.EventSlotBooked || pub.events[0].SessionID != sid {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestParkingService_BookSanitizesInput(t *testing.T) {
	svc, _ := newTestService(t, store.Options{})
	sid := startSession(t, svc)

	booking, err := svc.Book(context.Background(), sid, "Koramangala", 6, model.BookingRequest{
		VehicleModel:  "  Honda   City ",
		VehicleNumber: "ka 01-ab 1234",
		DurationHours: 1,
	})
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	if booking.VehicleModel != "Honda City" || booking.VehicleNumber != "KA01AB1234" {
		t.Errorf("booking not normalized: %+v", booking)
	}
}

func TestParkingService_ErrorMapping(t *testing.T) {
	svc, pub := newTestService(t, store.Options{})
	ctx := context.Background()
	sid := startSession(t, svc)

	_, err := svc.Book(ctx, sid, "Atlantis", 0, civic)
	assertAppError(t, err, apperrors.CodeNotFound, http.StatusNotFound)

	_, err = svc.Book(ctx, sid, "Koramangala", 15, civic)
	appErr := assertAppError(t, err, apperrors.CodeInvalidIndex, http.StatusBadRequest)
	if appErr.Details["total_slots"] != 15 {
		t.Errorf("details = %v", appErr.Details)
	}

	_, err = svc.Book(ctx, sid, "Koramangala", 5, model.BookingRequest{VehicleModel: "Civic", VehicleNumber: "KA01", DurationHours: 13})
	appErr = assertAppError(t, err, apperrors.CodeValidation, http.StatusUnprocessableEntity)
	if _, ok := appErr.Details["duration_hours"]; !ok {
		t.Errorf("validation details = %v", appErr.Details)
	}

	_, err = svc.Book(ctx, sid, "Koramangala", 2, civic)
	assertAppError(t, err, apperrors.CodeAlreadyBooked, http.StatusConflict)

	_, err = svc.Override(ctx, sid, "Koramangala", 6, civic, "admin@parkly.test")
	assertAppError(t, err, apperrors.CodeForbidden, http.StatusForbidden)

	if len(pub.events) != 0 {
		t.Errorf("failed operations must not publish, got %+v", pub.events)
	}
}

func TestParkingService_SessionErrors(t *testing.T) {
	svc, _ := newTestService(t, store.Options{})
	ctx := context.Background()

	_, err := svc.ListLocations(ctx, "")
	assertAppError(t, err, apperrors.CodeInvalidInput, http.StatusBadRequest)

	_, err = svc.ListLocations(ctx, "unknown")
	assertAppError(t, err, apperrors.CodeNotFound, http.StatusNotFound)

	err = svc.EndSession(ctx, "unknown")
	assertAppError(t, err, apperrors.CodeNotFound, http.StatusNotFound)

	sid := startSession(t, svc)
	if err := svc.EndSession(ctx, sid); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	_, err = svc.Summary(ctx, sid)
	assertAppError(t, err, apperrors.CodeNotFound, http.StatusNotFound)
}

func TestParkingService_UnexpectedSessionFailure(t *testing.T) {
	svc := NewParkingService(failingSessions{}, nil, &config.Config{Log: logger.NewNop()})

	_, err := svc.StartSession(context.Background())
	assertAppError(t, err, apperrors.CodeInternal, http.StatusInternalServerError)

	_, err = svc.Summary(context.Background(), "x")
	assertAppError(t, err, apperrors.CodeInternal, http.StatusInternalServerError)
}

func TestParkingService_Override(t *testing.T) {
	svc, pub := newTestService(t, store.Options{AdminEnabled: true})
	ctx := context.Background()
	sid := startSession(t, svc)

	if _, err := svc.Book(ctx, sid, "Koramangala", 5, civic); err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	updated, err := svc.Override(ctx, sid, "Koramangala", 5, model.BookingRequest{
		VehicleModel: "Swift", VehicleNumber: "KA05MN9876", DurationHours: 6,
	}, "admin@parkly.test")
	if err != nil {
		t.Fatalf("Override() error = %v", err)
	}
	if updated.VehicleModel != "Swift" || updated.UpdatedBy != "admin@parkly.test" {
		t.Errorf("Override() = %+v", updated)
	}

	_, err = svc.Override(ctx, sid, "Koramangala", 0, civic, "admin@parkly.test")
	assertAppError(t, err, apperrors.CodeConflict, http.StatusConflict)

	if len(pub.events) != 2 || pub.events[1].Type != model.EventSlotUpdated {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestParkingService_PublishFailureDoesNotFailBooking(t *testing.T) {
	svc, pub := newTestService(t, store.Options{})
	pub.err = errors.New("broker down")
	sid := startSession(t, svc)

	if _, err := svc.Book(context.Background(), sid, "Koramangala", 5, civic); err != nil {
		t.Fatalf("Book() error = %v", err)
	}
}

func TestParkingService_ReadViews(t *testing.T) {
	svc, _ := newTestService(t, store.Options{})
	ctx := context.Background()
	sid := startSession(t, svc)
	_, _ = svc.Book(ctx, sid, "Koramangala", 5, civic)

	views, err := svc.ListLocations(ctx, sid)
	if err != nil {
		t.Fatalf("ListLocations() error = %v", err)
	}
	if len(views) != len(catalog.Locations()) {
		t.Fatalf("got %d views", len(views))
	}
	first := views[0]
	if first.Name != "Koramangala" || first.TotalSlots != 15 || first.Counts.BookedTotal != 6 || *first.SuggestedSlot != 6 {
		t.Errorf("first view = %+v", first)
	}

	view, err := svc.GetLocation(ctx, sid, "Koramangala")
	if err != nil || view.Counts.VacantTotal != 9 {
		t.Errorf("GetLocation() = %+v, %v", view, err)
	}
	_, err = svc.GetLocation(ctx, sid, "Atlantis")
	assertAppError(t, err, apperrors.CodeNotFound, http.StatusNotFound)

	slots, err := svc.Slots(ctx, sid, "Koramangala")
	if err != nil || len(slots) != 15 || !slots[5].IsBooked() {
		t.Errorf("Slots() = %d slots, %v", len(slots), err)
	}

	slot, err := svc.Slot(ctx, sid, "Koramangala", 5)
	if err != nil || slot.Booking == nil {
		t.Errorf("Slot() = %+v, %v", slot, err)
	}
	_, err = svc.Slot(ctx, sid, "Koramangala", -1)
	assertAppError(t, err, apperrors.CodeInvalidIndex, http.StatusBadRequest)

	bookings, err := svc.Bookings(ctx, sid, "Koramangala")
	if err != nil || len(bookings) != 1 {
		t.Errorf("Bookings() = %+v, %v", bookings, err)
	}

	summary, err := svc.Summary(ctx, sid)
	if err != nil || summary.ByLocation["Koramangala"].BookedTotal != 6 {
		t.Errorf("Summary() = %+v, %v", summary, err)
	}
}

func TestParkingService_SuggestFullLocation(t *testing.T) {
	svc, _ := newTestService(t, store.Options{})
	ctx := context.Background()
	sid := startSession(t, svc)

	view, _ := svc.GetLocation(ctx, sid, "MG Road")
	for i := view.BookedCount; i < view.TotalSlots; i++ {
		if _, err := svc.Book(ctx, sid, "MG Road", i, civic); err != nil {
			t.Fatalf("Book(%d) error = %v", i, err)
		}
	}

	suggestion, err := svc.Suggest(ctx, sid, "MG Road")
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if suggestion.Available || suggestion.Index != nil {
		t.Errorf("Suggest() on full location = %+v", suggestion)
	}
}
