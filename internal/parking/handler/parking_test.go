package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	apperrors "parkly/pkg/errors"
	"parkly/pkg/logger"
	"parkly/pkg/middleware"
	"parkly/pkg/model"
)

// Mock service for testing
type mockParkingService struct {
	bookFunc     func(ctx context.Context, sessionID, name string, index int, req model.BookingRequest) (*model.Booking, error)
	overrideFunc func(ctx context.Context, sessionID, name string, index int, req model.BookingRequest, adminEmail string) (*model.Booking, error)
	slotFunc     func(ctx context.Context, sessionID, name string, index int) (*model.Slot, error)
	countsFunc   func(ctx context.Context, sessionID, name string) (*model.SlotCounts, error)
	endFunc      func(ctx context.Context, sessionID string) error
}

func (m *mockParkingService) StartSession(ctx context.Context) (*model.Session, error) {
	return &model.Session{ID: "s-1", ExpiresIn: 1800}, nil
}

func (m *mockParkingService) EndSession(ctx context.Context, sessionID string) error {
	if m.endFunc != nil {
		return m.endFunc(ctx, sessionID)
	}
	return nil
}

func (m *mockParkingService) ListLocations(ctx context.Context, sessionID string) ([]model.LocationView, error) {
	return []model.LocationView{{Location: model.Location{Name: "Koramangala", BookedCount: 5, VacantCount: 10}, TotalSlots: 15}}, nil
}

func (m *mockParkingService) GetLocation(ctx context.Context, sessionID, name string) (*model.LocationView, error) {
	return nil, apperrors.NotFoundWithID("Location", name)
}

func (m *mockParkingService) Counts(ctx context.Context, sessionID, name string) (*model.SlotCounts, error) {
	if m.countsFunc != nil {
		return m.countsFunc(ctx, sessionID, name)
	}
	return &model.SlotCounts{}, nil
}

func (m *mockParkingService) Suggest(ctx context.Context, sessionID, name string) (*model.Suggestion, error) {
	idx := 5
	return &model.Suggestion{LocationName: name, Index: &idx, Available: true}, nil
}

func (m *mockParkingService) Slots(ctx context.Context, sessionID, name string) ([]model.Slot, error) {
	return nil, nil
}

func (m *mockParkingService) Slot(ctx context.Context, sessionID, name string, index int) (*model.Slot, error) {
	if m.slotFunc != nil {
		return m.slotFunc(ctx, sessionID, name, index)
	}
	return &model.Slot{LocationName: name, Index: index, Status: model.SlotVacant}, nil
}

func (m *mockParkingService) Bookings(ctx context.Context, sessionID, name string) ([]model.Booking, error) {
	return nil, nil
}

func (m *mockParkingService) Summary(ctx context.Context, sessionID string) (*model.Summary, error) {
	return &model.Summary{}, nil
}

func (m *mockParkingService) Book(ctx context.Context, sessionID, name string, index int, req model.BookingRequest) (*model.Booking, error) {
	if m.bookFunc != nil {
		return m.bookFunc(ctx, sessionID, name, index, req)
	}
	return &model.Booking{}, nil
}

func (m *mockParkingService) Override(ctx context.Context, sessionID, name string, index int, req model.BookingRequest, adminEmail string) (*model.Booking, error) {
	if m.overrideFunc != nil {
		return m.overrideFunc(ctx, sessionID, name, index, req, adminEmail)
	}
	return &model.Booking{}, nil
}

type fakeOpener struct{}

func (fakeOpener) Open(token string) (string, time.Time, error) {
	return token + "@parkly.test", time.Time{}, nil
}

func newTestRouter(svc *mockParkingService) *httprouter.Router {
	log := logger.NewNop()
	h := NewParkingHandler(svc, log)

	router := httprouter.New()
	h.RegisterRoutes(router)
	h.RegisterAdminRoutes(router, middleware.AdminAuth(fakeOpener{}, log))
	return router
}

func serve(router http.Handler, method, path, session, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(middleware.SessionHeader, session)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestBook(t *testing.T) {
	var gotSession, gotName string
	var gotIndex int
	var gotReq model.BookingRequest
	svc := &mockParkingService{
		bookFunc: func(_ context.Context, sessionID, name string, index int, req model.BookingRequest) (*model.Booking, error) {
			gotSession, gotName, gotIndex, gotReq = sessionID, name, index, req
			return &model.Booking{ID: "b-1", LocationName: name, SlotIndex: index}, nil
		},
	}
	router := newTestRouter(svc)

	w := serve(router, http.MethodPost, "/api/v1/locations/MG%20Road/slots/10/booking", "s-1",
		`{"vehicle_model":"Civic","vehicle_number":"KA01AB1234","duration_hours":2}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if gotSession != "s-1" || gotName != "MG Road" || gotIndex != 10 || gotReq.DurationHours != 2 {
		t.Errorf("service got session=%q name=%q index=%d req=%+v", gotSession, gotName, gotIndex, gotReq)
	}

	var resp struct {
		Data model.Booking `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Data.ID != "b-1" {
		t.Errorf("response = %s", w.Body.String())
	}
}

func TestBook_BadRequests(t *testing.T) {
	router := newTestRouter(&mockParkingService{})

	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{"non-numeric index", "/api/v1/locations/Koramangala/slots/abc/booking", `{}`, apperrors.CodeInvalidInput},
		{"malformed JSON", "/api/v1/locations/Koramangala/slots/5/booking", `{"vehicle_model":`, apperrors.CodeInvalidInput},
		{"unknown field", "/api/v1/locations/Koramangala/slots/5/booking", `{"colour":"red"}`, apperrors.CodeInvalidInput},
		{"empty body", "/api/v1/locations/Koramangala/slots/5/booking", "", apperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodPost, tt.path, "s-1", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", w.Code)
			}
			var resp apperrors.ErrorResponse
			_ = json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Code != tt.want {
				t.Errorf("code = %s, want %s", resp.Code, tt.want)
			}
		})
	}
}

func TestBook_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"already booked", apperrors.AlreadyBooked("Koramangala", 2), http.StatusConflict, apperrors.CodeAlreadyBooked},
		{"invalid index", apperrors.InvalidIndex("Koramangala", 15, 15), http.StatusBadRequest, apperrors.CodeInvalidIndex},
		{"validation", apperrors.Validation("Booking validation failed", map[string]any{"duration_hours": "must be between 1 and 12"}), http.StatusUnprocessableEntity, apperrors.CodeValidation},
		{"unknown location", apperrors.NotFoundWithID("Location", "Atlantis"), http.StatusNotFound, apperrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockParkingService{
				bookFunc: func(context.Context, string, string, int, model.BookingRequest) (*model.Booking, error) {
					return nil, tt.err
				},
			}
			w := serve(newTestRouter(svc), http.MethodPost, "/api/v1/locations/Koramangala/slots/2/booking", "s-1",
				`{"vehicle_model":"Civic","vehicle_number":"KA01","duration_hours":2}`)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp apperrors.ErrorResponse
			_ = json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestOverride(t *testing.T) {
	var gotAdmin string
	svc := &mockParkingService{
		overrideFunc: func(_ context.Context, _, _ string, _ int, _ model.BookingRequest, adminEmail string) (*model.Booking, error) {
			gotAdmin = adminEmail
			return &model.Booking{UpdatedBy: adminEmail}, nil
		},
	}
	router := newTestRouter(svc)
	path := "/api/v1/admin/locations/Koramangala/slots/5/booking"
	body := `{"vehicle_model":"Swift","vehicle_number":"KA05","duration_hours":6}`

	w := serve(router, http.MethodPut, path, "s-1", body)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated override status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer ops")
	req.Header.Set(middleware.SessionHeader, "s-1")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if gotAdmin != "ops@parkly.test" {
		t.Errorf("admin email = %q", gotAdmin)
	}
}

func TestReadRoutes(t *testing.T) {
	router := newTestRouter(&mockParkingService{})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/api/v1/sessions", http.StatusCreated},
		{http.MethodDelete, "/api/v1/sessions/s-1", http.StatusNoContent},
		{http.MethodGet, "/api/v1/locations", http.StatusOK},
		{http.MethodGet, "/api/v1/locations/Atlantis", http.StatusNotFound},
		{http.MethodGet, "/api/v1/locations/Koramangala/counts", http.StatusOK},
		{http.MethodGet, "/api/v1/locations/Koramangala/suggestion", http.StatusOK},
		{http.MethodGet, "/api/v1/locations/Koramangala/slots", http.StatusOK},
		{http.MethodGet, "/api/v1/locations/Koramangala/slots/3", http.StatusOK},
		{http.MethodGet, "/api/v1/locations/Koramangala/slots/x", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/locations/Koramangala/bookings", http.StatusOK},
		{http.MethodGet, "/api/v1/summary", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(router, tt.method, tt.path, "s-1", "")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestSlot_NegativeIndexReachesService(t *testing.T) {
	var gotIndex int
	svc := &mockParkingService{
		slotFunc: func(_ context.Context, _, name string, index int) (*model.Slot, error) {
			gotIndex = index
			return nil, apperrors.InvalidIndex(name, index, 15)
		},
	}

	w := serve(newTestRouter(svc), http.MethodGet, "/api/v1/locations/Koramangala/slots/-1", "s-1", "")
	if w.Code != http.StatusBadRequest || gotIndex != -1 {
		t.Errorf("status = %d, index = %d", w.Code, gotIndex)
	}
}

func TestEndSession_Unknown(t *testing.T) {
	svc := &mockParkingService{
		endFunc: func(context.Context, string) error { return apperrors.NotFound("Session") },
	}
	w := serve(newTestRouter(svc), http.MethodDelete, "/api/v1/sessions/nope", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	router := httprouter.New()
	NewHealthHandler(nil, fakeCounter(3), logger.NewNop()).RegisterRoutes(router)

	w := serve(router, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}

	w = serve(router, http.MethodGet, "/ready", "", "")
	var resp HealthResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.Status != "ready" || resp.Sessions == nil || *resp.Sessions != 3 {
		t.Errorf("ready = %d %s", w.Code, w.Body.String())
	}
}

type fakeCounter int

func (c fakeCounter) Len() int { return int(c) }
