package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"parkly/internal/parking/service"
	httputil "parkly/pkg/http"
	"parkly/pkg/logger"
	"parkly/pkg/middleware"
	"parkly/pkg/model"
)

type ParkingHandler struct {
	service service.ParkingService
	log     *logger.Logger
}

func NewParkingHandler(service service.ParkingService, log *logger.Logger) *ParkingHandler {
	return &ParkingHandler{
		service: service,
		log:     log,
	}
}

func (h *ParkingHandler) StartSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, err := h.service.StartSession(r.Context())
	if err != nil {
		h.writeError(w, "StartSession", err)
		return
	}

	if err := httputil.WriteCreated(w, sess); err != nil {
		h.log.Error("failed to write created response", "handler", "StartSession", "operation", "WriteCreated", "error", err)
	}
}

func (h *ParkingHandler) EndSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.EndSession(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "EndSession", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ParkingHandler) ListLocations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	views, err := h.service.ListLocations(r.Context(), sessionID(r))
	if err != nil {
		h.writeError(w, "ListLocations", err)
		return
	}

	h.writeSuccess(w, "ListLocations", views)
}

func (h *ParkingHandler) GetLocation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.service.GetLocation(r.Context(), sessionID(r), ps.ByName("name"))
	if err != nil {
		h.writeError(w, "GetLocation", err)
		return
	}

	h.writeSuccess(w, "GetLocation", view)
}

func (h *ParkingHandler) Counts(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	counts, err := h.service.Counts(r.Context(), sessionID(r), ps.ByName("name"))
	if err != nil {
		h.writeError(w, "Counts", err)
		return
	}

	h.writeSuccess(w, "Counts", counts)
}

func (h *ParkingHandler) Suggest(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	suggestion, err := h.service.Suggest(r.Context(), sessionID(r), ps.ByName("name"))
	if err != nil {
		h.writeError(w, "Suggest", err)
		return
	}

	h.writeSuccess(w, "Suggest", suggestion)
}

func (h *ParkingHandler) Slots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slots, err := h.service.Slots(r.Context(), sessionID(r), ps.ByName("name"))
	if err != nil {
		h.writeError(w, "Slots", err)
		return
	}

	h.writeSuccess(w, "Slots", slots)
}

func (h *ParkingHandler) Slot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	index, err := httputil.ParseIndex(ps.ByName("index"))
	if err != nil {
		h.writeError(w, "Slot", err)
		return
	}

	slot, err := h.service.Slot(r.Context(), sessionID(r), ps.ByName("name"), index)
	if err != nil {
		h.writeError(w, "Slot", err)
		return
	}

	h.writeSuccess(w, "Slot", slot)
}

func (h *ParkingHandler) Bookings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookings, err := h.service.Bookings(r.Context(), sessionID(r), ps.ByName("name"))
	if err != nil {
		h.writeError(w, "Bookings", err)
		return
	}

	h.writeSuccess(w, "Bookings", bookings)
}

func (h *ParkingHandler) Summary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	summary, err := h.service.Summary(r.Context(), sessionID(r))
	if err != nil {
		h.writeError(w, "Summary", err)
		return
	}

	h.writeSuccess(w, "Summary", summary)
}

func (h *ParkingHandler) Book(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	index, err := httputil.ParseIndex(ps.ByName("index"))
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Book", err)
		return
	}

	booking, err := h.service.Book(r.Context(), sessionID(r), ps.ByName("name"), index, req)
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "operation", "WriteCreated", "error", err)
	}
}

// Override is mounted behind middleware.AdminAuth, which supplies the admin email.
func (h *ParkingHandler) Override(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	index, err := httputil.ParseIndex(ps.ByName("index"))
	if err != nil {
		h.writeError(w, "Override", err)
		return
	}

	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Override", err)
		return
	}

	adminEmail := middleware.AdminEmailFromContext(r.Context())
	booking, err := h.service.Override(r.Context(), sessionID(r), ps.ByName("name"), index, req, adminEmail)
	if err != nil {
		h.writeError(w, "Override", err)
		return
	}

	h.writeSuccess(w, "Override", booking)
}

// RegisterRoutes mounts the public parking API. The admin override route is
// registered separately by RegisterAdminRoutes so it can be wrapped.
func (h *ParkingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/sessions", h.StartSession)
	router.DELETE("/api/v1/sessions/:id", h.EndSession)

	router.GET("/api/v1/locations", h.ListLocations)
	router.GET("/api/v1/locations/:name", h.GetLocation)
	router.GET("/api/v1/locations/:name/counts", h.Counts)
	router.GET("/api/v1/locations/:name/suggestion", h.Suggest)
	router.GET("/api/v1/locations/:name/slots", h.Slots)
	router.GET("/api/v1/locations/:name/slots/:index", h.Slot)
	router.POST("/api/v1/locations/:name/slots/:index/booking", h.Book)
	router.GET("/api/v1/locations/:name/bookings", h.Bookings)

	router.GET("/api/v1/summary", h.Summary)
}

func (h *ParkingHandler) RegisterAdminRoutes(router *httprouter.Router, auth func(httprouter.Handle) httprouter.Handle) {
	router.PUT("/api/v1/admin/locations/:name/slots/:index/booking", auth(h.Override))
}

func (h *ParkingHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *ParkingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func sessionID(r *http.Request) string {
	return r.Header.Get(middleware.SessionHeader)
}
