package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"carvio/internal/bookings/service"
	apperrors "carvio/pkg/errors"
	httputil "carvio/pkg/http"
	"carvio/pkg/logger"
	"carvio/pkg/middleware"
	"carvio/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	logger  *logger.Logger
}

func NewBookingHandler(svc service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: svc,
		logger:  log,
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.Handle(http.MethodPatch, "/api/cars/:id/booking", h.Create)
	router.HandlerFunc(http.MethodGet, "/api/bookings", h.List)
	router.Handle(http.MethodPatch, "/api/bookings/:id/modify", h.Modify)
	router.Handle(http.MethodPatch, "/api/bookings/:id/cancel", h.Cancel)
}

type createBookingRequest struct {
	UserEmail string `json:"userEmail"`
}

type bookingCountResponse struct {
	BookingCount int64 `json:"bookingCount"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r, w, apperrors.InvalidInput("invalid JSON in request body"))
		return
	}

	email, err := resolveEmail(r, req.UserEmail)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	_, count, err := h.service.Create(r.Context(), params.ByName("id"), email)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	if err := httputil.WriteSuccess(w, bookingCountResponse{BookingCount: count}); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	email, err := httputil.RequiredQuery(r, "email")
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	if email, err = resolveEmail(r, email); err != nil {
		h.writeError(r, w, err)
		return
	}

	bookings, err := h.service.ListByEmail(r.Context(), email)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *BookingHandler) Modify(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	var req model.DateRange
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r, w, apperrors.InvalidInput("invalid JSON in request body"))
		return
	}

	var newStart, newEnd time.Time
	var err error
	if req.NewStartDate != "" {
		if newStart, err = httputil.ParseISODate(req.NewStartDate); err != nil {
			h.writeError(r, w, err)
			return
		}
	}
	if req.NewEndDate != "" {
		if newEnd, err = httputil.ParseISODate(req.NewEndDate); err != nil {
			h.writeError(r, w, err)
			return
		}
	}

	booking, err := h.service.ModifyDates(r.Context(), params.ByName("id"), newStart, newEnd)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if _, err := h.service.Cancel(r.Context(), params.ByName("id")); err != nil {
		h.writeError(r, w, err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]string{"message": "Booking canceled successfully"}); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// resolveEmail reconciles the request's email with the session identity.
// An authenticated caller may only act as themselves; anonymous requests
// use the email they supplied, matching the open API surface.
func resolveEmail(r *http.Request, requested string) (string, error) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return requested, nil
	}
	if requested != "" && requested != identity.Email {
		return "", apperrors.Forbidden("email does not match the authenticated session")
	}
	return identity.Email, nil
}

func (h *BookingHandler) writeError(r *http.Request, w http.ResponseWriter, err error) {
	h.logger.Warn("booking request failed",
		"request_id", middleware.RequestID(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.logger.Error("failed to write error response", "error", writeErr)
	}
}
