package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"carvio/internal/cars/repository"
	"carvio/internal/cars/service"
	"carvio/pkg/config"
	apperrors "carvio/pkg/errors"
	httputil "carvio/pkg/http"
	"carvio/pkg/logger"
	"carvio/pkg/middleware"
	"carvio/pkg/model"
)

type CarHandler struct {
	service service.CarService
	logger  *logger.Logger
}

func NewCarHandler(svc service.CarService, log *logger.Logger) *CarHandler {
	return &CarHandler{
		service: svc,
		logger:  log,
	}
}

func (h *CarHandler) RegisterRoutes(router *httprouter.Router) {
	router.HandlerFunc(http.MethodPost, "/api/cars", h.Create)
	router.HandlerFunc(http.MethodGet, "/api/cars", h.List)
	router.Handle(http.MethodGet, "/api/cars/:id", h.GetByID)
	router.Handle(http.MethodPut, "/api/cars/:id", h.Update)
	router.Handle(http.MethodDelete, "/api/cars/:id", h.Delete)
}

func (h *CarHandler) Create(w http.ResponseWriter, r *http.Request) {
	var car model.Car
	if err := json.NewDecoder(r.Body).Decode(&car); err != nil {
		h.writeError(r, w, apperrors.InvalidInput("invalid JSON in request body"))
		return
	}

	if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
		car.UserEmail = identity.Email
		if car.UserName == "" {
			car.UserName = identity.Name
		}
	}

	created, err := h.service.Create(r.Context(), &car)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *CarHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.CarFilter{
		Availability: r.URL.Query().Get("availability"),
		OwnerEmail:   r.URL.Query().Get("email"),
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(r, w, apperrors.InvalidInput("'limit' must be a number"))
			return
		}
		filter.Limit = int64(config.NormalizePaginationLimit(limit))
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(r, w, apperrors.InvalidInput("'offset' must be a number"))
			return
		}
		filter.Offset = config.NormalizeOffset(offset)
	}

	cars, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	if err := httputil.WriteSuccess(w, cars); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *CarHandler) GetByID(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	car, err := h.service.GetByID(r.Context(), params.ByName("id"))
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	if err := httputil.WriteSuccess(w, car); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *CarHandler) Update(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	var update model.CarUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(r, w, apperrors.InvalidInput("invalid JSON in request body"))
		return
	}

	car, err := h.service.Update(r.Context(), params.ByName("id"), &update, requesterEmail(r))
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	if err := httputil.WriteSuccess(w, car); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *CarHandler) Delete(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if err := h.service.Delete(r.Context(), params.ByName("id"), requesterEmail(r)); err != nil {
		h.writeError(r, w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func requesterEmail(r *http.Request) string {
	if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
		return identity.Email
	}
	return ""
}

func (h *CarHandler) writeError(r *http.Request, w http.ResponseWriter, err error) {
	h.logger.Warn("car request failed",
		"request_id", middleware.RequestID(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.logger.Error("failed to write error response", "error", writeErr)
	}
}
