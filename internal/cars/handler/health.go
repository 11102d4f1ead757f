package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	httputil "carvio/pkg/http"
	"carvio/pkg/logger"
)

type HealthHandler struct {
	mongo  *mongo.Client
	logger *logger.Logger
}

func NewHealthHandler(client *mongo.Client, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		mongo:  client,
		logger: log,
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.HandlerFunc(http.MethodGet, "/health", h.Health)
	router.HandlerFunc(http.MethodGet, "/ready", h.Ready)
}

// Health reports process liveness only.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := httputil.WriteSuccess(w, map[string]string{"status": "ok"}); err != nil {
		h.logger.Error("failed to write health response", "error", err)
	}
}

// Ready additionally verifies the database connection.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.mongo.Ping(ctx, readpref.Primary()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		if err := httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": "database unreachable",
		}); err != nil {
			h.logger.Error("failed to write readiness response", "error", err)
		}
		return
	}

	if err := httputil.WriteSuccess(w, map[string]string{"status": "ready"}); err != nil {
		h.logger.Error("failed to write readiness response", "error", err)
	}
}
