package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/otcheredev/clinic-console/internal/apiclient"
	"github.com/otcheredev/clinic-console/internal/cache"
	"github.com/otcheredev/clinic-console/internal/database"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db    *gorm.DB
	api   *apiclient.Client
	store cache.Cache
}

func NewHealthHandler(db *gorm.DB, api *apiclient.Client, store cache.Cache) *HealthHandler {
	return &HealthHandler{db: db, api: api, store: store}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func (h *HealthHandler) check(ctx context.Context) healthResponse {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	response := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	if h.db == nil {
		response.Services["database"] = "disabled"
	} else if err := database.Ping(ctx, h.db); err != nil {
		response.Services["database"] = "unhealthy"
		response.Status = "degraded"
	} else {
		response.Services["database"] = "healthy"
	}

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			response.Services["sessions"] = "unhealthy"
			response.Status = "degraded"
		} else {
			response.Services["sessions"] = "healthy"
		}
	}

	if err := h.api.Ping(ctx); err != nil {
		response.Services["api"] = "unhealthy"
		response.Status = "degraded"
	} else {
		response.Services["api"] = "healthy"
	}
	return response
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := h.check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if response.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.check(r.Context()).Status != "healthy" {
		http.Error(w, "Service not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
