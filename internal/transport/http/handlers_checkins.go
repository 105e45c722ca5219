package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/checkin/models"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/httputil"
)

// CheckinService is the slice of the check-in feature the transport needs.
type CheckinService interface {
	CreateCheckin(ctx context.Context, eventID string, lat, lon float64, address string) (*models.Checkin, error)
	GetOwnCheckin(ctx context.Context, eventID string) (*models.Checkin, error)
	ListForEvent(ctx context.Context, eventID string) ([]*models.Checkin, error)
}

type checkinHandler struct {
	checkins CheckinService
	logger   *slog.Logger
}

func newCheckinHandler(checkins CheckinService, logger *slog.Logger) *checkinHandler {
	return &checkinHandler{checkins: checkins, logger: logger}
}

func (h *checkinHandler) register(r chi.Router) {
	r.Post("/events/{eventID}/checkins", h.handleCreate)
	r.Get("/events/{eventID}/checkins", h.handleListForEvent)
	r.Get("/events/{eventID}/checkins/me", h.handleGetOwn)
}

type createCheckinRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address,omitempty"`
}

func (h *checkinHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCheckinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "latitude and longitude are required"))
		return
	}

	checkin, err := h.checkins.CreateCheckin(r.Context(),
		chi.URLParam(r, "eventID"), *req.Latitude, *req.Longitude, req.Address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, checkin)
}

func (h *checkinHandler) handleGetOwn(w http.ResponseWriter, r *http.Request) {
	checkin, err := h.checkins.GetOwnCheckin(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, checkin)
}

func (h *checkinHandler) handleListForEvent(w http.ResponseWriter, r *http.Request) {
	checkins, err := h.checkins.ListForEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"checkins": checkins})
}
