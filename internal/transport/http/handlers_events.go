package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/event/models"
	eventservice "rollcall/internal/event/service"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/httputil"
)

// EventService is the slice of the event feature the transport needs.
type EventService interface {
	CreateEvent(ctx context.Context, in eventservice.CreateEventInput) (*models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListOwnEvents(ctx context.Context) ([]*models.Event, error)
	PublishEvent(ctx context.Context, id string) (*models.Event, error)
	StartEvent(ctx context.Context, id string) (*models.Event, error)
	FinishEvent(ctx context.Context, id string) (*models.Event, error)
	CancelEvent(ctx context.Context, id string) (*models.Event, error)
}

type eventHandler struct {
	events EventService
	logger *slog.Logger
}

func newEventHandler(events EventService, logger *slog.Logger) *eventHandler {
	return &eventHandler{events: events, logger: logger}
}

func (h *eventHandler) register(r chi.Router) {
	r.Post("/events", h.handleCreate)
	r.Get("/events", h.handleListOwn)
	r.Get("/events/{eventID}", h.handleGet)
	r.Post("/events/{eventID}/publish", h.transition(EventService.PublishEvent))
	r.Post("/events/{eventID}/start", h.transition(EventService.StartEvent))
	r.Post("/events/{eventID}/finish", h.transition(EventService.FinishEvent))
	r.Post("/events/{eventID}/cancel", h.transition(EventService.CancelEvent))
}

type createEventRequest struct {
	Title                string         `json:"title"`
	Capacity             int            `json:"capacity"`
	RequiresApproval     bool           `json:"requires_approval"`
	Groups               []models.Group `json:"groups,omitempty"`
	Latitude             float64        `json:"latitude"`
	Longitude            float64        `json:"longitude"`
	CheckinRadiusMeters  float64        `json:"checkin_radius_meters"`
	StartTime            time.Time      `json:"start_time"`
	EndTime              time.Time      `json:"end_time"`
	RegistrationDeadline *time.Time     `json:"registration_deadline,omitempty"`
}

func (h *eventHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	event, err := h.events.CreateEvent(r.Context(), eventservice.CreateEventInput{
		Title:                req.Title,
		Capacity:             req.Capacity,
		RequiresApproval:     req.RequiresApproval,
		Groups:               req.Groups,
		Latitude:             req.Latitude,
		Longitude:            req.Longitude,
		CheckinRadiusMeters:  req.CheckinRadiusMeters,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		RegistrationDeadline: req.RegistrationDeadline,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

func (h *eventHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *eventHandler) handleListOwn(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListOwnEvents(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *eventHandler) transition(op func(EventService, context.Context, string) (*models.Event, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := op(h.events, r.Context(), chi.URLParam(r, "eventID"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, event)
	}
}
