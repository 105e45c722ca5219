package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/registration/models"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/httputil"
)

// RegistrationService is the slice of the registration feature the
// transport needs.
type RegistrationService interface {
	Register(ctx context.Context, eventID, groupID string) (*models.Registration, error)
	Approve(ctx context.Context, registrationID string) (*models.Registration, error)
	Reject(ctx context.Context, registrationID string) (*models.Registration, error)
	Cancel(ctx context.Context, registrationID string) (*models.Registration, error)
	GetRegistration(ctx context.Context, registrationID string) (*models.Registration, error)
	ListForEvent(ctx context.Context, eventID string) ([]*models.Registration, error)
	ListOwn(ctx context.Context) ([]*models.Registration, error)
}

type registrationHandler struct {
	registrations RegistrationService
	logger        *slog.Logger
}

func newRegistrationHandler(registrations RegistrationService, logger *slog.Logger) *registrationHandler {
	return &registrationHandler{registrations: registrations, logger: logger}
}

func (h *registrationHandler) register(r chi.Router) {
	r.Post("/events/{eventID}/registrations", h.handleRegister)
	r.Get("/events/{eventID}/registrations", h.handleListForEvent)
	r.Get("/registrations", h.handleListOwn)
	r.Get("/registrations/{registrationID}", h.handleGet)
	r.Post("/registrations/{registrationID}/approve", h.decide(RegistrationService.Approve))
	r.Post("/registrations/{registrationID}/reject", h.decide(RegistrationService.Reject))
	r.Post("/registrations/{registrationID}/cancel", h.decide(RegistrationService.Cancel))
}

type registerRequest struct {
	GroupID string `json:"group_id,omitempty"`
}

func (h *registrationHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	reg, err := h.registrations.Register(r.Context(), chi.URLParam(r, "eventID"), req.GroupID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, reg)
}

func (h *registrationHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registrations.GetRegistration(r.Context(), chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

func (h *registrationHandler) handleListForEvent(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registrations.ListForEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"registrations": regs})
}

func (h *registrationHandler) handleListOwn(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registrations.ListOwn(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"registrations": regs})
}

func (h *registrationHandler) decide(op func(RegistrationService, context.Context, string) (*models.Registration, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reg, err := op(h.registrations, r.Context(), chi.URLParam(r, "registrationID"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, reg)
	}
}
