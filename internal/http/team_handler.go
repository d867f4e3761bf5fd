package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/room-tracker/internal/application"
)

type teamService interface {
	CreateTeam(ctx context.Context, input application.TeamInput) (application.Team, error)
	ListTeams(ctx context.Context, includeArchived bool) ([]application.Team, error)
	UpdateTeam(ctx context.Context, principal application.Principal, teamID string, input application.TeamInput) (application.Team, error)
	DeleteTeam(ctx context.Context, principal application.Principal, teamID string) (int, error)
	ArchiveTeam(ctx context.Context, principal application.Principal, teamID string) (application.Team, error)
}

// TeamHandler serves team signup, listing and the admin team endpoints.
type TeamHandler struct {
	service   teamService
	responder responder
	logger    *slog.Logger
}

func NewTeamHandler(service teamService, logger *slog.Logger) *TeamHandler {
	base := defaultLogger(logger)
	return &TeamHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TeamHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TeamHandler", operation, attrs...)
}

// List returns active teams. Administrators may pass ?include_archived=true.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	includeArchived := principal.IsAdmin && r.URL.Query().Get("include_archived") == "true"

	teams, err := h.service.ListTeams(r.Context(), includeArchived)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "team list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTeamsResponse{Teams: toTeamDTOs(teams)})
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req teamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode team request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	team, err := h.service.CreateTeam(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "team_id", team.ID).InfoContext(r.Context(), "team signed up")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, teamResponse{Team: toTeamDTO(team)})
}

func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	teamID := chi.URLParam(r, "teamID")
	principal, _ := PrincipalFromContext(r.Context())

	var req teamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Update", "team_id", teamID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode team update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	team, err := h.service.UpdateTeam(r.Context(), principal, teamID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, teamResponse{Team: toTeamDTO(team)})
}

func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	teamID := chi.URLParam(r, "teamID")
	principal, _ := PrincipalFromContext(r.Context())

	freed, err := h.service.DeleteTeam(r.Context(), principal, teamID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Delete", "team_id", teamID).InfoContext(r.Context(), "team deleted", "freed_rooms", freed)
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *TeamHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	teamID := chi.URLParam(r, "teamID")
	principal, _ := PrincipalFromContext(r.Context())

	team, err := h.service.ArchiveTeam(r.Context(), principal, teamID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, teamResponse{Team: toTeamDTO(team)})
}
