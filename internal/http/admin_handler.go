package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/room-tracker/internal/application"
)

type roomAdminService interface {
	CreateRoom(ctx context.Context, principal application.Principal, input application.RoomInput) (application.Room, error)
	UpdateRoom(ctx context.Context, principal application.Principal, roomID string, input application.RoomInput) (application.Room, error)
	DeleteRoom(ctx context.Context, principal application.Principal, roomID string) error
}

type statusSetter interface {
	AdminSetStatus(ctx context.Context, principal application.Principal, roomID string, status application.RoomStatus, teamID *string) (application.Room, error)
}

type backupService interface {
	CreateBackup(ctx context.Context, principal application.Principal, input application.BackupInput) (application.BackupSummary, error)
	ListBackups(ctx context.Context, principal application.Principal) ([]application.BackupSummary, error)
	DeleteBackup(ctx context.Context, principal application.Principal, backupID string) error
	RestoreBackup(ctx context.Context, principal application.Principal, backupID string) (application.RestoreResult, error)
	ArchiveAndReset(ctx context.Context, principal application.Principal, deleteTeams bool) (application.ArchiveResult, error)
	RestoreTeamsFromArchive(ctx context.Context, principal application.Principal) (application.RestoreTeamsResult, error)
	ClearArchive(ctx context.Context, principal application.Principal) (application.ClearArchiveResult, error)
}

// AdminHandler serves the administrative room, status, backup and archive endpoints.
type AdminHandler struct {
	rooms     roomAdminService
	status    statusSetter
	backups   backupService
	responder responder
	logger    *slog.Logger
}

func NewAdminHandler(rooms roomAdminService, status statusSetter, backups backupService, logger *slog.Logger) *AdminHandler {
	base := defaultLogger(logger)
	return &AdminHandler{
		rooms:     rooms,
		status:    status,
		backups:   backups,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *AdminHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	principal, _ := PrincipalFromContext(ctx)
	attrs = append([]any{"principal_id", principal.ActorID}, attrs...)
	return handlerLogger(ctx, h.logger, "AdminHandler", operation, attrs...)
}

func (h *AdminHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req roomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	room, err := h.rooms.CreateRoom(r.Context(), principal, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "CreateRoom", "room_id", room.ID).InfoContext(r.Context(), "room created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, roomResponse{Room: toRoomDTO(room)})
}

func (h *AdminHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	roomID := chi.URLParam(r, "roomID")

	var req roomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	room, err := h.rooms.UpdateRoom(r.Context(), principal, roomID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

func (h *AdminHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	roomID := chi.URLParam(r, "roomID")

	if err := h.rooms.DeleteRoom(r.Context(), principal, roomID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "DeleteRoom", "room_id", roomID).InfoContext(r.Context(), "room deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	roomID := chi.URLParam(r, "roomID")

	var req setStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	status := application.RoomStatus(strings.ToUpper(strings.TrimSpace(req.Status)))

	room, err := h.status.AdminSetStatus(r.Context(), principal, roomID, status, req.TeamID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "SetStatus", "room_id", roomID, "status", status).InfoContext(r.Context(), "room status overridden")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

func (h *AdminHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	summaries, err := h.backups.ListBackups(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]backupDTO, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, toBackupDTO(summary))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{"backups": out})
}

func (h *AdminHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req backupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	summary, err := h.backups.CreateBackup(r.Context(), principal, application.BackupInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, map[string]any{"backup": toBackupDTO(summary)})
}

func (h *AdminHandler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	if err := h.backups.DeleteBackup(r.Context(), principal, chi.URLParam(r, "backupID")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AdminHandler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	backupID := chi.URLParam(r, "backupID")

	result, err := h.backups.RestoreBackup(r.Context(), principal, backupID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "RestoreBackup", "backup_id", backupID).InfoContext(r.Context(), "restore finished", "success", result.Success)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, restoreResponse{
		Success:            result.Success,
		Message:            result.Message,
		Teams:              result.Summary.Teams,
		Rooms:              result.Summary.Rooms,
		History:            result.Summary.History,
		SkippedRooms:       result.Summary.SkippedRooms,
		SkippedHistory:     result.Summary.SkippedHistory,
		ReactivatedHistory: result.Summary.ReactivatedHistory,
	})
}

func (h *AdminHandler) ArchiveAndReset(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req archiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.backups.ArchiveAndReset(r.Context(), principal, req.DeleteTeams)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, archiveResponse{
		Success:         result.Success,
		Message:         result.Message,
		ArchivedHistory: result.Summary.ArchivedHistory,
		DeletedTeams:    result.Summary.DeletedTeams,
		Stats:           toDailyStatsDTO(result.Summary.Stats),
	})
}

func (h *AdminHandler) RestoreTeams(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	result, err := h.backups.RestoreTeamsFromArchive(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, restoreTeamsResponse{
		Success:  result.Success,
		Message:  result.Message,
		Restored: result.Restored,
	})
}

func (h *AdminHandler) ClearArchive(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	result, err := h.backups.ClearArchive(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, clearArchiveResponse{
		Success:        result.Success,
		Message:        result.Message,
		DeletedHistory: result.Summary.DeletedHistory,
		DeletedStats:   result.Summary.DeletedStats,
		DeletedTeams:   result.Summary.DeletedTeams,
	})
}
