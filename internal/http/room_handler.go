package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/room-tracker/internal/application"
)

type roomReader interface {
	ListRooms(ctx context.Context) ([]application.Room, error)
}

type occupancyService interface {
	Occupy(ctx context.Context, roomID, teamID string) (application.Room, error)
	Reserve(ctx context.Context, roomID, teamID string) (application.Room, error)
	Free(ctx context.Context, roomID, teamID string) (application.Room, error)
	CancelReservation(ctx context.Context, roomID, teamID string) (application.Room, error)
}

type roomStatsService interface {
	RoomStats(ctx context.Context, roomID string) (application.RoomStats, error)
	RoomDetail(ctx context.Context, roomID string) (application.RoomDetail, error)
}

// RoomHandler serves the public room endpoints and the state machine.
type RoomHandler struct {
	rooms     roomReader
	occupancy occupancyService
	stats     roomStatsService
	responder responder
	logger    *slog.Logger
}

func NewRoomHandler(rooms roomReader, occupancy occupancyService, stats roomStatsService, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{
		rooms:     rooms,
		occupancy: occupancy,
		stats:     stats,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rooms, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "room list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

func (h *RoomHandler) Detail(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.stats == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID := chi.URLParam(r, "roomID")
	detail, err := h.stats.RoomDetail(r.Context(), roomID)
	if err != nil {
		h.log(r.Context(), "Detail", "room_id", roomID).WarnContext(r.Context(), "room detail failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDetailResponse(detail))
}

func (h *RoomHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.stats == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID := chi.URLParam(r, "roomID")
	stats, err := h.stats.RoomStats(r.Context(), roomID)
	if err != nil {
		h.log(r.Context(), "Stats", "room_id", roomID).WarnContext(r.Context(), "room stats failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomStatsDTO(stats))
}

func (h *RoomHandler) Occupy(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Occupy", h.occupancy.Occupy)
}

func (h *RoomHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Reserve", h.occupancy.Reserve)
}

func (h *RoomHandler) Free(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Free", h.occupancy.Free)
}

func (h *RoomHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "CancelReservation", h.occupancy.CancelReservation)
}

type transitionFunc func(ctx context.Context, roomID, teamID string) (application.Room, error)

func (h *RoomHandler) transition(w http.ResponseWriter, r *http.Request, operation string, apply transitionFunc) {
	roomID := chi.URLParam(r, "roomID")

	var req teamActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), operation, "room_id", roomID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode transition request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), operation, "room_id", roomID, "team_id", req.TeamID)
	room, err := apply(r.Context(), roomID, req.TeamID)
	if err != nil {
		logger.InfoContext(r.Context(), "transition rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "transition applied", "status", room.Status)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}
