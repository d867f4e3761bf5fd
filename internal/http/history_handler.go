package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/room-tracker/internal/application"
)

type historyService interface {
	ListHistory(ctx context.Context, filter application.HistoryFilter) ([]application.HistoryEntry, error)
}

// HistoryHandler serves the transition ledger.
type HistoryHandler struct {
	service   historyService
	responder responder
	logger    *slog.Logger
}

func NewHistoryHandler(service historyService, logger *slog.Logger) *HistoryHandler {
	base := defaultLogger(logger)
	return &HistoryHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	filter := application.HistoryFilter{
		RoomID: strings.TrimSpace(query.Get("room_id")),
		TeamID: strings.TrimSpace(query.Get("team_id")),
	}
	for _, raw := range query["action"] {
		for _, action := range strings.Split(raw, ",") {
			if action = strings.TrimSpace(action); action != "" {
				filter.Actions = append(filter.Actions, application.HistoryAction(strings.ToUpper(action)))
			}
		}
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLimit)
			return
		}
		filter.Limit = limit
	}

	entries, err := h.service.ListHistory(r.Context(), filter)
	if err != nil {
		handlerLogger(r.Context(), h.logger, "HistoryHandler", "List").WarnContext(r.Context(), "history list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]historyDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toHistoryDTO(entry))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listHistoryResponse{History: out})
}
