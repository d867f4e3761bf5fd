package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/room-tracker/internal/application"
)

type statsService interface {
	CurrentStats(ctx context.Context) (application.CurrentStats, error)
	DailyStats(ctx context.Context, day time.Time) (application.DailyStats, error)
	ListDailyStats(ctx context.Context) ([]application.DailyStats, error)
}

// StatsHandler serves live and archived aggregates.
type StatsHandler struct {
	service   statsService
	responder responder
	logger    *slog.Logger
}

func NewStatsHandler(service statsService, logger *slog.Logger) *StatsHandler {
	base := defaultLogger(logger)
	return &StatsHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *StatsHandler) Current(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	stats, err := h.service.CurrentStats(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, currentStatsDTO{
		TotalRooms:    stats.TotalRooms,
		FreeRooms:     stats.FreeRooms,
		OccupiedRooms: stats.OccupiedRooms,
		ReservedRooms: stats.ReservedRooms,
		OfflineRooms:  stats.OfflineRooms,
		ActiveTeams:   stats.ActiveTeams,
	})
}

func (h *StatsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	day, err := time.Parse(dateLayout, chi.URLParam(r, "date"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	stats, err := h.service.DailyStats(r.Context(), day)
	if err != nil {
		handlerLogger(r.Context(), h.logger, "StatsHandler", "Daily", "date", day.Format(dateLayout)).
			InfoContext(r.Context(), "daily stats lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDailyStatsDTO(stats))
}

// ListDaily returns every archived daily rollup.
func (h *StatsHandler) ListDaily(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	stats, err := h.service.ListDailyStats(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]dailyStatsDTO, 0, len(stats))
	for _, day := range stats {
		out = append(out, toDailyStatsDTO(day))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{"days": out})
}
