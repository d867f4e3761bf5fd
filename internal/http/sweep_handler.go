package http

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/example/room-tracker/internal/application"
	"github.com/example/room-tracker/internal/metrics"
)

type sweeper interface {
	Sweep(ctx context.Context) (application.SweepResult, error)
}

// SweepHandler runs the expiry sweep on demand. Public triggers are rate
// limited; the admin trigger is not.
type SweepHandler struct {
	sweeper   sweeper
	limiter   *rate.Limiter
	responder responder
	logger    *slog.Logger
}

// NewSweepHandler constructs a handler. A nil limiter disables throttling.
func NewSweepHandler(sweeper sweeper, limiter *rate.Limiter, logger *slog.Logger) *SweepHandler {
	base := defaultLogger(logger)
	return &SweepHandler{sweeper: sweeper, limiter: limiter, responder: newResponder(base), logger: base}
}

// Trigger is the throttled public endpoint polled by external schedulers.
func (h *SweepHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sweeper == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		metrics.SweepTriggerThrottled.Inc()
		w.Header().Set("Retry-After", "1")
		h.responder.writeError(r.Context(), w, http.StatusTooManyRequests, errSweepThrottled)
		return
	}
	h.run(w, r, "Trigger")
}

// Force runs a sweep without consulting the limiter.
func (h *SweepHandler) Force(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sweeper == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.run(w, r, "Force")
}

func (h *SweepHandler) run(w http.ResponseWriter, r *http.Request, operation string) {
	result, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		handlerLogger(r.Context(), h.logger, "SweepHandler", operation).ErrorContext(r.Context(), "sweep failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sweepResponse{
		ExpiredReservations: result.ExpiredReservations,
		ExpiredOccupations:  result.ExpiredOccupations,
		Failures:            result.Failures,
	})
}
