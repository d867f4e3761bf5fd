package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Rooms     *RoomHandler
	Teams     *TeamHandler
	History   *HistoryHandler
	Stats     *StatsHandler
	Sweep     *SweepHandler
	Subscribe *SubscribeHandler
	Admin     *AdminHandler

	AdminAuth   AdminAuthenticator
	CORSOrigins []string
	Logger      *slog.Logger
	// RequestTimeout bounds non-streaming requests. Zero disables it.
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		// The websocket stream is long lived and must not be wrapped by the timeout.
		if cfg.Subscribe != nil {
			r.Get("/rooms/subscribe", cfg.Subscribe.Subscribe)
		}

		r.Group(func(r chi.Router) {
			if cfg.RequestTimeout > 0 {
				r.Use(middleware.Timeout(cfg.RequestTimeout))
			}

			if cfg.Rooms != nil {
				r.Get("/rooms", cfg.Rooms.List)
				r.Route("/rooms/{roomID}", func(r chi.Router) {
					r.Get("/", cfg.Rooms.Detail)
					r.Get("/stats", cfg.Rooms.Stats)
					r.Post("/occupy", cfg.Rooms.Occupy)
					r.Post("/reserve", cfg.Rooms.Reserve)
					r.Post("/free", cfg.Rooms.Free)
					r.Post("/cancel", cfg.Rooms.Cancel)
				})
			}
			if cfg.Teams != nil {
				r.Get("/teams", cfg.Teams.List)
				r.Post("/teams", cfg.Teams.Create)
			}
			if cfg.History != nil {
				r.Get("/history", cfg.History.List)
			}
			if cfg.Stats != nil {
				r.Get("/stats", cfg.Stats.Current)
				r.Get("/stats/daily/{date}", cfg.Stats.Daily)
			}
			if cfg.Sweep != nil {
				r.Get("/cron/sweep", cfg.Sweep.Trigger)
			}

			if cfg.AdminAuth != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Use(RequireAdmin(cfg.AdminAuth, logger))
					mountAdmin(r, cfg)
				})
			}
		})
	})

	return r
}

func mountAdmin(r chi.Router, cfg RouterConfig) {
	if cfg.Admin != nil {
		r.Post("/rooms", cfg.Admin.CreateRoom)
		r.Put("/rooms/{roomID}", cfg.Admin.UpdateRoom)
		r.Delete("/rooms/{roomID}", cfg.Admin.DeleteRoom)
		r.Post("/rooms/{roomID}/status", cfg.Admin.SetStatus)

		r.Get("/backups", cfg.Admin.ListBackups)
		r.Post("/backups", cfg.Admin.CreateBackup)
		r.Delete("/backups/{backupID}", cfg.Admin.DeleteBackup)
		r.Post("/backups/{backupID}/restore", cfg.Admin.RestoreBackup)

		r.Post("/archive", cfg.Admin.ArchiveAndReset)
		r.Post("/archive/restore-teams", cfg.Admin.RestoreTeams)
		r.Delete("/archive", cfg.Admin.ClearArchive)
	}
	if cfg.Teams != nil {
		r.Get("/teams", cfg.Teams.List)
		r.Put("/teams/{teamID}", cfg.Teams.Update)
		r.Delete("/teams/{teamID}", cfg.Teams.Delete)
		r.Post("/teams/{teamID}/archive", cfg.Teams.Archive)
	}
	if cfg.Stats != nil {
		r.Get("/stats/daily", cfg.Stats.ListDaily)
	}
	if cfg.Sweep != nil {
		r.Post("/sweep", cfg.Sweep.Force)
	}
}
