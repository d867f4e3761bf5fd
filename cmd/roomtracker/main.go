package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/example/room-tracker/internal/application"
	"github.com/example/room-tracker/internal/config"
	httptransport "github.com/example/room-tracker/internal/http"
	"github.com/example/room-tracker/internal/logging"
	"github.com/example/room-tracker/internal/notify"
	"github.com/example/room-tracker/internal/persistence/sqlite"
)

const shutdownTimeout = 10 * time.Second

func main() {
	bootstrap := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		bootstrap.Error("failed to read .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger, err := logging.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		bootstrap.Error("failed to build logger", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("room tracker stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx, logger); err != nil {
		return err
	}

	app := newApp(storage, cfg, logger, time.Now)
	defer app.hub.Close()

	if cfg.SeedRooms {
		created, err := app.rooms.SeedRooms(ctx, application.DefaultRoomSeeds())
		if err != nil {
			return fmt.Errorf("seed rooms: %w", err)
		}
		if created > 0 {
			logger.Info("seeded default rooms", "created", created)
		}
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var mirror *notify.RedisMirror[[]application.Room]
	var mirrorSub *notify.Subscription[[]application.Room]
	if cfg.RedisURL != "" {
		client, err := notify.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		if mirrorSub, err = app.hub.Subscribe(); err != nil {
			return err
		}
		mirror = notify.NewRedisMirror(client, cfg.RedisChannel, httptransport.EncodeRoomList, logger)
		logger.Info("mirroring room snapshots to redis", "channel", cfg.RedisChannel)
	}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return app.sweeper.Run(gctx)
	})

	if mirror != nil {
		group.Go(func() error {
			return mirror.Run(gctx, mirrorSub)
		})
	}

	group.Go(func() error {
		logger.Info("room tracker API listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-gctx.Done()
		// Closing the hub ends every websocket stream so Shutdown does not wait on them.
		app.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	err = group.Wait()
	logger.Info("room tracker stopped")
	return err
}

// app holds the wired services and the HTTP handler.
type app struct {
	hub     *notify.Hub[[]application.Room]
	rooms   *application.RoomService
	sweeper *application.Sweeper
	handler http.Handler
}

func newApp(storage *sqlite.Store, cfg config.Config, logger *slog.Logger, now func() time.Time) *app {
	entityID := func() string { return uuid.NewString() }
	historyID := func() string { return ulid.Make().String() }

	roomRepo := newRoomRepositoryAdapter(storage)
	teamRepo := newTeamRepositoryAdapter(storage)
	historyRepo := newHistoryRepositoryAdapter(storage)
	dailyRepo := newDailyStatsRepositoryAdapter(storage)

	hub := notify.NewHub[[]application.Room](cfg.SubscriberBuffer, logger)

	occupancy := application.NewOccupancyServiceWithLogger(roomRepo, teamRepo, hub, historyID, now, cfg.ReservationWindow, logger)
	sweeper := application.NewSweeperWithLogger(roomRepo, hub, historyID, now, cfg.MaxOccupation, cfg.SweepInterval, logger)
	roomService := application.NewRoomServiceWithLogger(roomRepo, hub, entityID, now, logger)
	teamService := application.NewTeamServiceWithLogger(teamRepo, roomRepo, hub, entityID, now, logger)
	historyService := application.NewHistoryServiceWithLogger(historyRepo, logger)
	statsService := application.NewStatsServiceWithLogger(roomRepo, teamRepo, historyRepo, dailyRepo, cfg.MinVisitDuration, logger)
	backupService := application.NewBackupServiceWithLogger(application.BackupServiceDeps{
		Backups:   newBackupRepositoryAdapter(storage),
		Archive:   newArchiveRepositoryAdapter(storage),
		Rooms:     roomRepo,
		Teams:     teamRepo,
		History:   historyRepo,
		Publisher: hub,
	}, entityID, now, logger)
	authenticator := application.NewAdminAuthenticatorWithLogger(cfg.AdminUsername, cfg.AdminPasswordHash, nil, logger)

	limiter := rate.NewLimiter(rate.Limit(cfg.SweepTriggerRate), cfg.SweepTriggerBurst)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Rooms:          httptransport.NewRoomHandler(roomService, occupancy, statsService, logger),
		Teams:          httptransport.NewTeamHandler(teamService, logger),
		History:        httptransport.NewHistoryHandler(historyService, logger),
		Stats:          httptransport.NewStatsHandler(statsService, logger),
		Sweep:          httptransport.NewSweepHandler(sweeper, limiter, logger),
		Subscribe:      httptransport.NewSubscribeHandler(hub, roomService, originChecker(cfg.CORSOrigins), logger),
		Admin:          httptransport.NewAdminHandler(roomService, occupancy, backupService, logger),
		AdminAuth:      authenticator,
		CORSOrigins:    cfg.CORSOrigins,
		Logger:         logger,
		RequestTimeout: 30 * time.Second,
	})

	return &app{hub: hub, rooms: roomService, sweeper: sweeper, handler: handler}
}

// originChecker allows websocket upgrades from the configured CORS origins.
// With none configured the upgrader's same-origin default applies.
func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin) || slices.Contains(origins, "*")
	}
}
