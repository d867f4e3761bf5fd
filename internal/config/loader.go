package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the room tracker.
type Config struct {
	HTTPPort          int
	SQLiteDSN         string
	SweepInterval     time.Duration
	ReservationWindow time.Duration
	MaxOccupation     time.Duration
	MinVisitDuration  time.Duration
	SubscriberBuffer  int
	SweepTriggerRate  float64
	SweepTriggerBurst int
	RedisURL          string
	RedisChannel      string
	AdminUsername     string
	AdminPasswordHash string
	CORSOrigins       []string
	SeedRooms         bool
	LogLevel          string
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		HTTPPort:          8080,
		SQLiteDSN:         "file:rooms.db",
		SweepInterval:     60 * time.Second,
		ReservationWindow: 5 * time.Minute,
		MaxOccupation:     60 * time.Minute,
		MinVisitDuration:  3 * time.Minute,
		SubscriberBuffer:  8,
		SweepTriggerRate:  1,
		SweepTriggerBurst: 1,
		RedisChannel:      "rooms:updated",
		AdminUsername:     "admin",
		LogLevel:          "info",
	}
}

// LoadDotEnv reads variables from the named files, or .env when none are
// given. Missing files are ignored and existing variables are never overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to Default. Every missing or malformed variable is
// reported in a single error.
func Load() (Config, error) {
	cfg := Default()

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if value := env("ROOMS_HTTP_PORT"); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "ROOMS_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := env("ROOMS_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"ROOMS_SWEEP_INTERVAL", &cfg.SweepInterval},
		{"ROOMS_RESERVATION_WINDOW", &cfg.ReservationWindow},
		{"ROOMS_MAX_OCCUPATION", &cfg.MaxOccupation},
		{"ROOMS_MIN_VISIT_DURATION", &cfg.MinVisitDuration},
	}
	for _, d := range durations {
		value := env(d.key)
		if value == "" {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			invalid = append(invalid, d.key)
			continue
		}
		*d.target = parsed
	}

	if value := env("ROOMS_SUBSCRIBER_BUFFER"); value != "" {
		size, err := strconv.Atoi(value)
		if err != nil || size <= 0 {
			invalid = append(invalid, "ROOMS_SUBSCRIBER_BUFFER")
		} else {
			cfg.SubscriberBuffer = size
		}
	}

	if value := env("ROOMS_SWEEP_TRIGGER_RATE"); value != "" {
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil || rate <= 0 {
			invalid = append(invalid, "ROOMS_SWEEP_TRIGGER_RATE")
		} else {
			cfg.SweepTriggerRate = rate
		}
	}

	if value := env("ROOMS_SWEEP_TRIGGER_BURST"); value != "" {
		burst, err := strconv.Atoi(value)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "ROOMS_SWEEP_TRIGGER_BURST")
		} else {
			cfg.SweepTriggerBurst = burst
		}
	}

	cfg.RedisURL = env("ROOMS_REDIS_URL")
	if channel := env("ROOMS_REDIS_CHANNEL"); channel != "" {
		cfg.RedisChannel = channel
	}

	if username := env("ROOMS_ADMIN_USERNAME"); username != "" {
		cfg.AdminUsername = username
	}
	if hash := env("ROOMS_ADMIN_PASSWORD_HASH"); hash == "" {
		missing = append(missing, "ROOMS_ADMIN_PASSWORD_HASH")
	} else {
		cfg.AdminPasswordHash = hash
	}

	if value := env("ROOMS_CORS_ORIGINS"); value != "" {
		for _, origin := range strings.Split(value, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	if value := env("ROOMS_SEED_ROOMS"); value != "" {
		seed, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "ROOMS_SEED_ROOMS")
		} else {
			cfg.SeedRooms = seed
		}
	}

	if level := env("ROOMS_LOG_LEVEL"); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "warning", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			invalid = append(invalid, "ROOMS_LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
