package config

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	RoomURL               string   `env:"ROOM_URL"`
	RoomID                string   `env:"ROOM_ID"`
	RoomPassword          string   `env:"ROOM_PASSWORD"`
	RoomName              string   `env:"ROOM_NAME"`
	RoomDescription       string   `env:"ROOM_DESCRIPTION"`
	LobbyURL              string   `env:"LOBBY_URL"`
	NotifyURL             string   `env:"NOTIFY_URL"`
	RewardURL             string   `env:"REWARD_URL"`
	DatabaseURL           string   `env:"DATABASE_URL"`
	AccessToken           string   `env:"ACCESS_TOKEN"`
	PlayerName            string   `env:"PLAYER_NAME"`
	PlayerTexture         string   `env:"PLAYER_TEXTURE"`
	Locale                string   `env:"LOCALE"`
	ControlAddr           string   `env:"CONTROL_ADDR"`
	LayoutPath            string   `env:"LAYOUT_PATH"`
	WhiteboardURLs        []string `env:"WHITEBOARD_URLS" envSeparator:","`
	ComputerURLs          []string `env:"COMPUTER_URLS" envSeparator:","`
	SpawnX                float64  `env:"SPAWN_X"`
	SpawnY                float64  `env:"SPAWN_Y"`
	QuizPrize             int      `env:"QUIZ_PRIZE"`
	QuizWaitGraceMS       int      `env:"QUIZ_WAIT_GRACE_MS"`
	WorkSeconds           int      `env:"WORK_SECONDS"`
	ProgressTicks         int      `env:"PROGRESS_TICKS"`
	TickMS                int      `env:"TICK_MS"`
	RequestTimeoutSeconds int      `env:"REQUEST_TIMEOUT_SECONDS"`
	OTelEndpoint          string   `env:"OTEL_ENDPOINT"`
}

func Default() Config {
	return Config{
		RoomURL:               "ws://localhost:2567/ws/rooms/public",
		RewardURL:             "http://localhost:8080/api/quiz/submit",
		PlayerTexture:         "adam",
		Locale:                "en",
		ControlAddr:           "127.0.0.1:7070",
		SpawnX:                705,
		SpawnY:                500,
		QuizPrize:             100,
		QuizWaitGraceMS:       1000,
		WorkSeconds:           90,
		ProgressTicks:         100,
		TickMS:                50,
		RequestTimeoutSeconds: 10,
	}
}

// Load overlays environment variables on top of Default. A value that does
// not parse, or parses but is out of range, keeps its default while the
// other overrides still apply.
func Load() (Config, error) {
	cfg := Default()
	defaults := Default()
	if err := env.Parse(&cfg); err != nil {
		if err := keepDefaults(&cfg, defaults, err); err != nil {
			return Default(), fmt.Errorf("parse env: %w", err)
		}
	}
	if cfg.QuizPrize < 0 {
		cfg.QuizPrize = defaults.QuizPrize
	}
	if cfg.QuizWaitGraceMS < 0 {
		cfg.QuizWaitGraceMS = defaults.QuizWaitGraceMS
	}
	if cfg.WorkSeconds < 0 {
		cfg.WorkSeconds = defaults.WorkSeconds
	}
	if cfg.ProgressTicks <= 0 {
		cfg.ProgressTicks = defaults.ProgressTicks
	}
	if cfg.TickMS <= 0 {
		cfg.TickMS = defaults.TickMS
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = defaults.RequestTimeoutSeconds
	}
	if strings.TrimSpace(cfg.PlayerTexture) == "" {
		cfg.PlayerTexture = defaults.PlayerTexture
	}
	return cfg, nil
}

// keepDefaults restores the default for every field that failed to parse.
// Errors other than field parse errors are returned.
func keepDefaults(cfg *Config, defaults Config, err error) error {
	var agg env.AggregateError
	if !errors.As(err, &agg) {
		return err
	}
	dst := reflect.ValueOf(cfg).Elem()
	src := reflect.ValueOf(defaults)
	for _, fieldErr := range agg.Errors {
		var parseErr env.ParseError
		if !errors.As(fieldErr, &parseErr) {
			return err
		}
		field := dst.FieldByName(parseErr.Name)
		if !field.IsValid() {
			return err
		}
		field.Set(src.FieldByName(parseErr.Name))
		log.Printf("config value ignored field=%s error=%v", parseErr.Name, parseErr.Err)
	}
	return nil
}

func (c Config) WaitGrace() time.Duration {
	return time.Duration(c.QuizWaitGraceMS) * time.Millisecond
}

func (c Config) WorkDuration() time.Duration {
	return time.Duration(c.WorkSeconds) * time.Second
}

func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// WhiteboardURLMap keys the predefined whiteboard URLs by station id
// ("0", "1", ...). Empty entries are skipped.
func (c Config) WhiteboardURLMap() map[string]string {
	return indexURLs(c.WhiteboardURLs)
}

func (c Config) ComputerURLMap() map[string]string {
	return indexURLs(c.ComputerURLs)
}

func indexURLs(list []string) map[string]string {
	out := make(map[string]string, len(list))
	for i, raw := range list {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		out[strconv.Itoa(i)] = url
	}
	return out
}
