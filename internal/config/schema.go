package config

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/coopco/wishbot/internal/auth"
	"github.com/coopco/wishbot/internal/docstore"
	"github.com/coopco/wishbot/internal/identity"
)

// Config is the top-level configuration
type Config struct {
	Bot       BotConfig                  `json:"bot"`
	Storage   docstore.Config            `json:"storage"`
	Scheduler SchedulerConfig            `json:"scheduler"`
	Channels  map[string]json.RawMessage `json:"channels"` // channel name -> channel specific config
	Admin     AdminConfig                `json:"admin"`
	Log       LogConfig                  `json:"log"`
}

type BotConfig struct {
	OwnerNumber      string `json:"owner_number"`
	OwnerLID         string `json:"owner_lid"`
	CommandPrefix    string `json:"command_prefix"`
	RequireWhitelist bool   `json:"require_whitelist"`
	Debug            bool   `json:"debug"`
}

type SchedulerConfig struct {
	Spec               string `json:"spec"`
	SendTimeoutSeconds int    `json:"send_timeout_seconds"` // 0 disables the per-send timeout
}

// AdminConfig configures the admin HTTP API. It is disabled when Addr is empty.
type AdminConfig struct {
	Addr      string `json:"addr"`
	JWTSecret string `json:"jwt_secret"`
}

type LogConfig struct {
	Mode  string `json:"mode"` // file, console or disabled
	File  string `json:"file"`
	Level string `json:"level"`
}

// Log modes.
const (
	LogFile     = "file"
	LogConsole  = "console"
	LogDisabled = "disabled"
)

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			CommandPrefix:    "Bot,",
			RequireWhitelist: true,
		},
		Storage: docstore.Config{
			Backend:     docstore.BackendFile,
			DataDir:     "data",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "wishbot:",
		},
		Scheduler: SchedulerConfig{
			Spec:               "* * * * *",
			SendTimeoutSeconds: 60,
		},
		Channels: map[string]json.RawMessage{},
		Log: LogConfig{
			Mode:  LogFile,
			File:  "wishbot.log",
			Level: "info",
		},
	}
}

// Owner returns the owner identity, formatting a bare number into a full address.
func (c *Config) Owner() identity.Owner {
	return identity.Owner{Address: identity.Format(c.Bot.OwnerNumber), Alias: c.Bot.OwnerLID}
}

// AuthMode maps require_whitelist onto a policy mode.
func (c *Config) AuthMode() auth.Mode {
	if c.Bot.RequireWhitelist {
		return auth.ModeStrict
	}
	return auth.ModeRelaxed
}

func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Scheduler.SendTimeoutSeconds) * time.Second
}

// Validate reports the first problem that would stop the bot from starting.
func (c *Config) Validate() error {
	if identity.Normalize(c.Bot.OwnerNumber) == "" {
		return fmt.Errorf("bot.owner_number is required")
	}
	if strings.TrimSpace(c.Bot.CommandPrefix) == "" {
		return fmt.Errorf("bot.command_prefix must not be empty")
	}
	backends := []string{docstore.BackendFile, docstore.BackendMemory, docstore.BackendRedis, docstore.BackendSQLite, docstore.BackendPostgres}
	if !slices.Contains(backends, strings.ToLower(c.Storage.Backend)) {
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if (c.Storage.Backend == docstore.BackendSQLite || c.Storage.Backend == docstore.BackendPostgres) && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for the %s backend", c.Storage.Backend)
	}
	switch c.Log.Mode {
	case LogFile, LogConsole, LogDisabled:
	default:
		return fmt.Errorf("unknown log mode %q", c.Log.Mode)
	}
	if c.Scheduler.SendTimeoutSeconds < 0 {
		return fmt.Errorf("scheduler.send_timeout_seconds must be >= 0")
	}
	if c.Admin.Addr != "" && len(c.Admin.JWTSecret) < 16 {
		return fmt.Errorf("admin.jwt_secret must be at least 16 bytes when the admin API is enabled")
	}
	return nil
}
