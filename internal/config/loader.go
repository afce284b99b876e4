package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/sjson"
)

// Load reads .env (if present), then the JSON config at path (if non-empty),
// then applies environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if path == "" {
		cfg := DefaultConfig()
		if err := applyEnvOverrides(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return LoadFromFile(path)
}

// LoadFromFile loads config from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader loads config from an io.Reader, applying defaults and env overrides.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Channels == nil {
		cfg.Channels = map[string]json.RawMessage{}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies WISHBOT_-prefixed environment variables, plus
// the short names the bot has always accepted.
func applyEnvOverrides(cfg *Config) error {
	// short names first so the WISHBOT_ form wins when both are set
	legacy := map[string]*string{
		"OWNER_NUMBER":   &cfg.Bot.OwnerNumber,
		"OWNER_LID":      &cfg.Bot.OwnerLID,
		"COMMAND_PREFIX": &cfg.Bot.CommandPrefix,
		"LOGGING_MODE":   &cfg.Log.Mode,
		"LOG_FILE":       &cfg.Log.File,
	}
	for env, ptr := range legacy {
		if val := os.Getenv(env); val != "" {
			*ptr = val
		}
	}

	envMap := map[string]*string{
		"WISHBOT_OWNER_NUMBER":     &cfg.Bot.OwnerNumber,
		"WISHBOT_OWNER_LID":        &cfg.Bot.OwnerLID,
		"WISHBOT_COMMAND_PREFIX":   &cfg.Bot.CommandPrefix,
		"WISHBOT_LOG_MODE":         &cfg.Log.Mode,
		"WISHBOT_LOG_FILE":         &cfg.Log.File,
		"WISHBOT_LOG_LEVEL":        &cfg.Log.Level,
		"WISHBOT_STORAGE_BACKEND":  &cfg.Storage.Backend,
		"WISHBOT_DATA_DIR":         &cfg.Storage.DataDir,
		"WISHBOT_REDIS_ADDR":       &cfg.Storage.RedisAddr,
		"WISHBOT_REDIS_PASSWORD":   &cfg.Storage.RedisPassword,
		"WISHBOT_REDIS_PREFIX":     &cfg.Storage.RedisPrefix,
		"WISHBOT_STORAGE_DSN":      &cfg.Storage.DSN,
		"WISHBOT_SCHEDULER_SPEC":   &cfg.Scheduler.Spec,
		"WISHBOT_ADMIN_ADDR":       &cfg.Admin.Addr,
		"WISHBOT_ADMIN_JWT_SECRET": &cfg.Admin.JWTSecret,
	}
	for env, ptr := range envMap {
		if val := os.Getenv(env); val != "" {
			*ptr = val
		}
	}

	// only an explicit "false" turns the whitelist off
	if v := os.Getenv("REQUIRE_WHITELIST"); v != "" {
		cfg.Bot.RequireWhitelist = v != "false"
	}
	if v := os.Getenv("DEBUG_MODE"); v != "" {
		cfg.Bot.Debug = v == "true"
	}

	intMap := map[string]*int{
		"WISHBOT_REDIS_DB":             &cfg.Storage.RedisDB,
		"WISHBOT_SEND_TIMEOUT_SECONDS": &cfg.Scheduler.SendTimeoutSeconds,
	}
	for env, ptr := range intMap {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid int for env %s: %s", env, v)
		}
		*ptr = n
	}

	return applyChannelEnv(cfg)
}

// channelEnv maps environment variables onto keys of a channel's raw config.
var channelEnv = map[string][2]string{
	"WISHBOT_WHATSAPP_ACCESS_TOKEN":    {"whatsapp", "access_token"},
	"WISHBOT_WHATSAPP_PHONE_NUMBER_ID": {"whatsapp", "phone_number_id"},
	"WISHBOT_WHATSAPP_VERIFY_TOKEN":    {"whatsapp", "verify_token"},
	"WISHBOT_WHATSAPP_WEBHOOK_ADDR":    {"whatsapp", "webhook_addr"},
	"WISHBOT_TELEGRAM_TOKEN":           {"telegram", "token"},
	"WISHBOT_DISCORD_TOKEN":            {"discord", "token"},
	"WISHBOT_SLACK_BOT_TOKEN":          {"slack", "botToken"},
	"WISHBOT_SLACK_APP_TOKEN":          {"slack", "appToken"},
}

// applyChannelEnv patches channel configs in place, enabling a channel that
// is only configured through the environment.
func applyChannelEnv(cfg *Config) error {
	for env, target := range channelEnv {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		name, key := target[0], target[1]
		raw := cfg.Channels[name]
		if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
			raw = json.RawMessage(`{}`)
		}
		patched, err := sjson.SetBytes(raw, key, val)
		if err != nil {
			return fmt.Errorf("failed to apply %s: %w", env, err)
		}
		cfg.Channels[name] = patched
	}
	return nil
}
