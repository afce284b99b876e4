package config

import (
	"strings"
	"testing"

	"github.com/coopco/wishbot/internal/auth"
	"github.com/tidwall/gjson"
)

func TestLoadFromReader(t *testing.T) {
	jsonData := `{
		"bot": {
			"owner_number": "+1 555 000 1111",
			"owner_lid": "998877@lid",
			"command_prefix": "Wish,",
			"require_whitelist": false
		},
		"storage": {
			"backend": "redis",
			"redis_addr": "127.0.0.1:6380",
			"redis_db": 2
		},
		"scheduler": {
			"spec": "*/5 * * * *",
			"send_timeout_seconds": 15
		},
		"channels": {
			"telegram": {"token": "tg-token"}
		}
	}`

	cfg, err := LoadFromReader(strings.NewReader(jsonData))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}

	if cfg.Bot.CommandPrefix != "Wish," {
		t.Errorf("expected prefix Wish,, got %s", cfg.Bot.CommandPrefix)
	}
	if cfg.Storage.Backend != "redis" || cfg.Storage.RedisDB != 2 {
		t.Errorf("unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Storage.RedisPrefix != "wishbot:" {
		t.Errorf("expected default redis prefix to survive, got %s", cfg.Storage.RedisPrefix)
	}
	if cfg.Scheduler.Spec != "*/5 * * * *" {
		t.Errorf("expected spec */5 * * * *, got %s", cfg.Scheduler.Spec)
	}
	if got := gjson.GetBytes(cfg.Channels["telegram"], "token").String(); got != "tg-token" {
		t.Errorf("expected telegram token tg-token, got %s", got)
	}
	if cfg.AuthMode() != auth.ModeRelaxed {
		t.Errorf("expected relaxed mode, got %v", cfg.AuthMode())
	}
	if cfg.SendTimeout().Seconds() != 15 {
		t.Errorf("expected 15s timeout, got %v", cfg.SendTimeout())
	}
	o := cfg.Owner()
	if o.Address != "15550001111@s.whatsapp.net" || o.Alias != "998877@lid" {
		t.Errorf("unexpected owner %+v", o)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Bot.CommandPrefix != "Bot," {
		t.Errorf("expected prefix Bot,, got %s", cfg.Bot.CommandPrefix)
	}
	if !cfg.Bot.RequireWhitelist {
		t.Error("expected whitelist to be required by default")
	}
	if cfg.Storage.Backend != "file" || cfg.Storage.DataDir != "data" {
		t.Errorf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Scheduler.Spec != "* * * * *" {
		t.Errorf("expected every-minute spec, got %s", cfg.Scheduler.Spec)
	}
	if cfg.Log.Mode != LogFile || cfg.Log.File != "wishbot.log" {
		t.Errorf("unexpected log defaults %+v", cfg.Log)
	}
	if cfg.Admin.Addr != "" {
		t.Errorf("admin API should be off by default, got %s", cfg.Admin.Addr)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("OWNER_NUMBER", "447700900123")
	t.Setenv("WISHBOT_STORAGE_BACKEND", "memory")
	t.Setenv("WISHBOT_REDIS_DB", "3")

	cfg, err := LoadFromReader(strings.NewReader(`{"bot": {"owner_number": "111"}}`))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}
	if cfg.Bot.OwnerNumber != "447700900123" {
		t.Errorf("expected env owner, got %s", cfg.Bot.OwnerNumber)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected memory backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Storage.RedisDB != 3 {
		t.Errorf("expected redis db 3, got %d", cfg.Storage.RedisDB)
	}
}

func TestMissingFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.json")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPartialConfig(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`{"log": {"mode": "console"}}`))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}
	if cfg.Log.Mode != LogConsole {
		t.Errorf("expected console, got %s", cfg.Log.Mode)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default level info, got %s", cfg.Log.Level)
	}
	if cfg.Scheduler.SendTimeoutSeconds != 60 {
		t.Errorf("expected default timeout 60, got %d", cfg.Scheduler.SendTimeoutSeconds)
	}
}
