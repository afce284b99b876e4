// Package docstore persists named JSON documents.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Load when no document has the given name.
var ErrNotFound = errors.New("document not found")

// Store loads and saves whole documents by name. Implementations encode
// values as JSON so every backend holds byte-identical documents.
type Store interface {
	Load(ctx context.Context, name string, v any) error
	Save(ctx context.Context, name string, v any) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config selects and parameterises a backend.
type Config struct {
	Backend       string `json:"backend"`
	DataDir       string `json:"data_dir"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	RedisPrefix   string `json:"redis_prefix"`
	DSN           string `json:"dsn"`
}

// Open constructs the backend named in cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendFile, "":
		return NewFileStore(cfg.DataDir), nil
	case BackendMemory:
		return NewMemory(), nil
	case BackendRedis:
		return OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
	case BackendSQLite:
		return OpenSQL(ctx, DialectSQLite, cfg.DSN)
	case BackendPostgres:
		return OpenSQL(ctx, DialectPostgres, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// validName rejects names that could escape the store's namespace.
func validName(name string) error {
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `\`) ||
		strings.HasPrefix(name, "/") {
		return fmt.Errorf("invalid document name %q", name)
	}
	return nil
}
