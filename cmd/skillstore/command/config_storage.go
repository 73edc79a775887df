package command

import (
	"context"
	"fmt"
	"os"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-skillstore/internal/profile"
	"github.com/pixil98/go-skillstore/internal/storage"
)

const profileTable = "profiles"

type StorageBackend int

const (
	StorageBackendFile StorageBackend = iota
	StorageBackendMemory
	StorageBackendPostgres
	StorageBackendRedis
)

func (sb *StorageBackend) UnmarshalText(text []byte) error {
	switch string(text) {
	case "file":
		*sb = StorageBackendFile
	case "memory":
		*sb = StorageBackendMemory
	case "postgres":
		*sb = StorageBackendPostgres
	case "redis":
		*sb = StorageBackendRedis
	default:
		return fmt.Errorf("unknown storage backend: %s", text)
	}
	return nil
}

type StorageConfig struct {
	Backend  StorageBackend `json:"backend"`
	File     FileConfig     `json:"file"`
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
}

func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case StorageBackendFile:
		return c.File.Validate()
	case StorageBackendMemory:
		return nil
	case StorageBackendPostgres:
		return c.Postgres.Validate()
	case StorageBackendRedis:
		return c.Redis.Validate()
	default:
		return fmt.Errorf("unknown storage backend: %v", c.Backend)
	}
}

func (c *StorageConfig) BuildProfileStore(ctx context.Context) (storage.Storer[*profile.Profile], error) {
	switch c.Backend {
	case StorageBackendFile:
		return storage.NewFileStore[*profile.Profile](c.File.Path)
	case StorageBackendMemory:
		return storage.NewMemoryStore[*profile.Profile]()
	case StorageBackendPostgres:
		return c.Postgres.BuildStore(ctx)
	case StorageBackendRedis:
		return c.Redis.BuildStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %v", c.Backend)
	}
}

type FileConfig struct {
	Path string `json:"path"`
}

func (c *FileConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("file: path is required")
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("file: invalid path %q: %w", c.Path, err)
	}

	return nil
}

type PostgresConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Database    string `json:"database"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	SslMode     string `json:"ssl_mode"`
	TablePrefix string `json:"table_prefix"`
}

func (c *PostgresConfig) Validate() error {
	el := errors.NewErrorList()

	if c.Host == "" {
		el.Add(fmt.Errorf("postgres: host is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		el.Add(fmt.Errorf("postgres: port must be set to a valid port"))
	}
	if c.Database == "" {
		el.Add(fmt.Errorf("postgres: database is required"))
	}
	if c.Username == "" {
		el.Add(fmt.Errorf("postgres: username is required"))
	}

	return el.Err()
}

func (c *PostgresConfig) BuildStore(ctx context.Context) (*storage.PostgresStore[*profile.Profile], error) {
	db, err := storage.OpenPostgres(ctx, storage.PostgresConnection{
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		Username: c.Username,
		Password: c.Password,
		SslMode:  c.SslMode,
	})
	if err != nil {
		return nil, err
	}

	store, err := storage.NewPostgresStore[*profile.Profile](db, c.TablePrefix+profileTable)
	if err != nil {
		return nil, err
	}

	err = store.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrating profile table: %w", err)
	}

	return store, nil
}

type RedisConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Database  int    `json:"database"`
	KeyPrefix string `json:"key_prefix"`
}

func (c *RedisConfig) Validate() error {
	el := errors.NewErrorList()

	if c.Host == "" {
		el.Add(fmt.Errorf("redis: host is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		el.Add(fmt.Errorf("redis: port must be set to a valid port"))
	}
	if c.Database < 0 {
		el.Add(fmt.Errorf("redis: database must not be negative"))
	}

	return el.Err()
}

func (c *RedisConfig) BuildStore() *storage.RedisStore[*profile.Profile] {
	prefix := c.KeyPrefix
	if prefix == "" {
		prefix = profileTable
	}

	client := storage.NewRedisClient(storage.RedisConnection{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		Database: c.Database,
	})

	return storage.NewRedisStore[*profile.Profile](client, prefix)
}
