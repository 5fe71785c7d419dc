package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/scaledex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// ErrJSONUnsupported is returned by WaitForReady when the server lacks JSON.* commands.
var ErrJSONUnsupported = errors.New("server does not support JSON commands")

const (
	defaultClientName = "scaledex"
	readyPollInterval = 100 * time.Millisecond
)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs        []string
	Username     string
	Password     string
	DB           int
	ClientName   string        // CLIENT SETNAME, default "scaledex"
	WriteTimeout time.Duration // 0 keeps the rueidis default
}

// Store implements db.Store via rueidis.
// Scales are JSON documents, so the server must be Redis 8+ or Valkey/Redis with a JSON module.
type Store struct {
	client rueidis.Client
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("addrs is required")
	}
	name := cfg.ClientName
	if name == "" {
		name = defaultClientName
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      cfg.Addrs,
		Username:         cfg.Username,
		Password:         cfg.Password,
		SelectDB:         cfg.DB,
		ClientName:       name,
		ConnWriteTimeout: cfg.WriteTimeout,
		// Quota counters are shared across instances.
		DisableCache: true,
		AlwaysRESP2:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: "ping", Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the server answers, then checks JSON support once.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for s.Ping(ctx) != nil {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return s.checkJSON(ctx)
}

// checkJSON asks COMMAND INFO about JSON.SET; unknown commands come back as a nil entry.
func (s *Store) checkJSON(ctx context.Context) error {
	cmd := s.b().Arbitrary("COMMAND", "INFO").Args("JSON.SET").Build()
	arr, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return &db.Error{Op: "command info", Err: err}
	}
	if len(arr) == 0 || arr[0].IsNil() {
		return ErrJSONUnsupported
	}
	return nil
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}
