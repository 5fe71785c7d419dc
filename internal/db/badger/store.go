package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scaledex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const maxConflictRetries = 16

// Config holds the BadgerDB location.
type Config struct {
	Path     string
	InMemory bool
}

// Store implements db.Store on an embedded BadgerDB for single-node deployments.
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

// zapAdapter adapts zap to the badger.Logger interface.
type zapAdapter struct {
	s *zap.SugaredLogger
}

var _ badger.Logger = (*zapAdapter)(nil)

func (a *zapAdapter) Errorf(msg string, args ...any)   { a.s.Errorf(msg, args...) }
func (a *zapAdapter) Warningf(msg string, args ...any) { a.s.Warnf(msg, args...) }
func (a *zapAdapter) Infof(msg string, args ...any)    { a.s.Debugf(msg, args...) }
func (a *zapAdapter) Debugf(msg string, args ...any)   { a.s.Debugf(msg, args...) }

// NewStore opens a BadgerDB store. The directory is created when missing.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = &zapAdapter{s: logger.Named("badger").Sugar()}
	opts.Compression = options.None

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: bdb, logger: logger}, nil
}

// Ping reports whether the database is open.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("ping: badger is closed")
	}
	return nil
}

// WaitForReady returns immediately; an opened embedded store is ready.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Close closes the database.
func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close badger", zap.Error(err))
	}
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for range maxConflictRetries {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck // context error
		}
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err //nolint:wrapcheck // callers wrap with db.Error
		}
	}
	return badger.ErrConflict
}

func (s *Store) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // context error
	}
	return s.db.View(fn) //nolint:wrapcheck // callers wrap with db.Error
}

// read returns a copy of the value and its expiry (unix seconds, 0 = none).
func read(txn *badger.Txn, key string) ([]byte, uint64, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, 0, db.ErrKeyNotFound
		}
		return nil, 0, err //nolint:wrapcheck // callers wrap with db.Error
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, 0, err //nolint:wrapcheck // callers wrap with db.Error
	}
	return val, item.ExpiresAt(), nil
}

// write stores val keeping expiresAt (0 = none).
func write(txn *badger.Txn, key string, val []byte, expiresAt uint64) error {
	e := badger.NewEntry([]byte(key), val)
	e.ExpiresAt = expiresAt
	return txn.SetEntry(e) //nolint:wrapcheck // callers wrap with db.Error
}

func wrap(op string, err error) error {
	if err == nil || errors.Is(err, db.ErrKeyNotFound) {
		return err
	}
	return &db.Error{Op: op, Err: err}
}
