package state

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore persists state in badger. Without a data dir it runs in memory.
type BadgerStore struct {
	db      *badger.DB
	logger  *slog.Logger
	dataDir string
}

type BadgerOptionFunc func(*BadgerStore)

// WithDataDir puts the database under dir/state instead of memory.
func WithDataDir(dir string) BadgerOptionFunc {
	return func(s *BadgerStore) { s.dataDir = dir }
}

func WithLogger(logger *slog.Logger) BadgerOptionFunc {
	return func(s *BadgerStore) { s.logger = logger }
}

func NewBadgerStore(opts ...BadgerOptionFunc) (*BadgerStore, error) {
	s := &BadgerStore{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	var badgerOpts badger.Options
	if s.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		badgerOpts = badger.DefaultOptions(filepath.Join(s.dataDir, "state"))
	}
	badgerOpts = badgerOpts.
		WithLogger(&badgerLogger{logger: s.logger}).
		// the default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	s.db = db
	return s, nil
}

func (s *BadgerStore) Get(key string) ([]byte, bool, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return nil, false, ErrStoreClosed
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *BadgerStore) Apply(ops []Op) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			if op.Delete {
				if err := txn.Delete([]byte(op.Key)); err != nil {
					return err
				}
				continue
			}
			if err := txn.Set([]byte(op.Key), op.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrStoreClosed
	}
	return err
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's printf style logging into slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(msg string, args ...any) {
	l.logger.Error(fmt.Sprintf(msg, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(msg string, args ...any) {
	l.logger.Warn(fmt.Sprintf(msg, args...), "component", "badger")
}

func (l *badgerLogger) Infof(msg string, args ...any) {
	l.logger.Info(fmt.Sprintf(msg, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(msg string, args ...any) {
	l.logger.Debug(fmt.Sprintf(msg, args...), "component", "badger")
}
