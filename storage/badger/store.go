// Package badgerdb is the local embedded Record Store.
//
// Every owner gets its own key prefix; teachers and records are stored as JSON values under
// keys ordered by a global sequence so iteration returns them in insertion order.
// The first access of an owner seeds the configured initial teachers (load-or-default).
package badgerdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/compliance"
)

const seqBandwidth = 100

type Config struct {
	// Path is the directory of the database files; ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// InitialTeachers are the names given to every new owner.
	InitialTeachers []string
}

func NewConfig(conf *core.Config) Config {
	return Config{
		Path:            conf.Store.LocalPath,
		InMemory:        conf.TestMode,
		SyncWrites:      !conf.TestMode,
		InitialTeachers: conf.InitialTeachers,
	}
}

type badgerLogger struct {
	logger core.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf("badger: "+format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf("badger: "+format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf("badger: "+format, args...))
}

func (l badgerLogger) Debugf(string, ...interface{}) {}

// Open opens (or creates) the database described by cfg.
func Open(cfg Config, logger core.Logger) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("path is required for persistent database")
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, errors.Wrapf(err, "creating database directory %s", cfg.Path)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening badger database")
	}
	return db, nil
}

type Store struct {
	db      *badger.DB
	seq     *badger.Sequence
	initial []string

	seeded sync.Map // owner -> struct{}
}

var _ compliance.Repository = (*Store)(nil) // interface compliance check

func NewStore(db *badger.DB, cfg Config) (*Store, error) {
	seq, err := db.GetSequence([]byte("seq"), seqBandwidth)
	if err != nil {
		return nil, errors.Wrap(err, "opening key sequence")
	}
	return &Store{db: db, seq: seq, initial: cfg.InitialTeachers}, nil
}

// Close releases the key sequence; the caller still owns the *badger.DB.
func (s *Store) Close() error {
	return s.seq.Release()
}

// keys

func teacherPrefix(owner string) []byte { return []byte("o/" + owner + "/t/") }
func recordPrefix(owner string) []byte  { return []byte("o/" + owner + "/r/") }
func seedMarker(owner string) []byte    { return []byte("o/" + owner + "/seeded") }

func (s *Store) nextKey(prefix []byte) ([]byte, error) {
	n, err := s.seq.Next()
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, prefix...), fmt.Sprintf("%016x", n)...), nil
}

// iterate calls fn with every key/value under prefix, in key order.
func iterate(txn *badger.Txn, prefix []byte, fn func(key, val []byte) error) error {
	it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: prefix})
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		if err := item.Value(func(val []byte) error { return fn(key, val) }); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) put(txn *badger.Txn, prefix []byte, v interface{}) error {
	key, err := s.nextKey(prefix)
	if err != nil {
		return err
	}
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, val)
}

// loadOrDefault seeds the initial teachers the first time an owner is seen.
func (s *Store) loadOrDefault(owner string) error {
	if _, ok := s.seeded.Load(owner); ok {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(seedMarker(owner))
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		for _, name := range s.initial {
			if err = s.put(txn, teacherPrefix(owner), compliance.Teacher{ID: compliance.NewID(), Name: name}); err != nil {
				return err
			}
		}
		return txn.Set(seedMarker(owner), []byte{1})
	})
	if err != nil {
		return err
	}
	s.seeded.Store(owner, struct{}{})
	return nil
}

func (s *Store) view(op, owner string, fn func(txn *badger.Txn) error) error {
	if err := s.loadOrDefault(owner); err != nil {
		return core.NewStoreError(op, err)
	}
	if err := s.db.View(fn); err != nil {
		return core.NewStoreError(op, err)
	}
	return nil
}

func (s *Store) update(op, owner string, fn func(txn *badger.Txn) error) error {
	if err := s.loadOrDefault(owner); err != nil {
		return core.NewStoreError(op, err)
	}
	err := s.db.Update(fn)
	if err == compliance.ErrTeacherNotFound {
		return err
	}
	if err != nil {
		return core.NewStoreError(op, err)
	}
	return nil
}

func (s *Store) QueryTeachers(_ context.Context, owner string) ([]compliance.Teacher, error) {
	teachers := make([]compliance.Teacher, 0)
	err := s.view("QueryTeachers", owner, func(txn *badger.Txn) error {
		return iterate(txn, teacherPrefix(owner), func(_, val []byte) error {
			var t compliance.Teacher
			if err := json.Unmarshal(val, &t); err != nil {
				return err
			}
			teachers = append(teachers, t)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return teachers, nil
}

func (s *Store) CreateTeacher(_ context.Context, owner string, t compliance.Teacher) (compliance.Teacher, error) {
	err := s.update("CreateTeacher", owner, func(txn *badger.Txn) error {
		return s.put(txn, teacherPrefix(owner), t)
	})
	if err != nil {
		return compliance.Teacher{}, err
	}
	return t, nil
}

func (s *Store) DeleteTeacher(_ context.Context, owner, id string) (int, error) {
	removed := 0
	err := s.update("DeleteTeacher", owner, func(txn *badger.Txn) error {
		var teacherKey []byte
		err := iterate(txn, teacherPrefix(owner), func(key, val []byte) error {
			var t compliance.Teacher
			if err := json.Unmarshal(val, &t); err != nil {
				return err
			}
			if t.ID == id {
				teacherKey = key
			}
			return nil
		})
		if err != nil {
			return err
		}
		if teacherKey == nil {
			return compliance.ErrTeacherNotFound
		}

		var recordKeys [][]byte
		err = iterate(txn, recordPrefix(owner), func(key, val []byte) error {
			var r compliance.Record
			if err := json.Unmarshal(val, &r); err != nil {
				return err
			}
			if r.TeacherID == id {
				recordKeys = append(recordKeys, key)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, key := range append(recordKeys, teacherKey) {
			if err = txn.Delete(key); err != nil {
				return err
			}
		}
		removed = len(recordKeys)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) QueryRecords(_ context.Context, owner string) ([]compliance.Record, error) {
	records := make([]compliance.Record, 0)
	err := s.view("QueryRecords", owner, func(txn *badger.Txn) error {
		return iterate(txn, recordPrefix(owner), func(_, val []byte) error {
			var r compliance.Record
			if err := json.Unmarshal(val, &r); err != nil {
				return err
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) CreateRecord(_ context.Context, owner string, r compliance.Record) (compliance.Record, error) {
	err := s.update("CreateRecord", owner, func(txn *badger.Txn) error {
		return s.put(txn, recordPrefix(owner), r)
	})
	if err != nil {
		return compliance.Record{}, err
	}
	return r, nil
}

// ReplaceAll swaps both collections in a single transaction.
func (s *Store) ReplaceAll(_ context.Context, owner string, teachers []compliance.Teacher, records []compliance.Record) error {
	return s.update("ReplaceAll", owner, func(txn *badger.Txn) error {
		var stale [][]byte
		for _, prefix := range [][]byte{teacherPrefix(owner), recordPrefix(owner)} {
			err := iterate(txn, prefix, func(key, _ []byte) error {
				stale = append(stale, key)
				return nil
			})
			if err != nil {
				return err
			}
		}
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for _, t := range teachers {
			if err := s.put(txn, teacherPrefix(owner), t); err != nil {
				return err
			}
		}
		for _, r := range records {
			if err := s.put(txn, recordPrefix(owner), r); err != nil {
				return err
			}
		}
		return nil
	})
}
