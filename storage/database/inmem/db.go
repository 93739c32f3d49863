package inmemdb

import (
	"sync"

	"github.com/trezcool/bitacora/core/compliance"
)

type (
	DB struct {
		sync.RWMutex
		owners   map[string]*ownerTables
		failures map[string]error
	}

	ownerTables struct {
		teachers []compliance.Teacher
		records  []compliance.Record
	}
)

func Open() *DB {
	return &DB{
		owners:   make(map[string]*ownerTables),
		failures: make(map[string]error),
	}
}

// FailOn makes every subsequent call of the repository operation op return err (nil clears it).
func (db *DB) FailOn(op string, err error) {
	db.Lock()
	defer db.Unlock()
	if err == nil {
		delete(db.failures, op)
		return
	}
	db.failures[op] = err
}

// tables must be called with the lock held.
func (db *DB) tables(owner string) *ownerTables {
	t, ok := db.owners[owner]
	if !ok {
		t = &ownerTables{}
		db.owners[owner] = t
	}
	return t
}

// lookup must be called with the (read) lock held; it never creates tables.
func (db *DB) lookup(owner string) ownerTables {
	if t, ok := db.owners[owner]; ok {
		return *t
	}
	return ownerTables{}
}
