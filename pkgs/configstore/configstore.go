// Package configstore persists LNCV key/value pairs across restarts, backed
// by a local sqlite file. It satisfies loconet.ConfigStore structurally.
package configstore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store is a sqlite-backed implementation of loconet.ConfigStore.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at path and ensures
// the lncv table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("configstore: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("configstore: ping %s: %w", path, err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS lncv (
		number INTEGER PRIMARY KEY,
		value INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("configstore: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored for key, or ok=false if it has never been set.
func (s *Store) Get(key uint16) (value uint16, ok bool, err error) {
	row := s.db.QueryRow(`SELECT value FROM lncv WHERE number = ?`, key)
	var v int64
	switch scanErr := row.Scan(&v); scanErr {
	case nil:
		return uint16(v), true, nil
	case sql.ErrNoRows:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("configstore: get %d: %w", key, scanErr)
	}
}

// Set persists value for key, overwriting any prior value.
func (s *Store) Set(key, value uint16) error {
	_, err := s.db.Exec(
		`INSERT INTO lncv (number, value) VALUES (?, ?)
		 ON CONFLICT(number) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("configstore: set %d=%d: %w", key, value, err)
	}
	return nil
}

// Init seeds any keys in defaults that are not already present, leaving
// existing values untouched (a re-flashed node must not clobber a
// previously-programmed address).
func (s *Store) Init(defaults map[uint16]uint16) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("configstore: init: %w", err)
	}
	defer tx.Rollback()

	for key, value := range defaults {
		var existing int64
		err := tx.QueryRow(`SELECT value FROM lncv WHERE number = ?`, key).Scan(&existing)
		switch err {
		case nil:
			continue
		case sql.ErrNoRows:
			if _, err := tx.Exec(`INSERT INTO lncv (number, value) VALUES (?, ?)`, key, value); err != nil {
				return fmt.Errorf("configstore: init seed %d: %w", key, err)
			}
		default:
			return fmt.Errorf("configstore: init lookup %d: %w", key, err)
		}
	}
	return tx.Commit()
}
