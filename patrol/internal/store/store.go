// Package store provides the data access layer for docpatrol.
//
// The store receives an already-opened *sql.DB (the binary opens it with WAL
// and foreign keys enabled) and wraps it with typed accessors. All writes go
// through this package; updates, reviews and usage_events are append-only.
package store

import "database/sql"

// Store wraps the docpatrol database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
