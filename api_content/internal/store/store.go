package store

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound            = errors.New("store: not found")
	ErrInsufficientCredits = errors.New("store: insufficient credits")
)

// Store is the Postgres-backed repository for every TasteSync table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// notFound maps "no row" and malformed uuid input onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "22P02" {
		return ErrNotFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
