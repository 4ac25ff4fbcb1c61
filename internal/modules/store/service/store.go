package service

import (
	"errors"

	"fire_bridge/pkg/db"

	"github.com/jackc/pgx/v5/pgconn"
)

// Store is the single owner of persisted mission/fire/user state. Every
// write goes through a transaction; other components never touch rows
// directly.
type Store struct {
	db *db.PgTxManager
}

func New(db *db.PgTxManager) *Store {
	return &Store{db: db}
}

// uniqueViolation returns the violated constraint name for 23505 errors,
// "" otherwise. Unique-index conflicts are expected control flow here.
func uniqueViolation(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName
	}
	return ""
}
