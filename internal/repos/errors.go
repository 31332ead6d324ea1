package repos

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateSchedule means a unique (user_id, question_id) schedule row
// already exists; the caller lost a creation race.
var ErrDuplicateSchedule = errors.New("review schedule already exists")

// ErrVersionConflict means a versioned update matched zero rows; the row
// moved under the caller.
var ErrVersionConflict = errors.New("review schedule version conflict")

// isUniqueViolation classifies driver-specific duplicate-key failures.
// Postgres reports SQLSTATE 23505; the sqlite driver used in tests only
// exposes the message text.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
