package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// translate maps driver errors onto the goAccount taxonomy. Context errors
// pass through so callers can tell cancellation from an outage.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return goAccount.ErrUserNotFound
	}
	if conflict := uniqueViolation(err); conflict != nil {
		return conflict
	}
	return fmt.Errorf("store %s: %w", op, err)
}

func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return conflictFor(pgErr.ConstraintName + " " + pgErr.Detail)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return conflictFor(liteErr.Error())
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return goAccount.ErrDuplicateAccount
	}
	return nil
}

func conflictFor(detail string) error {
	detail = strings.ToLower(detail)
	switch {
	case strings.Contains(detail, "username"):
		return goAccount.ErrUsernameTaken
	case strings.Contains(detail, "email"):
		return goAccount.ErrEmailTaken
	default:
		return goAccount.ErrDuplicateAccount
	}
}
