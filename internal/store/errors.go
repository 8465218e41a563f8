package store

import (
	"context"
	"errors"

	"github.com/jobfinder/apiserver/types"
	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("conflict")

const uniqueViolation = "23505"

// mapWriteError translates driver errors from INSERT/UPDATE statements.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

// UserLookup finds a user by one field.
type UserLookup func(ctx context.Context, value string) (types.User, error)

// ByEmailOrPhone resolves a login identifier for stores that cannot match
// both fields in one query. Only ErrNotFound from the email lookup falls
// through to the phone lookup.
func ByEmailOrPhone(ctx context.Context, identifier string, byEmail, byPhone UserLookup) (types.User, error) {
	user, err := byEmail(ctx, identifier)
	if !errors.Is(err, ErrNotFound) {
		return user, err
	}
	return byPhone(ctx, identifier)
}
