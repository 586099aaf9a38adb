package storage

import (
	"errors"
)

var (
	ErrUserExists       = errors.New("user already exists")
	ErrUserNotFound     = errors.New("user not found")
	ErrTokenNotFound    = errors.New("login token not found")
	ErrRedirectNotFound = errors.New("redirect not found")
	ErrRedirectExists   = errors.New("redirect host already taken")
	ErrTierNotFound     = errors.New("subscription tier not found")

	// ErrPoolTimeout is the cause of a DatabaseError when no pooled
	// connection became available in time.
	ErrPoolTimeout = errors.New("timed out waiting for a database connection")
)

// DatabaseError covers every failure of the database itself: acquiring a
// connection, preparing, executing or scanning.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return e.Op + ": database error: " + e.Err.Error()
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
