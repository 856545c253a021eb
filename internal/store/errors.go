package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("not found")

// IOError wraps a failed database operation. It is recoverable: the caller
// logs it and carries on with in-memory state.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsIOError reports whether err wraps an *IOError.
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}

func ioErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Err: err}
}

// MigrationError reports cubes whose legacy data could not be migrated.
// The store stays usable; only the listed cubes lack subcube rows.
type MigrationError struct {
	Version int
	Cubes   []string // "window/cube" keys that failed
	Err     error    // first failure
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration to v%d failed for %d cube(s) [%s]: %v",
		e.Version, len(e.Cubes), strings.Join(e.Cubes, ", "), e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// IsMigrationError reports whether err wraps a *MigrationError.
func IsMigrationError(err error) bool {
	var me *MigrationError
	return errors.As(err, &me)
}
