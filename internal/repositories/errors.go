package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a record does not exist in a store.
	ErrNotFound = errors.New("record not found")
	// ErrRemoteUnavailable covers network, connection and timeout failures of the remote store.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrRemoteRejected covers failures the remote store reported itself: schema, constraint, permission.
	ErrRemoteRejected = errors.New("remote store rejected request")
	// ErrLocalStorageUnavailable is returned when the local fallback store cannot be read or written.
	ErrLocalStorageUnavailable = errors.New("local storage unavailable")
)

// ClassifyRemoteError wraps a remote store error with the kind of failure it
// represents. Not-found errors become ErrNotFound; nil stays nil.
func ClassifyRemoteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrRemoteUnavailable) || errors.Is(err, ErrRemoteRejected) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if isUnavailable(err) {
		return fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrRemoteRejected, err)
}

func isUnavailable(err error) bool {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.As(err, &netErr):
		return true
	}
	// database/sql does not export the closed-pool error.
	return strings.Contains(err.Error(), "database is closed")
}

// FailureKind names the classified failure for logging.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRemoteUnavailable):
		return "remote_unavailable"
	case errors.Is(err, ErrRemoteRejected):
		return "remote_rejected"
	case errors.Is(err, ErrLocalStorageUnavailable):
		return "local_storage_unavailable"
	default:
		return "unknown"
	}
}
