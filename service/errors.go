package service

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrInvalidState is returned when an entity is not in a state the operation accepts
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound is returned when a referenced event, wager or account does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conditional update lost a race with another settlement
	ErrConflict = errors.New("conflict")

	// ErrStoreUnavailable is returned when the database could not be reached in time
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ClassifyStoreError wraps connection and timeout failures with ErrStoreUnavailable.
// Other errors are returned unchanged.
func ClassifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}

	var netErr net.Error
	var connectErr *pgconn.ConnectError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &connectErr),
		errors.As(err, &netErr):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}
