package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDreamNotFound   = errors.New("dream not found")
	ErrDreamExists     = errors.New("dream already exists")
	ErrProfileNotFound = errors.New("profile not found")
	ErrSecretNotFound  = errors.New("secret not found")

	ErrServiceUnavailable = errors.New("assistant service unavailable")
	ErrPollTimeout        = fmt.Errorf("run did not finish in time: %w", ErrServiceUnavailable)
	ErrNoResponse         = fmt.Errorf("run produced no assistant message: %w", ErrServiceUnavailable)
	ErrInvalidState       = errors.New("invalid session state")
	ErrEmptyInput         = errors.New("input is empty")
)

// IsServiceFailure reports whether err should be answered with fallback content.
func IsServiceFailure(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// PersistenceWarning reports a durable write that failed while the session
// kept going.
type PersistenceWarning struct {
	DreamID DreamID
	Op      string
	Err     error
}

func (w *PersistenceWarning) Error() string {
	return fmt.Sprintf("persist dream %s (%s): %v", w.DreamID, w.Op, w.Err)
}

func (w *PersistenceWarning) Unwrap() error {
	return w.Err
}
