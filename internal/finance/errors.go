package finance

import (
	"context"
	"errors"
	"fmt"

	"github.com/hray3182/ledgerline/internal/repository"
)

var (
	ErrInvalidAmount      = errors.New("amount must be a positive number")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrNoDefaultAccount   = errors.New("no default posting account")
	ErrIncompleteData     = errors.New("pending payment is missing required data")
	ErrAlreadyResolved    = errors.New("pending payment is already resolved")
	ErrIO                 = errors.New("store unavailable")
	ErrAdvisorUnavailable = errors.New("advisor unavailable")
)

var domainErrors = []error{
	ErrInvalidAmount,
	ErrInvalidInput,
	ErrNotFound,
	ErrNoDefaultAccount,
	ErrIncompleteData,
	ErrAlreadyResolved,
	ErrIO,
	ErrAdvisorUnavailable,
}

// IsRetryable reports whether the operation failed on the store and may
// succeed if repeated, timeouts included.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrIO)
}

// storeErr classifies an error coming out of the repository layer. Domain
// errors pass through, a missing record becomes ErrNotFound and anything
// else is an ErrIO.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s timed out: %w", ErrIO, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
