package services

import (
	"errors"
	"fmt"

	"storefront/internal/domain"
)

// abortErr keeps business errors as they are and folds anything else raised in
// a transaction into ErrTransactionAborted.
func abortErr(err error) error {
	if err == nil || domain.IsBusinessError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrTransactionAborted, err)
}

// failureReason is the metric label for a failed checkout.
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrCartEmpty):
		return "cart_empty"
	case errors.Is(err, domain.ErrCartValidationFailed):
		return "cart_invalid"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "aborted"
	}
}
