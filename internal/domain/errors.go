package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrCartEmpty               = errors.New("cart is empty")
	ErrCartValidationFailed    = errors.New("cart validation failed")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrForbidden               = errors.New("forbidden")
	ErrConflict                = errors.New("conflict")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrTransactionAborted      = errors.New("transaction aborted")
)

// CartLineProblem describes a cart line whose quantity cannot be fulfilled.
type CartLineProblem struct {
	ProductID   uint64 `json:"productId"`
	ProductName string `json:"productName"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

type CartValidationError struct {
	Problems []CartLineProblem
}

func (e *CartValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", p.ProductName, p.Requested, p.Available))
	}
	return fmt.Sprintf("%s: %s", ErrCartValidationFailed, strings.Join(parts, ", "))
}

func (e *CartValidationError) Unwrap() error { return ErrCartValidationFailed }

type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidStatusTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStatusTransition }

// IsBusinessError reports whether err belongs to the caller-visible taxonomy.
// Anything else raised inside a transaction is treated as an aborted transaction.
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrInvalidArgument, ErrInsufficientStock, ErrCartEmpty,
		ErrCartValidationFailed, ErrInvalidStatusTransition, ErrForbidden,
		ErrConflict, ErrUnauthorized, ErrTransactionAborted,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
