// Package errors provides the error taxonomy shared by services and handlers.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindInvalidState
	KindAuthentication
	KindForbidden
	KindConflict
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindAuthentication:
		return "authentication"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error carries a Kind, a client-safe message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// E builds an Error wrapping cause.
func E(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Validation reports malformed input.
func Validation(message string) error { return New(KindValidation, message) }

// InvalidState reports an operation that the target's state forbids.
func InvalidState(message string) error { return New(KindInvalidState, message) }

// Persistence wraps a storage failure.
func Persistence(err error, message string) error {
	if err == nil {
		return nil
	}
	return E(KindPersistence, message, err)
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the client-safe message of the first *Error in err's chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// Is and As re-export the standard helpers so callers need one import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }

// Common errors
var (
	ErrUserNotFound        = New(KindNotFound, "user not found")
	ErrUserAlreadyExists   = New(KindConflict, "user already exists")
	ErrFundNotFound        = New(KindNotFound, "fund not found")
	ErrFundInactive        = New(KindInvalidState, "fund is not accepting donations")
	ErrCampaignNotFound    = New(KindNotFound, "campaign not found")
	ErrCampaignNotActive   = New(KindInvalidState, "campaign is not active")
	ErrSubscriptionMissing = New(KindNotFound, "subscription not found")
	ErrSubscriptionPaused  = New(KindInvalidState, "subscription is not active")
	ErrZakatNotFound       = New(KindNotFound, "zakat calculation not found")
	ErrZakatAlreadyPaid    = New(KindConflict, "zakat already paid")
	ErrZakatNothingDue     = New(KindConflict, "no zakat due")
	ErrApplicationNotFound = New(KindNotFound, "partner application not found")

	ErrIntentNotFound     = New(KindNotFound, "payment intent not found")
	ErrInvalidTarget      = New(KindValidation, "exactly one target must be set")
	ErrInvalidAmount      = New(KindValidation, "amount must be positive")
	ErrInvalidCurrency    = New(KindValidation, "unsupported currency")
	ErrInvalidMethod      = New(KindValidation, "unsupported payment method")
	ErrInvalidTransition  = New(KindInvalidState, "status transition not allowed")
	ErrUnknownProvider    = New(KindValidation, "unknown payment provider")
	ErrInvalidSignature   = New(KindAuthentication, "invalid signature")
	ErrMalformedPayload   = New(KindValidation, "malformed notification payload")
	ErrAmountMismatch     = New(KindValidation, "notification amount does not match intent")
	ErrForbidden          = New(KindForbidden, "access denied")
	ErrDuplicateRequest   = New(KindConflict, "duplicate request in progress")
	ErrSearchUnavailable  = New(KindInvalidState, "search is not configured")
	ErrInvalidSearchScope = New(KindValidation, "search type must be funds or campaigns")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
