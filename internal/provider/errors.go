package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for matching with errors.Is. Cancellation is not part of
// this taxonomy: a cancelled request surfaces context.Canceled (or
// context.DeadlineExceeded) and is always silent.
var (
	// ErrNotFound means the backend had no usable result. Terminal for
	// that request.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited means the backend refused the request because of
	// rate limiting. Transient.
	ErrRateLimited = errors.New("rate limited")

	// ErrValidationMismatch means cross-validation rejected a candidate.
	// Terminal for the candidate, never surfaced to the user.
	ErrValidationMismatch = errors.New("validation mismatch")
)

// Kind classifies a provider failure.
type Kind int

const (
	KindNetwork Kind = iota
	KindNotFound
	KindRateLimited
	KindValidationMismatch
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindValidationMismatch:
		return "validation_mismatch"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure. It matches the corresponding
// sentinel through errors.Is so callers can branch on kind without
// unwrapping.
type Error struct {
	Provider string // adapter name, e.g. "lastfm"
	Op       string // operation, e.g. "search"
	Kind     Kind
	Err      error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Provider, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		// A rejected candidate is a not-found as far as callers are
		// concerned; the finer sentinel exists for logging.
		return e.Kind == KindNotFound || e.Kind == KindValidationMismatch
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrValidationMismatch:
		return e.Kind == KindValidationMismatch
	}
	return false
}

// E builds a classified provider error.
func E(providerName, op string, kind Kind, err error) *Error {
	return &Error{Provider: providerName, Op: op, Kind: kind, Err: err}
}

// KindFromStatus maps an HTTP status code to an error kind.
func KindFromStatus(status int) Kind {
	switch {
	case status == 404:
		return KindNotFound
	case status == 429:
		return KindRateLimited
	default:
		return KindNetwork
	}
}
