package entities

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUserNotFound signals an operation against an id with no users row.
	ErrUserNotFound = errors.New("user not found")

	// ErrInsufficientCredits is recoverable; callers surface the current balance.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrAccessDenied is a role or ownership-guard failure. The message names
	// the blocking rule, never the reason the rule exists.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidInput marks malformed admin command arguments. The pending
	// admin state is preserved so the admin may retry.
	ErrInvalidInput = errors.New("invalid input format")

	// ErrExpiredConfirmation marks a one-shot payload past its validity window.
	ErrExpiredConfirmation = errors.New("confirmation expired")

	// ErrToolFailed wraps failures propagated from a tool invocation. The
	// credit is already consumed and is not refunded.
	ErrToolFailed = errors.New("tool invocation failed")
)

// LockedOutError is returned while a progressive lockout is in effect.
type LockedOutError struct {
	Remaining time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("locked out for another %d seconds", int(e.Remaining.Seconds()))
}
