package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for handlers to map to HTTP status.
var (
	ErrInvalidCredentials      = errors.New("invalid username or password")
	ErrMissingOTP              = errors.New("two-factor code required")
	ErrInvalidOTP              = errors.New("invalid two-factor code")
	ErrUnauthenticated         = errors.New("unauthenticated")
	ErrUserNotFound            = errors.New("user not found")
	ErrUsernameTaken           = errors.New("username already taken")
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor authentication already enabled")
	ErrTwoFactorNotSetup       = errors.New("two-factor authentication not set up")

	ErrDiagramNotFound           = errors.New("diagram not found")
	ErrDiagramNotFoundOrNotOwned = errors.New("diagram not found or not owned")
	ErrUnexpectedState           = errors.New("save reached neither create nor update")
)

// DiagramOwnershipError is returned when a save targets an id the caller does
// not own. OwnedByOther is operator diagnostics only and must not reach clients.
type DiagramOwnershipError struct {
	ID           int64
	OwnedByOther bool
}

func (e *DiagramOwnershipError) Error() string {
	if e.OwnedByOther {
		return fmt.Sprintf("diagram %d belongs to another user", e.ID)
	}
	return fmt.Sprintf("diagram %d does not exist", e.ID)
}

// Is lets errors.Is match ErrDiagramNotFoundOrNotOwned.
func (e *DiagramOwnershipError) Is(target error) bool {
	return target == ErrDiagramNotFoundOrNotOwned
}

// ValidationError lists required request fields that were missing.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required parameter(s): " + strings.Join(e.Fields, ", ")
}
