// Package auth signs the automation session into the target site: primary credentials,
// then an optional second-factor step that may or may not be presented.
package auth

import (
	"errors"
	"fmt"
)

// ErrMissingOneTimeCode is returned when the site asks for a second factor and no
// one-time code was supplied.
var ErrMissingOneTimeCode = errors.New("second factor requested but no one-time code configured")

// ErrCredentialsRejected is returned when the site shows its login error indicator.
var ErrCredentialsRejected = errors.New("credentials rejected")

// AuthError represents a fatal authentication failure.
type AuthError struct {
	Step    string
	Message string
	Cause   error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("authentication error at %s: %s: %v", e.Step, e.Message, e.Cause)
	}
	return fmt.Sprintf("authentication error at %s: %s", e.Step, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}
