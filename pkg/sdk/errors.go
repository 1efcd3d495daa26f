package sdk

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is matched by *MissingCredentialsError via errors.Is.
var ErrMissingCredentials = errors.New("missing user credentials")

// MissingCredentialsError is returned before any network call when a user has
// no email or no password.
type MissingCredentialsError struct {
	Email string
}

func (e *MissingCredentialsError) Error() string {
	if e.Email == "" {
		return "missing user credentials: email and password are required"
	}
	return fmt.Sprintf("missing user credentials for %s: password is required", e.Email)
}

func (e *MissingCredentialsError) Is(target error) bool {
	return target == ErrMissingCredentials
}

// TokenAcquisitionError reports a failed password grant or user details lookup.
// StatusCode is zero when the response could not be parsed rather than rejected.
type TokenAcquisitionError struct {
	Op         string
	StatusCode int
	Status     string
	Err        error
}

func (e *TokenAcquisitionError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Op)
	if e.Status != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *TokenAcquisitionError) Unwrap() error {
	return e.Err
}

// ServiceTokenError reports a non-success response from the service lease endpoint.
type ServiceTokenError struct {
	StatusCode int
	Status     string
}

func (e *ServiceTokenError) Error() string {
	return fmt.Sprintf("service token lease failed: %s", e.Status)
}

// CaseDataError reports a non-success response from the case data store.
type CaseDataError struct {
	Op         string
	StatusCode int
	Status     string
	Body       string
}

func (e *CaseDataError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed: %s", e.Op, e.Status)
	}
	return fmt.Sprintf("%s failed: %s: %s", e.Op, e.Status, e.Body)
}
