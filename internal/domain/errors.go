package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork is returned when the prediction endpoint cannot be reached
	ErrNetwork = errors.New("prediction endpoint unreachable")

	// ErrPredictionResponse is returned when the prediction endpoint answers with an error or an unreadable body
	ErrPredictionResponse = errors.New("prediction endpoint returned an error")

	// ErrInvalidCredentials is returned when no user matches the email/password pair
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrDuplicateEmail is returned when signing up with an email that is already registered
	ErrDuplicateEmail = errors.New("an account with this email already exists")

	// ErrNotAuthenticated is returned when there is no current session
	ErrNotAuthenticated = errors.New("no active session")

	// ErrScanNotFound is returned when a scan id is not present in the user's history
	ErrScanNotFound = errors.New("scan result not found")

	// ErrPlantNotFound is returned when a plant id is not present in the library
	ErrPlantNotFound = errors.New("plant not found in library")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrKeyNotFound is returned by key-value stores for keys that were never written
	ErrKeyNotFound = errors.New("key not found")

	// ErrStorageUnavailable is returned when the persistence backend fails
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ResponseError carries the status and raw body of a non-2xx prediction response.
type ResponseError struct {
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("prediction failed (%d): %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is(err, ErrPredictionResponse) match.
func (e *ResponseError) Unwrap() error {
	return ErrPredictionResponse
}
