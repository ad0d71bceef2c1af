package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrInternalServer     = errors.New("internal server error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotFriends         = errors.New("users are not friends")
	ErrEmptyMessage       = errors.New("message fields must not be empty")
	ErrInvalidToken       = errors.New("invalid token")
)

// Validation wraps err as a client-input failure; aborts before any side effect.
func Validation(err error) error {
	return fmt.Errorf("%w: %w", ErrBadRequest, err)
}

// Authorization wraps err as a permission failure (e.g. the friendship gate).
func Authorization(err error) error {
	return fmt.Errorf("%w: %w", ErrForbidden, err)
}

// Infrastructure wraps a store or lookup failure. Callers log the full chain
// and report only a generic failure to the client.
func Infrastructure(err error) error {
	return fmt.Errorf("%w: %w", ErrInternalServer, err)
}

type APIError struct {
	Message string `json:"error"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, code int) *APIError {
	return &APIError{
		Message: message,
		Code:    code,
	}
}

func HTTPStatusFromError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotFriends):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrUserAlreadyExists):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
