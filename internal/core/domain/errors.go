package domain

import (
	"errors"
	"strings"
)

var (
	ErrConfiguration        = errors.New("configuration error")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrTokenRevoked         = errors.New("refresh token revoked")
	ErrForbidden            = errors.New("access forbidden")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserExists           = errors.New("user already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrInvalidID            = errors.New("invalid url param")
)

// ValidationIssue describes one rejected input field.
type ValidationIssue struct {
	Path     string
	Msg      string
	Location string
}

// ValidationError collects every field that failed validation for a request.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		msgs = append(msgs, is.Msg)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(location, path, msg string) *ValidationError {
	return &ValidationError{Issues: []ValidationIssue{{Path: path, Msg: msg, Location: location}}}
}
