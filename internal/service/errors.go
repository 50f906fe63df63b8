package service

import "errors"

var (
	ErrConflict           = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrForbidden          = errors.New("not allowed")
	ErrNotFound           = errors.New("not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrAlreadyShared      = errors.New("restaurant already shared with this user")
	ErrInvalidInput       = errors.New("invalid input")
)

// ValidationError carries a user-facing message and matches ErrInvalidInput.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}
