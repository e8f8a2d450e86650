package services

import "errors"

var (
	ErrUserExists         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrPhotoNotFound      = errors.New("photo not found")
	ErrNotCreator         = errors.New("only creators can upload")
	ErrNotEnoughTokens    = errors.New("not enough tokens")
	ErrAmountNotPositive  = errors.New("amount must be positive")
	ErrAmountTooLarge     = errors.New("amount too large")
)

// ValidationError is returned for malformed input; Message is safe to show.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
