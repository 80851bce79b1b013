package auth

import "errors"

var (
	ErrEmailConflict      = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrWrongOldPassword   = errors.New("old password is incorrect")
	ErrInvalidToken       = errors.New("invalid token")
)
