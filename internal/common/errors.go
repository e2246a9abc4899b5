package common

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("not authorized")
	ErrInvalidToken    = errors.New("invalid token")
	ErrNotVerified     = errors.New("email not verified")
	ErrEmailInUse      = errors.New("email in use")
	ErrAlreadyVerified = errors.New("verification has already been passed")
)
