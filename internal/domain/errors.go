package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrSessionClosed   = errors.New("screening session is closed")
	ErrVersionConflict = errors.New("screening session was modified concurrently")
	ErrLocked          = errors.New("screening session is busy")
	ErrUpstream        = errors.New("completion endpoint failure")
)
