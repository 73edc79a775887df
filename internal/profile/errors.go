package profile

import "errors"

var (
	ErrProfileNotLoaded = errors.New("profile not loaded")
	ErrManagerClosed    = errors.New("profile manager is shutting down")
)
