package service

import (
	"errors"

	"github.com/atinyakov/roadsigns/internal/geo"
)

var (
	// ErrDuplicateIdentity is returned when registering an identity that exists.
	ErrDuplicateIdentity = errors.New("identity already registered")
	// ErrInvalidIdentity is returned when registering with an empty identity or secret.
	ErrInvalidIdentity = errors.New("identity and secret are required")
	// ErrInvalidCredentials is returned on a login mismatch. It does not say
	// which field was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionInactive is returned when an operation needs a logged-in operator.
	ErrSessionInactive = errors.New("no active session")

	// ErrNotFound is returned when removing an unknown observation.
	ErrNotFound = errors.New("observation not found")
	// ErrDuplicateObservation is returned when appending an id that exists.
	ErrDuplicateObservation = errors.New("observation already exists")

	// ErrCaptureInProgress is returned while another capture is waiting for a fix.
	ErrCaptureInProgress = errors.New("capture already in progress")
	// Geolocation failures reported by the capture flow.
	ErrGeolocationUnavailable = geo.ErrUnavailable
	ErrGeolocationDenied      = geo.ErrDenied
	ErrGeolocationTimeout     = geo.ErrTimeout
)
