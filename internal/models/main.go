// Package models defines the core data structures for credentials,
// the operator session and road-sign observations.
package models

import "time"

// Credential represents a registered operator.
type Credential struct {
	// Identity is the unique login name (an email address in practice).
	Identity string `json:"identity"`
	// Secret is the encoded secret. It is never stored in plain text.
	Secret string `json:"secret"`
}

// Session is the process-wide authentication state.
type Session struct {
	// Active reports whether an operator is logged in.
	Active bool `json:"active"`
	// Identity is the logged-in operator. Empty when Active is false.
	Identity string `json:"identity,omitempty"`
}

// Observation is one recorded road-sign sighting.
type Observation struct {
	// ID is the unique, creation-time ordered identifier.
	ID string `json:"id"`
	// Category is a catalog category id.
	Category string `json:"category"`
	// Latitude in WGS84 degrees.
	Latitude float64 `json:"latitude"`
	// Longitude in WGS84 degrees.
	Longitude float64 `json:"longitude"`
	// CapturedAt is when the observation was recorded, millisecond precision.
	CapturedAt time.Time `json:"capturedAt"`
}

// Position is a single fix returned by a geolocation provider.
type Position struct {
	Latitude  float64
	Longitude float64
	// Accuracy is the horizontal accuracy estimate in meters, 0 if unknown.
	// Receivers reporting only HDOP have it scaled by an assumed range error.
	Accuracy float64
	// At is when the fix was taken.
	At time.Time
}
