// Package reconcile keeps the marker layer of a map surface in step with the
// sign collection.
package reconcile

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Marker is the visual projection of one observation.
type Marker struct {
	// ObservationID links the marker back to its observation.
	ObservationID string
	// Position is [longitude, latitude].
	Position orb.Point
	// Color is the fill color of the round icon.
	Color string
	// Label is the single character drawn inside the icon.
	Label string
	// Icon geometry in pixels.
	IconSize   int
	IconAnchor int
	Popup      Popup
}

// Popup is the detail shown when a marker is opened.
type Popup struct {
	// Badge and BadgeColor describe the sign badge; unknown categories get a
	// gray "Sign" badge.
	Badge       string
	BadgeColor  string
	Title       string
	Coordinates string
	CapturedAt  string
}

func (p Popup) String() string {
	return fmt.Sprintf("[%s] %s\n%s\nCaptured: %s", p.Badge, p.Title, p.Coordinates, p.CapturedAt)
}

// Padding is the viewport padding in pixels applied when fitting bounds.
type Padding struct {
	X, Y int
}

// Surface is the map the markers are drawn on. Implementations need not be
// safe for concurrent use; the Engine serializes every call it makes.
type Surface interface {
	// Live reports whether the surface can still be drawn on.
	Live() bool
	// Markers lists the markers currently attached.
	Markers() []*Marker
	AddMarker(m *Marker)
	RemoveMarker(m *Marker)
	// FitBounds moves the viewport so that b is visible with padding.
	FitBounds(b orb.Bound, padding Padding)
	// InvalidateSize rechecks the container size and redraws.
	InvalidateSize()
	// Dispose releases the surface. Live returns false afterwards.
	Dispose()
}
