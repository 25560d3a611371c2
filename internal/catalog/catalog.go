// Package catalog holds the fixed set of road-sign categories used for
// selection and marker styling.
package catalog

import "strings"

// Category describes one kind of road sign.
type Category struct {
	// ID is the stable identifier stored with observations.
	ID string `json:"id"`
	// Name is the display name.
	Name string `json:"name"`
	// Color is the marker color (CSS color name).
	Color string `json:"color"`
	// Badge is the short text shown on the sign badge.
	Badge string `json:"badge"`
}

// Label returns the single-character marker label for the category.
func (c Category) Label() string {
	if c.ID == "" {
		return "?"
	}
	return strings.ToUpper(c.ID[:1])
}

const (
	// UnknownName is returned by Name for ids missing from the catalog.
	UnknownName = "Unknown"
	// UnknownColor is returned by Color for ids missing from the catalog.
	UnknownColor = "gray"
	// UnknownBadge is returned by Badge for ids missing from the catalog.
	UnknownBadge = "Sign"
)

var categories = []Category{
	{ID: "works", Name: "Road Works", Color: "orange", Badge: "Works"},
	{ID: "speed_limit_30", Name: "Speed Limit 30 km/h", Color: "red", Badge: "30 KM/H"},
	{ID: "mandatory_turn", Name: "Mandatory Direction", Color: "blue", Badge: "Mandatory"},
	{ID: "no_parking", Name: "No Parking", Color: "red", Badge: "No Parking"},
}

// All returns a copy of the catalog in display order.
func All() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Default returns the first catalog entry.
func Default() Category {
	return categories[0]
}

// Lookup returns the category with the given id.
func Lookup(id string) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// Resolve returns the category for id, or the first catalog entry when id is
// unknown. Used for styling so a marker is never dropped.
func Resolve(id string) Category {
	if c, ok := Lookup(id); ok {
		return c
	}
	return Default()
}

// Name returns the display name for id, or UnknownName.
func Name(id string) string {
	if c, ok := Lookup(id); ok {
		return c.Name
	}
	return UnknownName
}

// Color returns the color for id, or UnknownColor.
func Color(id string) string {
	if c, ok := Lookup(id); ok {
		return c.Color
	}
	return UnknownColor
}

// Badge returns the badge text for id, or UnknownBadge.
func Badge(id string) string {
	if c, ok := Lookup(id); ok {
		return c.Badge
	}
	return UnknownBadge
}
