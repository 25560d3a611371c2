// Package surface provides a map surface that renders the marker layer as a
// GeoJSON document, viewable in any GIS tool or web map.
package surface

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/atinyakov/roadsigns/internal/reconcile"
)

// Viewport is the visible region of the map.
type Viewport struct {
	Center orb.Point
	Zoom   int
	// Bound is set once FitBounds has been called.
	Bound   *orb.Bound
	Padding reconcile.Padding
}

// DefaultCenter is Milan, where a fresh surface opens.
var DefaultCenter = orb.Point{9.1900, 45.4642}

// DefaultZoom is the initial zoom level.
const DefaultZoom = 9

// GeoJSON is a reconcile.Surface that keeps markers in memory and writes
// them to Path on every InvalidateSize. An empty Path keeps everything in
// memory.
type GeoJSON struct {
	Path string
	log  *zap.Logger

	mu       sync.Mutex
	markers  []*reconcile.Marker
	view     Viewport
	disposed bool
	redraws  int
}

// NewGeoJSON returns a live surface centered on DefaultCenter.
func NewGeoJSON(path string, log *zap.Logger) *GeoJSON {
	if log == nil {
		log = zap.NewNop()
	}
	return &GeoJSON{
		Path: path,
		log:  log,
		view: Viewport{Center: DefaultCenter, Zoom: DefaultZoom},
	}
}

func (g *GeoJSON) Live() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.disposed
}

func (g *GeoJSON) Markers() []*reconcile.Marker {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*reconcile.Marker(nil), g.markers...)
}

func (g *GeoJSON) AddMarker(m *reconcile.Marker) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.markers = append(g.markers, m)
}

func (g *GeoJSON) RemoveMarker(m *reconcile.Marker) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, x := range g.markers {
		if x == m {
			g.markers = append(g.markers[:i], g.markers[i+1:]...)
			return
		}
	}
}

func (g *GeoJSON) FitBounds(b orb.Bound, padding reconcile.Padding) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.view.Bound = &b
	g.view.Center = b.Center()
	g.view.Padding = padding
}

// InvalidateSize redraws the document. Write failures are logged; the
// in-memory layer is unaffected.
func (g *GeoJSON) InvalidateSize() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return
	}
	g.redraws++
	if g.Path == "" {
		return
	}
	if err := g.writeLocked(); err != nil {
		g.log.Warn("map not written", zap.String("path", g.Path), zap.Error(err))
	}
}

// Dispose drops all markers and removes the written document.
func (g *GeoJSON) Dispose() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disposed = true
	g.markers = nil
	if g.Path == "" {
		return
	}
	if err := os.Remove(g.Path); err != nil && !os.IsNotExist(err) {
		g.log.Warn("map not removed", zap.String("path", g.Path), zap.Error(err))
	}
}

// Viewport returns the current viewport.
func (g *GeoJSON) Viewport() Viewport {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.view
}

// Document returns the marker layer as a feature collection.
func (g *GeoJSON) Document() *geojson.FeatureCollection {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.documentLocked()
}

func (g *GeoJSON) documentLocked() *geojson.FeatureCollection {
	return FeatureCollection(g.markers, g.view.Bound)
}

// FeatureCollection renders markers as point features. bound, when set,
// becomes the collection's bbox.
func FeatureCollection(markers []*reconcile.Marker, bound *orb.Bound) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		f := geojson.NewFeature(m.Position)
		f.ID = m.ObservationID
		f.Properties["color"] = m.Color
		f.Properties["label"] = m.Label
		f.Properties["iconSize"] = m.IconSize
		f.Properties["iconAnchor"] = m.IconAnchor
		f.Properties["badge"] = m.Popup.Badge
		f.Properties["badgeColor"] = m.Popup.BadgeColor
		f.Properties["title"] = m.Popup.Title
		f.Properties["coordinates"] = m.Popup.Coordinates
		f.Properties["capturedAt"] = m.Popup.CapturedAt
		f.Properties["description"] = m.Popup.String()
		fc.Append(f)
	}
	if bound != nil {
		fc.BBox = geojson.NewBBox(*bound)
	}
	return fc
}

func (g *GeoJSON) writeLocked() error {
	data, err := json.MarshalIndent(g.documentLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode map: %w", err)
	}

	dir := filepath.Dir(g.Path)
	f, err := os.CreateTemp(dir, filepath.Base(g.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp map: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write map: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close map: %w", err)
	}
	if err := os.Rename(tmp, g.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace map: %w", err)
	}
	return nil
}
