package reconcile

import (
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/atinyakov/roadsigns/internal/catalog"
	"github.com/atinyakov/roadsigns/internal/models"
)

const (
	// DefaultRecheckDelay is how long after a rebuild the size is rechecked
	// again, for containers whose layout settles late.
	DefaultRecheckDelay = 100 * time.Millisecond

	iconSize   = 32
	iconAnchor = 16

	capturedAtFormat = "2006-01-02 15:04:05"
)

// FitPadding is applied every time the viewport is fitted to the markers.
var FitPadding = Padding{X: 20, Y: 20}

// Scheduler runs f after d and returns a function that cancels it.
type Scheduler func(d time.Duration, f func()) (cancel func() bool)

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Option configures an Engine.
type Option func(*Engine)

// WithScheduler replaces time.AfterFunc for the delayed size recheck.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.schedule = s }
}

// WithRecheckDelay overrides DefaultRecheckDelay.
func WithRecheckDelay(d time.Duration) Option {
	return func(e *Engine) { e.recheckDelay = d }
}

// WithLocation sets the zone capture times are shown in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithLogger sets the engine logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// Engine rebuilds the marker layer whenever the sign collection changes or a
// surface becomes available. Every rebuild removes all markers and adds one
// per observation, so a marker can never outlive its observation.
type Engine struct {
	mu           sync.Mutex
	surface      Surface
	signs        []models.Observation
	schedule     Scheduler
	cancel       func() bool
	recheckDelay time.Duration
	loc          *time.Location
	log          *zap.Logger
}

// NewEngine returns an Engine with no surface and no signs.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		schedule:     afterFunc,
		recheckDelay: DefaultRecheckDelay,
		loc:          time.Local,
		log:          zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Attach makes s the current surface and draws the current signs on it.
func (e *Engine) Attach(s Surface) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.surface = s
	e.reconcileLocked()
}

// Sync records signs as the current collection and redraws.
func (e *Engine) Sync(signs []models.Observation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.signs = append(e.signs[:0:0], signs...)
	e.reconcileLocked()
}

// Reconcile redraws the current collection on the current surface.
func (e *Engine) Reconcile() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reconcileLocked()
}

// Release disposes the current surface and forgets it. A later Attach starts
// from a fresh surface.
func (e *Engine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopRecheckLocked()
	if e.surface != nil {
		e.surface.Dispose()
		e.surface = nil
	}
}

// Detach forgets the current surface without disposing it and cancels the
// pending recheck. Used on shutdown, where the drawn map should stay.
func (e *Engine) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopRecheckLocked()
	e.surface = nil
}

// Attached reports whether a surface is currently attached.
func (e *Engine) Attached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface != nil
}

func (e *Engine) reconcileLocked() {
	s := e.surface
	if s == nil || !s.Live() {
		return
	}

	for _, m := range s.Markers() {
		s.RemoveMarker(m)
	}

	points := make(orb.MultiPoint, 0, len(e.signs))
	for _, obs := range e.signs {
		m := e.markerFor(obs)
		s.AddMarker(m)
		points = append(points, m.Position)
	}

	if len(points) > 0 {
		s.FitBounds(points.Bound(), FitPadding)
	}

	s.InvalidateSize()
	e.scheduleRecheckLocked(s)

	e.log.Debug("markers reconciled", zap.Int("markers", len(points)))
}

func (e *Engine) scheduleRecheckLocked(s Surface) {
	e.stopRecheckLocked()
	e.cancel = e.schedule(e.recheckDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.surface == s && s.Live() {
			s.InvalidateSize()
		}
	})
}

func (e *Engine) stopRecheckLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// markerFor styles obs by its category, falling back to the first catalog
// entry, while the popup title uses the name lookup with its own fallback.
func (e *Engine) markerFor(obs models.Observation) *Marker {
	cat := catalog.Resolve(obs.Category)
	lat := clamp(obs.Latitude, -90, 90)
	lng := clamp(obs.Longitude, -180, 180)

	return &Marker{
		ObservationID: obs.ID,
		Position:      orb.Point{lng, lat},
		Color:         cat.Color,
		Label:         cat.Label(),
		IconSize:      iconSize,
		IconAnchor:    iconAnchor,
		Popup: Popup{
			Badge:       catalog.Badge(obs.Category),
			BadgeColor:  catalog.Color(obs.Category),
			Title:       catalog.Name(obs.Category),
			Coordinates: FormatCoordinates(obs.Latitude, obs.Longitude),
			CapturedAt:  obs.CapturedAt.In(e.loc).Format(capturedAtFormat),
		},
	}
}

// FormatCoordinates renders a position with four decimal digits.
func FormatCoordinates(lat, lng float64) string {
	return fmt.Sprintf("Lat: %.4f | Lng: %.4f", lat, lng)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
