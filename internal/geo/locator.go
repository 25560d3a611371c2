// Package geo provides position fixes for the capture flow.
package geo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/atinyakov/roadsigns/internal/models"
)

var (
	// ErrUnavailable means the host has no usable geolocation source.
	ErrUnavailable = errors.New("geolocation unavailable")
	// ErrDenied means the source exists but access was refused.
	ErrDenied = errors.New("geolocation permission denied")
	// ErrTimeout means no fix arrived within the allowed wait.
	ErrTimeout = errors.New("geolocation timed out")
)

// Options tunes a single position request.
type Options struct {
	// HighAccuracy asks the source for its most precise fix.
	HighAccuracy bool
	// Timeout bounds the wait for a fix. Zero means no bound beyond ctx.
	Timeout time.Duration
	// MaximumAge allows reuse of a cached fix no older than this.
	MaximumAge time.Duration
}

// DefaultOptions mirrors a one-shot high-accuracy browser request.
var DefaultOptions = Options{
	HighAccuracy: true,
	Timeout:      10 * time.Second,
	MaximumAge:   60 * time.Second,
}

// Locator returns a single position fix.
type Locator interface {
	RequestPosition(ctx context.Context, opts Options) (models.Position, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context, opts Options) (models.Position, error)

func (f LocatorFunc) RequestPosition(ctx context.Context, opts Options) (models.Position, error) {
	return f(ctx, opts)
}

// Fixed always reports the same coordinates, stamped with the current time.
type Fixed struct {
	Latitude  float64
	Longitude float64
}

func (f Fixed) RequestPosition(ctx context.Context, _ Options) (models.Position, error) {
	if err := ctx.Err(); err != nil {
		return models.Position{}, ErrTimeout
	}
	return models.Position{Latitude: f.Latitude, Longitude: f.Longitude, At: time.Now()}, nil
}

// Unavailable is the locator used when nothing is configured.
var Unavailable = LocatorFunc(func(context.Context, Options) (models.Position, error) {
	return models.Position{}, ErrUnavailable
})

// Caching wraps a Locator and answers from the last fix while it is younger
// than Options.MaximumAge.
type Caching struct {
	next Locator
	now  func() time.Time

	mu   sync.Mutex
	last *models.Position
}

// NewCaching returns a Caching locator over next.
func NewCaching(next Locator) *Caching {
	return &Caching{next: next, now: time.Now}
}

func (c *Caching) RequestPosition(ctx context.Context, opts Options) (models.Position, error) {
	c.mu.Lock()
	if c.last != nil && opts.MaximumAge > 0 && c.now().Sub(c.last.At) <= opts.MaximumAge {
		pos := *c.last
		c.mu.Unlock()
		return pos, nil
	}
	c.mu.Unlock()

	pos, err := c.next.RequestPosition(ctx, opts)
	if err != nil {
		return models.Position{}, err
	}
	if pos.At.IsZero() {
		pos.At = c.now()
	}

	c.mu.Lock()
	c.last = &pos
	c.mu.Unlock()
	return pos, nil
}
