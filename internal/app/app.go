// Package app holds the process-wide tracker state: the store, the session,
// the sign collection, the marker engine and the capture flow, with the
// startup and logout rules that tie them together.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/roadsigns/internal/geo"
	"github.com/atinyakov/roadsigns/internal/models"
	"github.com/atinyakov/roadsigns/internal/reconcile"
	"github.com/atinyakov/roadsigns/internal/service"
	"github.com/atinyakov/roadsigns/internal/storage"
	"github.com/atinyakov/roadsigns/internal/surface"
)

// SurfaceFactory creates a fresh map surface for a new session.
type SurfaceFactory func() reconcile.Surface

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger shared by all components.
func WithLogger(log *zap.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithSurfaceFactory replaces the default in-memory GeoJSON surface.
func WithSurfaceFactory(f SurfaceFactory) Option {
	return func(a *App) { a.newSurface = f }
}

// WithGeoOptions overrides geo.DefaultOptions for captures.
func WithGeoOptions(o geo.Options) Option {
	return func(a *App) { a.geoOpts = o }
}

// WithEncoder replaces the secret encoder.
func WithEncoder(enc service.SecretEncoder) Option {
	return func(a *App) { a.encoder = enc }
}

// WithEngineOptions passes options to the marker engine.
func WithEngineOptions(opts ...reconcile.Option) Option {
	return func(a *App) { a.engineOpts = append(a.engineOpts, opts...) }
}

// App serializes operator events the way a single event loop would. The
// capture wait runs outside that lock so other events stay responsive.
type App struct {
	log        *zap.Logger
	newSurface SurfaceFactory
	geoOpts    geo.Options
	encoder    service.SecretEncoder
	engineOpts []reconcile.Option

	store   *storage.Store
	auth    *service.AuthService
	signs   *service.SignRepository
	engine  *reconcile.Engine
	capture *service.CaptureService

	mu      sync.Mutex
	started bool
	surface reconcile.Surface
}

// New wires an App over backend. locator may be nil, in which case every
// capture reports geolocation as unavailable.
func New(backend storage.Backend, locator geo.Locator, opts ...Option) *App {
	a := &App{
		log:     zap.NewNop(),
		geoOpts: geo.DefaultOptions,
		encoder: service.Base64Encoder{},
	}
	for _, o := range opts {
		o(a)
	}
	if a.newSurface == nil {
		log := a.log
		a.newSurface = func() reconcile.Surface { return surface.NewGeoJSON("", log) }
	}

	a.store = storage.NewStore(backend, service.DemoCredentials(a.encoder), a.log)
	a.engine = reconcile.NewEngine(append([]reconcile.Option{reconcile.WithLogger(a.log)}, a.engineOpts...)...)

	gate := service.GateFunc(func() bool { return a.auth.Active() })
	a.signs = service.NewSignRepository(a.store, gate, a.log)
	a.signs.Subscribe(a.engine.Sync)
	a.auth = service.NewAuthService(a.store, a.encoder, a.signs, a.engine, a.log)
	a.capture = service.NewCaptureService(locator, a.signs, gate, a.geoOpts, a.log)
	return a
}

// Start restores a persisted session and, if one is active, loads the stored
// signs and opens a surface. Without an active session any stored signs are
// purged, so an inactive session never has observations.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return errors.New("app already started")
	}
	a.started = true

	sess, err := a.auth.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if !sess.Active {
		if err := a.store.ClearSigns(ctx); err != nil {
			a.log.Warn("stale signs not purged", zap.Error(err))
		}
		return nil
	}

	if err := a.signs.LoadInitial(ctx); err != nil {
		return err
	}
	a.openSurfaceLocked()
	return nil
}

// Close stops background work and closes the store. The current surface is
// left as drawn.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.engine.Detach()
	a.surface = nil
	return a.store.Close()
}

func (a *App) openSurfaceLocked() {
	if a.engine.Attached() {
		return
	}
	a.surface = a.newSurface()
	a.engine.Attach(a.surface)
}

// Register adds a credential.
func (a *App) Register(ctx context.Context, identity, secret string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.auth.Register(ctx, identity, secret)
}

// Login activates the session and opens a surface.
func (a *App) Login(ctx context.Context, identity, secret string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.auth.Login(ctx, identity, secret); err != nil {
		return err
	}
	a.openSurfaceLocked()
	return nil
}

// Logout ends the session, purges every observation and disposes the surface.
func (a *App) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.auth.Logout(ctx)
	a.surface = nil
	return err
}

// Capture records a sign of category at the current position.
func (a *App) Capture(ctx context.Context, category string) (models.Observation, error) {
	return a.capture.Capture(ctx, category)
}

// CaptureInProgress reports whether a capture is waiting for a fix.
func (a *App) CaptureInProgress() bool {
	return a.capture.InProgress()
}

// Remove deletes the observation with id.
func (a *App) Remove(ctx context.Context, id string) (models.Observation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.auth.Active() {
		return models.Observation{}, service.ErrSessionInactive
	}
	return a.signs.Remove(ctx, id)
}

// Session returns the current session.
func (a *App) Session() models.Session {
	return a.auth.Session()
}

// Signs returns the observation collection in capture order.
func (a *App) Signs() []models.Observation {
	return a.signs.List()
}

// Markers returns the markers currently drawn, or nil without a surface.
func (a *App) Markers() []reconcile.Marker {
	a.mu.Lock()
	s := a.surface
	a.mu.Unlock()
	if s == nil {
		return nil
	}

	ms := s.Markers()
	out := make([]reconcile.Marker, 0, len(ms))
	for _, m := range ms {
		out = append(out, *m)
	}
	return out
}
