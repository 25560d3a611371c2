package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/roadsigns/internal/catalog"
	"github.com/atinyakov/roadsigns/internal/geo"
	"github.com/atinyakov/roadsigns/internal/models"
)

// Appender adds an observation to the collection.
type Appender interface {
	Append(ctx context.Context, obs models.Observation) error
}

// CaptureService records a new observation at the current position.
// Only one capture may wait for a fix at a time.
type CaptureService struct {
	locator geo.Locator
	signs   Appender
	gate    Gate
	opts    geo.Options
	log     *zap.Logger

	now   func() time.Time
	newID func() (string, error)

	inFlight atomic.Bool
}

// NewCaptureService returns a CaptureService. A nil locator makes every
// capture fail with ErrGeolocationUnavailable.
func NewCaptureService(locator geo.Locator, signs Appender, gate Gate, opts geo.Options, log *zap.Logger) *CaptureService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CaptureService{
		locator: locator,
		signs:   signs,
		gate:    gate,
		opts:    opts,
		log:     log,
		now:     time.Now,
		newID:   newObservationID,
	}
}

// newObservationID returns a UUIDv7, which sorts by creation time.
func newObservationID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// InProgress reports whether a capture is waiting for a fix.
func (c *CaptureService) InProgress() bool {
	return c.inFlight.Load()
}

// Capture requests one position fix and appends an observation of category
// there. Unknown categories fall back to the first catalog entry. On any
// failure nothing is appended.
func (c *CaptureService) Capture(ctx context.Context, category string) (models.Observation, error) {
	if !c.gate.Active() {
		return models.Observation{}, ErrSessionInactive
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return models.Observation{}, ErrCaptureInProgress
	}
	defer c.inFlight.Store(false)

	if c.locator == nil {
		return models.Observation{}, ErrGeolocationUnavailable
	}

	cat := catalog.Resolve(category)

	reqCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	pos, err := c.locator.RequestPosition(reqCtx, c.opts)
	if err != nil {
		err = classifyLocatorError(reqCtx, err)
		c.log.Warn("capture failed", zap.String("category", cat.ID), zap.Error(err))
		return models.Observation{}, err
	}
	if !finite(pos.Latitude) || !finite(pos.Longitude) {
		c.log.Warn("capture failed: non-finite fix",
			zap.Float64("lat", pos.Latitude), zap.Float64("lng", pos.Longitude))
		return models.Observation{}, fmt.Errorf("%w: non-finite position", ErrGeolocationUnavailable)
	}

	id, err := c.newID()
	if err != nil {
		return models.Observation{}, fmt.Errorf("generate id: %w", err)
	}
	obs := models.Observation{
		ID:         id,
		Category:   cat.ID,
		Latitude:   pos.Latitude,
		Longitude:  pos.Longitude,
		CapturedAt: c.now().UTC().Truncate(time.Millisecond),
	}
	if err := c.signs.Append(ctx, obs); err != nil {
		return models.Observation{}, err
	}

	c.log.Info("sign captured",
		zap.String("id", obs.ID),
		zap.String("category", obs.Category),
		zap.Float64("lat", obs.Latitude),
		zap.Float64("lng", obs.Longitude),
	)
	return obs, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// classifyLocatorError maps a locator failure onto the geolocation errors.
// Cancellation by the caller is passed through as it is.
func classifyLocatorError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", context.Canceled, err)
	case errors.Is(err, geo.ErrDenied),
		errors.Is(err, geo.ErrTimeout),
		errors.Is(err, geo.ErrUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrGeolocationTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrGeolocationUnavailable, err)
	}
}
