package service

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/atinyakov/roadsigns/internal/geo"
	"github.com/atinyakov/roadsigns/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newCapture(t *testing.T, loc geo.Locator, opts geo.Options) (*CaptureService, *SignRepository, *atomic.Bool) {
	t.Helper()
	on := &atomic.Bool{}
	on.Store(true)
	gate := GateFunc(on.Load)
	repo := NewSignRepository(&mockSignStore{}, gate, nil)
	c := NewCaptureService(loc, repo, gate, opts, nil)
	return c, repo, on
}

func TestCapture_Success(t *testing.T) {
	var gotOpts geo.Options
	loc := geo.LocatorFunc(func(_ context.Context, opts geo.Options) (models.Position, error) {
		gotOpts = opts
		return models.Position{Latitude: 45.4642, Longitude: 9.19}, nil
	})
	c, repo, _ := newCapture(t, loc, geo.DefaultOptions)
	c.now = func() time.Time { return time.Date(2025, 5, 4, 3, 2, 1, 987_654_321, time.UTC) }

	obs, err := c.Capture(context.Background(), "no_parking")
	require.NoError(t, err)

	assert.NotEmpty(t, obs.ID)
	assert.Equal(t, "no_parking", obs.Category)
	assert.Equal(t, 45.4642, obs.Latitude)
	assert.Equal(t, 9.19, obs.Longitude)
	assert.Equal(t, time.Date(2025, 5, 4, 3, 2, 1, 987_000_000, time.UTC), obs.CapturedAt)
	assert.Equal(t, geo.DefaultOptions, gotOpts)

	assert.Equal(t, []string{obs.ID}, ids(repo.List()))
	assert.False(t, c.InProgress())
}

func TestCapture_IDsAreUniqueAndOrdered(t *testing.T) {
	c, repo, _ := newCapture(t, geo.Fixed{Latitude: 1, Longitude: 2}, geo.DefaultOptions)
	for i := 0; i < 5; i++ {
		_, err := c.Capture(context.Background(), "works")
		require.NoError(t, err)
	}
	list := repo.List()
	require.Len(t, list, 5)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].ID, list[i].ID)
	}
}

func TestCapture_UnknownCategoryFallsBack(t *testing.T) {
	c, _, _ := newCapture(t, geo.Fixed{}, geo.DefaultOptions)
	obs, err := c.Capture(context.Background(), "stop_sign")
	require.NoError(t, err)
	assert.Equal(t, "works", obs.Category)
}

func TestCapture_Failures(t *testing.T) {
	tests := []struct {
		name    string
		locator geo.Locator
		opts    geo.Options
		wantErr error
	}{
		{
			name:    "no locator",
			locator: nil,
			wantErr: ErrGeolocationUnavailable,
		},
		{
			name:    "unavailable",
			locator: geo.Unavailable,
			wantErr: ErrGeolocationUnavailable,
		},
		{
			name: "denied",
			locator: geo.LocatorFunc(func(context.Context, geo.Options) (models.Position, error) {
				return models.Position{}, geo.ErrDenied
			}),
			wantErr: ErrGeolocationDenied,
		},
		{
			name: "sensor error",
			locator: geo.LocatorFunc(func(context.Context, geo.Options) (models.Position, error) {
				return models.Position{}, errors.New("antenna unplugged")
			}),
			wantErr: ErrGeolocationUnavailable,
		},
		{
			name: "timeout",
			locator: geo.LocatorFunc(func(ctx context.Context, _ geo.Options) (models.Position, error) {
				<-ctx.Done()
				return models.Position{}, ctx.Err()
			}),
			opts:    geo.Options{Timeout: 10 * time.Millisecond},
			wantErr: ErrGeolocationTimeout,
		},
		{
			name:    "NaN latitude",
			locator: geo.Fixed{Latitude: math.NaN(), Longitude: 9},
			wantErr: ErrGeolocationUnavailable,
		},
		{
			name:    "infinite longitude",
			locator: geo.Fixed{Latitude: 45, Longitude: math.Inf(1)},
			wantErr: ErrGeolocationUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, repo, _ := newCapture(t, tt.locator, tt.opts)
			_, err := c.Capture(context.Background(), "works")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, repo.Len(), "no partial observation")
			assert.False(t, c.InProgress())
		})
	}
}

func TestCapture_CancelledIsNotASensorFailure(t *testing.T) {
	loc := geo.LocatorFunc(func(ctx context.Context, _ geo.Options) (models.Position, error) {
		<-ctx.Done()
		return models.Position{}, ctx.Err()
	})
	c, repo, _ := newCapture(t, loc, geo.DefaultOptions)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Capture(ctx, "works")

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrGeolocationUnavailable)
	assert.NotErrorIs(t, err, ErrGeolocationTimeout)
	assert.Zero(t, repo.Len())
}

func TestCapture_SessionInactive(t *testing.T) {
	c, repo, on := newCapture(t, geo.Fixed{}, geo.DefaultOptions)
	on.Store(false)
	_, err := c.Capture(context.Background(), "works")
	assert.ErrorIs(t, err, ErrSessionInactive)
	assert.Zero(t, repo.Len())
}

func TestCapture_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	loc := geo.LocatorFunc(func(ctx context.Context, _ geo.Options) (models.Position, error) {
		close(started)
		<-release
		return models.Position{Latitude: 1, Longitude: 1}, nil
	})
	c, repo, _ := newCapture(t, loc, geo.DefaultOptions)

	done := make(chan error, 1)
	go func() {
		_, err := c.Capture(context.Background(), "works")
		done <- err
	}()
	<-started
	assert.True(t, c.InProgress())

	_, err := c.Capture(context.Background(), "works")
	assert.ErrorIs(t, err, ErrCaptureInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, repo.Len())
	assert.False(t, c.InProgress())
}

func TestCapture_LogoutDuringWait(t *testing.T) {
	release := make(chan struct{})
	loc := geo.LocatorFunc(func(ctx context.Context, _ geo.Options) (models.Position, error) {
		<-release
		return models.Position{Latitude: 1, Longitude: 1}, nil
	})
	c, repo, on := newCapture(t, loc, geo.DefaultOptions)

	done := make(chan error, 1)
	go func() {
		_, err := c.Capture(context.Background(), "works")
		done <- err
	}()
	for !c.InProgress() {
		time.Sleep(time.Millisecond)
	}
	on.Store(false)
	close(release)

	assert.ErrorIs(t, <-done, ErrSessionInactive)
	assert.Zero(t, repo.Len())
}
