package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/roadsigns/internal/geo"
	"github.com/atinyakov/roadsigns/internal/reconcile"
	"github.com/atinyakov/roadsigns/internal/service"
	"github.com/atinyakov/roadsigns/internal/storage"
	"github.com/atinyakov/roadsigns/internal/surface"
)

func noRecheck(time.Duration, func()) func() bool { return func() bool { return false } }

// start simulates a process start over backend.
func start(t *testing.T, backend storage.Backend) (*App, *[]*surface.GeoJSON) {
	t.Helper()
	var surfaces []*surface.GeoJSON
	a := New(backend, geo.Fixed{Latitude: 45.4642, Longitude: 9.19},
		WithEngineOptions(reconcile.WithScheduler(noRecheck)),
		WithSurfaceFactory(func() reconcile.Surface {
			s := surface.NewGeoJSON("", nil)
			surfaces = append(surfaces, s)
			return s
		}),
	)
	require.NoError(t, a.Start(context.Background()))
	return a, &surfaces
}

func TestApp_FreshStartIsLoggedOut(t *testing.T) {
	a, surfaces := start(t, storage.NewMemoryBackend())

	assert.False(t, a.Session().Active)
	assert.Empty(t, a.Signs())
	assert.Nil(t, a.Markers())
	assert.Empty(t, *surfaces)
}

func TestApp_StartTwice(t *testing.T) {
	a, _ := start(t, storage.NewMemoryBackend())
	assert.Error(t, a.Start(context.Background()))
}

func TestApp_CaptureRequiresLogin(t *testing.T) {
	a, _ := start(t, storage.NewMemoryBackend())

	_, err := a.Capture(context.Background(), "works")
	assert.ErrorIs(t, err, service.ErrSessionInactive)

	_, err = a.Remove(context.Background(), "x")
	assert.ErrorIs(t, err, service.ErrSessionInactive)
}

func TestApp_MarkersFollowSigns(t *testing.T) {
	ctx := context.Background()
	a, surfaces := start(t, storage.NewMemoryBackend())

	require.NoError(t, a.Login(ctx, service.DemoIdentity, service.DemoSecret))
	require.Len(t, *surfaces, 1)

	first, err := a.Capture(ctx, "works")
	require.NoError(t, err)
	_, err = a.Capture(ctx, "no_parking")
	require.NoError(t, err)

	markers := a.Markers()
	require.Len(t, markers, 2)
	assert.Equal(t, "W", markers[0].Label)
	assert.Equal(t, "N", markers[1].Label)

	removed, err := a.Remove(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, removed.ID)
	assert.Len(t, a.Markers(), 1)

	_, err = a.Remove(ctx, first.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Len(t, a.Signs(), 1)
}

func TestApp_RestartRestoresSessionAndMarkers(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()

	a, _ := start(t, backend)
	require.NoError(t, a.Login(ctx, service.DemoIdentity, service.DemoSecret))
	obs, err := a.Capture(ctx, "speed_limit_30")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, surfaces := start(t, backend)
	assert.True(t, b.Session().Active)
	assert.Equal(t, service.DemoIdentity, b.Session().Identity)
	require.Len(t, *surfaces, 1)

	signs := b.Signs()
	require.Len(t, signs, 1)
	assert.Equal(t, obs, signs[0])

	markers := b.Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, "red", markers[0].Color)
	assert.Equal(t, "Speed Limit 30 km/h", markers[0].Popup.Title)
}

func TestApp_LogoutThenRestartShowsNothing(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()

	a, surfaces := start(t, backend)
	require.NoError(t, a.Login(ctx, service.DemoIdentity, service.DemoSecret))
	_, err := a.Capture(ctx, "works")
	require.NoError(t, err)

	require.NoError(t, a.Logout(ctx))
	assert.Empty(t, a.Signs())
	assert.Nil(t, a.Markers())
	assert.False(t, (*surfaces)[0].Live())
	require.NoError(t, a.Close())

	b, _ := start(t, backend)
	assert.False(t, b.Session().Active)
	assert.Empty(t, b.Signs())

	_, ok, err := backend.Load(ctx, storage.BucketSigns)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApp_StaleSignsPurgedWithoutSession(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Save(ctx, storage.BucketSigns,
		[]byte(`[{"id":"a","category":"works","latitude":1,"longitude":2,"capturedAt":"2024-01-01T00:00:00.000Z"}]`)))

	a, _ := start(t, backend)
	assert.Empty(t, a.Signs())

	_, ok, err := backend.Load(ctx, storage.BucketSigns)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApp_LoginKeepsSurface(t *testing.T) {
	ctx := context.Background()
	a, surfaces := start(t, storage.NewMemoryBackend())

	require.NoError(t, a.Login(ctx, service.DemoIdentity, service.DemoSecret))
	require.NoError(t, a.Login(ctx, service.DemoIdentity, service.DemoSecret))
	assert.Len(t, *surfaces, 1)

	require.NoError(t, a.Logout(ctx))
	require.NoError(t, a.Login(ctx, service.DemoIdentity, service.DemoSecret))
	assert.Len(t, *surfaces, 2)
}

func TestApp_RegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	a, _ := start(t, storage.NewMemoryBackend())

	require.NoError(t, a.Register(ctx, "ops@example.com", "s3cret"))
	assert.ErrorIs(t, a.Register(ctx, "ops@example.com", "other"), service.ErrDuplicateIdentity)
	require.NoError(t, a.Login(ctx, "ops@example.com", "s3cret"))
	assert.Equal(t, "ops@example.com", a.Session().Identity)
}

// flakyBackend fails reads or writes of the signs bucket on demand.
type flakyBackend struct {
	*storage.MemoryBackend
	failSave bool
	failLoad bool
}

var errDiskFull = errors.New("disk full")

func (b *flakyBackend) Save(ctx context.Context, bucket string, blob []byte) error {
	if b.failSave && bucket == storage.BucketSigns {
		return errDiskFull
	}
	return b.MemoryBackend.Save(ctx, bucket, blob)
}

func (b *flakyBackend) Load(ctx context.Context, bucket string) ([]byte, bool, error) {
	if b.failLoad && bucket == storage.BucketSigns {
		return nil, false, errDiskFull
	}
	return b.MemoryBackend.Load(ctx, bucket)
}

func TestApp_FailedSaveRejectsCapture(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{MemoryBackend: storage.NewMemoryBackend()}

	a, _ := start(t, backend)
	require.NoError(t, a.Login(ctx, service.DemoIdentity, service.DemoSecret))
	kept, err := a.Capture(ctx, "works")
	require.NoError(t, err)

	backend.failSave = true
	_, err = a.Capture(ctx, "no_parking")
	assert.ErrorIs(t, err, errDiskFull)
	_, err = a.Remove(ctx, kept.ID)
	assert.ErrorIs(t, err, errDiskFull)

	assert.Len(t, a.Signs(), 1)
	assert.Len(t, a.Markers(), 1)
	require.NoError(t, a.Close())

	backend.failSave = false
	b, _ := start(t, backend)
	signs := b.Signs()
	require.Len(t, signs, 1)
	assert.Equal(t, kept.ID, signs[0].ID)
}

func TestApp_LoadFailureMessage(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{MemoryBackend: storage.NewMemoryBackend()}

	a, _ := start(t, backend)
	require.NoError(t, a.Login(ctx, service.DemoIdentity, service.DemoSecret))
	require.NoError(t, a.Close())

	backend.failLoad = true
	b := New(backend, nil, WithEngineOptions(reconcile.WithScheduler(noRecheck)))
	err := b.Start(ctx)
	require.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, 1, strings.Count(err.Error(), "load signs"), err.Error())
}
