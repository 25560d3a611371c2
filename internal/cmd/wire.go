package cmd

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/roadsigns/internal/app"
	"github.com/atinyakov/roadsigns/internal/config"
	"github.com/atinyakov/roadsigns/internal/db"
	"github.com/atinyakov/roadsigns/internal/geo"
	"github.com/atinyakov/roadsigns/internal/reconcile"
	"github.com/atinyakov/roadsigns/internal/repository"
	"github.com/atinyakov/roadsigns/internal/storage"
	"github.com/atinyakov/roadsigns/internal/surface"
)

// openTracker builds and starts a tracker from o.
func openTracker(ctx context.Context, o *config.Options, log *zap.Logger) (*app.App, error) {
	backend, err := openBackend(o)
	if err != nil {
		return nil, err
	}
	locator, err := parseLocator(o.Locator)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	t := app.New(backend, locator,
		app.WithLogger(log),
		app.WithGeoOptions(geo.Options{
			HighAccuracy: o.HighAccuracy,
			Timeout:      o.GeoTimeout.Duration,
			MaximumAge:   o.GeoMaximumAge.Duration,
		}),
		app.WithSurfaceFactory(func() reconcile.Surface {
			return surface.NewGeoJSON(o.MapFile, log)
		}),
	)
	if err := t.Start(ctx); err != nil {
		_ = t.Close()
		return nil, err
	}
	return t, nil
}

func openBackend(o *config.Options) (storage.Backend, error) {
	switch o.StoreDriver {
	case config.StoreMemory:
		return storage.NewMemoryBackend(), nil
	case config.StoreFile:
		return storage.NewFileBackend(o.DataDir)
	case config.StoreSQLite:
		dsn := o.DatabaseDSN
		if dsn == "" {
			if err := os.MkdirAll(o.DataDir, 0o700); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(o.DataDir, "roadsigns.db")
		}
		conn, err := db.Open(db.DriverSQLite, dsn)
		if err != nil {
			return nil, err
		}
		return repository.NewSQLBuckets(conn), nil
	case config.StorePostgres:
		conn, err := db.Open(db.DriverPostgres, o.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return repository.NewSQLBuckets(conn), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", o.StoreDriver)
}

// parseLocator turns "fixed:<lat>,<lng>" or "nmea:<path>" into a caching
// locator. An empty source yields no locator.
func parseLocator(src string) (geo.Locator, error) {
	if src == "" {
		return nil, nil
	}

	kind, arg, ok := strings.Cut(src, ":")
	if !ok || arg == "" {
		return nil, fmt.Errorf("invalid locator %q", src)
	}

	switch kind {
	case "fixed":
		latText, lngText, ok := strings.Cut(arg, ",")
		if !ok {
			return nil, fmt.Errorf("invalid fixed position %q", arg)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(latText), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude: %w", err)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(lngText), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude: %w", err)
		}
		if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
			return nil, fmt.Errorf("invalid fixed position %q: not a finite number", arg)
		}
		return geo.NewCaching(geo.Fixed{Latitude: lat, Longitude: lng}), nil
	case "nmea":
		return geo.NewCaching(geo.NewNMEA(arg)), nil
	}
	return nil, fmt.Errorf("unknown locator kind %q", kind)
}
