package cmd

import (
	"time"

	"github.com/atinyakov/roadsigns/internal/config"
)

func newTestOptions(dir string) *config.Options {
	return &config.Options{
		DataDir:       dir,
		StoreDriver:   config.StoreFile,
		GeoTimeout:    config.Duration{Duration: time.Second},
		GeoMaximumAge: config.Duration{Duration: time.Minute},
		HighAccuracy:  true,
		LogLevel:      "error",
	}
}
