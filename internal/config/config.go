// Package config provides functionality for managing configuration options
// for the application using command-line flags, a config file and
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Store drivers accepted by Options.StoreDriver.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite3"
	StorePostgres = "postgres"
)

// Duration is a time.Duration that decodes from text such as "10s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Options holds the configuration values for the application.
type Options struct {
	// DataDir holds the bucket files and the default sqlite database.
	DataDir string `json:"data_dir" toml:"data_dir"`

	// StoreDriver selects the persistence backend.
	StoreDriver string `json:"store" toml:"store"`

	// DatabaseDSN holds the database connection string for sql drivers.
	DatabaseDSN string `json:"database_dsn" toml:"database_dsn"`

	// Addr defines the local API listening address (ip:port).
	Addr string `json:"addr" toml:"addr"`

	// MapFile is where the marker layer is written as GeoJSON.
	MapFile string `json:"map_file" toml:"map_file"`

	// Locator is the position source: "fixed:<lat>,<lng>", "nmea:<path>" or empty.
	Locator string `json:"locator" toml:"locator"`

	GeoTimeout    Duration `json:"geo_timeout" toml:"geo_timeout"`
	GeoMaximumAge Duration `json:"geo_maximum_age" toml:"geo_maximum_age"`
	HighAccuracy  bool     `json:"high_accuracy" toml:"high_accuracy"`

	LogLevel string `json:"log_level" toml:"log_level"`

	// Config is the path to the Config file.
	Config string `json:"-" toml:"-"`
}

// envKeys maps flag names to the environment variables that set them.
var envKeys = map[string]string{
	"data-dir":        "ROADSIGNS_DATA_DIR",
	"store":           "ROADSIGNS_STORE",
	"database-dsn":    "ROADSIGNS_DATABASE_DSN",
	"addr":            "SERVER_ADDRESS",
	"map-file":        "ROADSIGNS_MAP_FILE",
	"locator":         "ROADSIGNS_LOCATOR",
	"geo-timeout":     "ROADSIGNS_GEO_TIMEOUT",
	"geo-maximum-age": "ROADSIGNS_GEO_MAXIMUM_AGE",
	"high-accuracy":   "ROADSIGNS_HIGH_ACCURACY",
	"log-level":       "LOG_LEVEL",
	"config":          "CONFIG",
}

// DefaultDataDir returns the per-user data directory, or a local one when
// the user config dir is unknown.
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".roadsigns"
	}
	return filepath.Join(dir, "roadsigns")
}

// BindFlags registers the option flags on fs with their default values.
func BindFlags(fs *pflag.FlagSet, o *Options) {
	fs.StringVar(&o.DataDir, "data-dir", DefaultDataDir(), "directory for persisted data")
	fs.StringVar(&o.StoreDriver, "store", StoreFile, "store driver: file | sqlite3 | postgres | memory")
	fs.StringVarP(&o.DatabaseDSN, "database-dsn", "d", "", "database address for sql drivers")
	fs.StringVarP(&o.Addr, "addr", "a", "localhost:8080", "run the local API on ip:port")
	fs.StringVar(&o.MapFile, "map-file", "", "write the marker layer to this GeoJSON file")
	fs.StringVar(&o.Locator, "locator", "", "position source: fixed:<lat>,<lng> | nmea:<path>")
	fs.DurationVar(&o.GeoTimeout.Duration, "geo-timeout", 10*time.Second, "maximum wait for a position fix")
	fs.DurationVar(&o.GeoMaximumAge.Duration, "geo-maximum-age", time.Minute, "maximum age of a reused fix")
	fs.BoolVar(&o.HighAccuracy, "high-accuracy", true, "request a high accuracy fix")
	fs.StringVar(&o.LogLevel, "log-level", "info", "log level")
	fs.StringVarP(&o.Config, "config", "c", "", "path to config file (.json or .toml)")
}

// Load resolves o after fs has been parsed. Precedence, lowest first: flag
// defaults, the config file, the environment (including a .env file in the
// working directory), flags set on the command line.
func Load(fs *pflag.FlagSet, o *Options) error {
	explicit := map[string]string{}
	fs.Visit(func(f *pflag.Flag) { explicit[f.Name] = f.Value.String() })

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error while reading .env: %w", err)
	}

	if path := os.Getenv(envKeys["config"]); path != "" && explicit["config"] == "" {
		o.Config = path
	}
	if err := o.readFile(); err != nil {
		return err
	}

	for name, key := range envKeys {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" || name == "config" {
			continue
		}
		if err := fs.Set(name, v); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	for name, v := range explicit {
		if err := fs.Set(name, v); err != nil {
			return err
		}
	}
	return o.Validate()
}

func (o *Options) readFile() error {
	if o.Config == "" {
		return nil
	}
	data, err := os.ReadFile(o.Config)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(o.Config)) {
	case ".toml":
		err = toml.Unmarshal(data, o)
	default:
		err = json.Unmarshal(data, o)
	}
	if err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

// Validate checks option combinations.
func (o *Options) Validate() error {
	switch o.StoreDriver {
	case StoreFile, StoreMemory, StoreSQLite:
	case StorePostgres:
		if o.DatabaseDSN == "" {
			return errors.New("postgres store requires a database dsn")
		}
	default:
		return fmt.Errorf("unknown store driver %q", o.StoreDriver)
	}
	if o.GeoTimeout.Duration <= 0 {
		return errors.New("geo timeout must be positive")
	}
	if o.GeoMaximumAge.Duration < 0 {
		return errors.New("geo maximum age must not be negative")
	}
	return nil
}
