/*
config.go - Server configuration

PURPOSE:
  Loads server settings from an optional config.toml file and fills in
  defaults for everything else. The server must start with zero setup,
  so a missing file is not an error and every field has a default.

CONFIGURATION FILE:
  TOML format, looked up in the working directory first and next to the
  executable second. Example:

    port = 9090
    db_path = "./data/capacity.db"
    country = "DE"
    holiday_years = 3
    static_dir = "./web/dist"

    [audit]
    enabled = true
    interval_minutes = 30

PRECEDENCE:
  Command-line flags (cmd/server) > config.toml > defaults.
  This package only handles the file and the defaults; the flag overlay
  happens in main.

DEFAULTS:
  port                    8080
  db_path                 capacity.db
  country                 DE       (fallback country for members without one)
  holiday_years           2        (seed current year plus two more on first run)
  static_dir              ""       (probe ./web/dist at runtime)
  audit.enabled           true
  audit.interval_minutes  60

SEE ALSO:
  - cmd/server/main.go: flag overlay and startup sequence
  - api/scheduler.go: consumes the audit interval
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileName is the conventional name of the configuration file.
const FileName = "config.toml"

// AuditConfig controls the background audit scheduler.
type AuditConfig struct {
	Enabled         bool `toml:"enabled"`
	IntervalMinutes int  `toml:"interval_minutes"`
}

// Interval returns the audit check interval as a duration.
func (a AuditConfig) Interval() time.Duration {
	return time.Duration(a.IntervalMinutes) * time.Minute
}

// AppConfig holds every tunable server setting.
type AppConfig struct {
	Port         int         `toml:"port"`
	DBPath       string      `toml:"db_path"`
	Country      string      `toml:"country"`
	HolidayYears int         `toml:"holiday_years"`
	StaticDir    string      `toml:"static_dir"`
	Audit        AuditConfig `toml:"audit"`
}

// Default returns the configuration used when no file is present.
func Default() AppConfig {
	return AppConfig{
		Port:         8080,
		DBPath:       "capacity.db",
		Country:      "DE",
		HolidayYears: 2,
		StaticDir:    "",
		Audit: AuditConfig{
			Enabled:         true,
			IntervalMinutes: 60,
		},
	}
}

// LoadFile reads a config file at the given path. Keys absent from the
// file keep their default values, so a partial file is fine.
func LoadFile(path string) (AppConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.normalize()
	return cfg, nil
}

// Load looks for config.toml in the working directory and next to the
// executable, in that order. A missing file is not an error: the
// defaults are returned so the server starts with zero configuration.
func Load() (AppConfig, error) {
	for _, path := range searchPaths() {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return Default(), nil
}

func searchPaths() []string {
	paths := []string{FileName}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), FileName))
	}
	return paths
}

// normalize resets values that would break the server back to their
// defaults. A config file with port = 0 or a negative audit interval
// is almost certainly a typo, not intent.
func (c *AppConfig) normalize() {
	def := Default()
	if c.Port <= 0 {
		c.Port = def.Port
	}
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.Country == "" {
		c.Country = def.Country
	}
	if c.HolidayYears < 0 {
		c.HolidayYears = def.HolidayYears
	}
	if c.Audit.IntervalMinutes <= 0 {
		c.Audit.IntervalMinutes = def.Audit.IntervalMinutes
	}
}
