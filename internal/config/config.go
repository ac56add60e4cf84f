// Package config implements the C13 parameter bundle and its §6 JSON
// loader: tick intervals, robot physical parameters, file paths, and the
// Scenario B/C re-planning thresholds.
//
// Grounded on FromYaml in
// niceyeti-tabular/tabular/reinforcement/learning.go for the
// viper.New()/SetConfigFile/SetConfigType/ReadInConfig shape (adapted here
// from YAML to the §6 JSON contract, with SetDefault calls covering every
// documented default; fields are read with viper's typed getters).
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/elektrokombinacija/fleetctl/internal/geometry"
)

// Error is a ConfigError (§7): bad JSON, missing required fields, or an
// unknown enum value. Fatal at startup.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "config: " + e.Msg }

// Config is the §6 System Configuration bundle.
type Config struct {
	OrcaTickMs           float64
	WarehouseTickMs      float64
	ObstacleTickMs       float64
	RobotRadiusMeters    float64
	RobotSpeedMps        float64
	MapResolution        geometry.Resolution
	MapPath              string
	POIConfigPath        string
	TaskPath             string
	NumRobots            int
	BatchMode            bool
	BatchThreshold       int
	EstimatedReplanTimeMs int
}

// applyDefaults mirrors §6's "recognized options and their effects" table.
func applyDefaults(v *viper.Viper) {
	v.SetDefault("orcaTickMs", 50.0)
	v.SetDefault("warehouseTickMs", 1000.0)
	v.SetDefault("obstacleTickMs", 1000.0)
	v.SetDefault("robotRadiusMeters", 0.3)
	v.SetDefault("robotSpeedMps", 1.6)
	v.SetDefault("mapResolution", "METERS")
	v.SetDefault("numRobots", 0)
	v.SetDefault("batchMode", false)
	v.SetDefault("batchThreshold", 5)
	v.SetDefault("estimatedReplanTimeMs", 100)
}

// Load reads the §6 system configuration JSON at path, applying defaults
// for any option not present. Unknown keys are ignored (forward
// compatible). Returns a ConfigError for invalid JSON or an unrecognized
// mapResolution value.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Dir(path))
	if err := v.ReadInConfig(); err != nil {
		return nil, &Error{Msg: fmt.Sprintf("reading %s: %v", path, err)}
	}

	resolution, ok := geometry.ParseResolution(v.GetString("mapResolution"))
	if !ok {
		return nil, &Error{Msg: fmt.Sprintf("unknown mapResolution %q", v.GetString("mapResolution"))}
	}

	cfg := &Config{
		OrcaTickMs:            v.GetFloat64("orcaTickMs"),
		WarehouseTickMs:       v.GetFloat64("warehouseTickMs"),
		ObstacleTickMs:        v.GetFloat64("obstacleTickMs"),
		RobotRadiusMeters:     v.GetFloat64("robotRadiusMeters"),
		RobotSpeedMps:         v.GetFloat64("robotSpeedMps"),
		MapResolution:         resolution,
		MapPath:               v.GetString("mapPath"),
		POIConfigPath:         v.GetString("poiConfigPath"),
		TaskPath:              v.GetString("taskPath"),
		NumRobots:             v.GetInt("numRobots"),
		BatchMode:             v.GetBool("batchMode"),
		BatchThreshold:        v.GetInt("batchThreshold"),
		EstimatedReplanTimeMs: v.GetInt("estimatedReplanTimeMs"),
	}

	if strings.TrimSpace(cfg.MapPath) == "" {
		return nil, &Error{Msg: "mapPath is required"}
	}

	return cfg, nil
}

// Default returns the §6-documented defaults with no file paths set, for
// callers (tests, --demo mode) that construct a Config programmatically
// rather than from JSON.
func Default() *Config {
	return &Config{
		OrcaTickMs:            50,
		WarehouseTickMs:       1000,
		ObstacleTickMs:        1000,
		RobotRadiusMeters:     0.3,
		RobotSpeedMps:         1.6,
		MapResolution:         geometry.Meters,
		BatchThreshold:        5,
		EstimatedReplanTimeMs: 100,
	}
}
