package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	path := writeConfig(t, `{"mapPath":"map.txt"}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 50.0, cfg.OrcaTickMs)
	require.Equal(t, 1000.0, cfg.WarehouseTickMs)
	require.Equal(t, 5, cfg.BatchThreshold)
	require.Equal(t, 100, cfg.EstimatedReplanTimeMs)
	require.Equal(t, geometry.Meters, cfg.MapResolution)
	require.Equal(t, "map.txt", cfg.MapPath)
}

func TestLoadOverridesDefaultsFromFile(t *testing.T) {
	path := writeConfig(t, `{
		"mapPath": "map.txt",
		"orcaTickMs": 25,
		"batchThreshold": 10,
		"mapResolution": "decimeters",
		"numRobots": 4
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 25.0, cfg.OrcaTickMs)
	require.Equal(t, 10, cfg.BatchThreshold)
	require.Equal(t, geometry.Decimeters, cfg.MapResolution)
	require.Equal(t, 4, cfg.NumRobots)
}

func TestLoadRejectsUnknownResolution(t *testing.T) {
	path := writeConfig(t, `{"mapPath":"map.txt","mapResolution":"FURLONGS"}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRequiresMapPath(t *testing.T) {
	path := writeConfig(t, `{}`)
	_, err := Load(path)
	require.Error(t, err)
}
