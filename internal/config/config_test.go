package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "idpgo", cfg.Name)
	assert.Equal(t, 1, cfg.Options.NbModels)
}

func TestValidateRejectsNegativeNbModels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Options.NbModels = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNegativeLazySizeThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Options.LazySizeThreshold = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsExpandImmediatelyWithSatisfiabilityDelay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Options.ExpandImmediately = true
	cfg.Options.SatisfiabilityDelay = true
	assert.Error(t, cfg.Validate())
}

func TestLoadFillsDefaultsForUnsetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "idpgo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("options:\n  nb_models: 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Options.NbModels)
	assert.Equal(t, DefaultOptions().LazySizeThreshold, cfg.Options.LazySizeThreshold, "unset fields must keep their default")
	assert.True(t, cfg.Options.GroundWithBounds, "unset bool fields must keep their default")
}

func TestLoadParsesDurationAsNanoseconds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "idpgo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("options:\n  mx_timeout: 5000000000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Options.MxTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "idpgo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("options: [this is not a map"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
