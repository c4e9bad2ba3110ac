package config

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/assert"
)

func TestLoadServerConfig(t *testing.T) {
	c, err := LoadServerConfigFromFile("testdata/config.toml")
	assert.NilError(t, err)
	expected := &ServerConfig{
		ListenAddress: "127.0.0.1:4000",
		Workers:       16,
		LogLevel:      "debug",
	}
	assert.DeepEqual(t, c, expected)
}

func TestLoadServerConfigPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	assert.NilError(t, os.WriteFile(path, []byte(`Workers = 4`), 0o644))
	c, err := LoadServerConfigFromFile(path)
	assert.NilError(t, err)
	assert.Equal(t, c.Workers, 4)
	assert.Equal(t, c.ListenAddress, DefaultServerConfig().ListenAddress)
	assert.Equal(t, c.LogLevel, "info")
}

func TestLoadServerConfigBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	assert.NilError(t, os.WriteFile(path, []byte(`ListenAddress = [`), 0o644))
	_, err := LoadServerConfigFromFile(path)
	assert.ErrorContains(t, err, "parsing config")
}

func TestGetServerMissingExplicitPath(t *testing.T) {
	_, err := GetServer(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorContains(t, err, "nope.toml")
}
