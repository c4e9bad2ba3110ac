// Package config contains structures for parsing the gtgated server
// configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"gtgate.dev/gtgate/common"
)

// ServerConfig is the parsed gtgated configuration.
type ServerConfig struct {
	// ListenAddress is the host:port the gateway binds.
	ListenAddress string

	// Workers bounds the number of concurrently executing blocking
	// operations.
	Workers int

	// LogLevel is a logrus level name.
	LogLevel string
}

// DefaultServerConfig returns the configuration used when no config
// file exists.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ListenAddress: common.DefaultListenAddress,
		Workers:       common.DefaultWorkers,
		LogLevel:      "info",
	}
}

// LoadServerConfigFromFile parses the TOML file at path over the
// defaults.
func LoadServerConfigFromFile(path string) (*ServerConfig, error) {
	c := DefaultServerConfig()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	if c.ListenAddress == "" {
		return nil, errors.Errorf("config %s: ListenAddress must not be empty", path)
	}
	if c.Workers < 0 {
		return nil, errors.Errorf("config %s: Workers must not be negative", path)
	}
	return c, nil
}

// GetServer loads the server configuration from path, or from the
// default location when path is empty. A missing file at the default
// location is not an error; the defaults apply.
func GetServer(path string) (*ServerConfig, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(common.ServerConfigDirectory, "config.toml")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return DefaultServerConfig(), nil
		}
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return LoadServerConfigFromFile(path)
}
