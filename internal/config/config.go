package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config interface {
	EnvConfig
	BackendConfig
	SessionConfig
	StorageConfig
	AuthorizeConfig
	HostConfig
	CorsConfig

	// Validate reports settings that are present but unusable.
	Validate() error
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Backend
	Session
	Storage
	OAuth
	Host
	Cors
}

// New returns a Config backed by environment variables and defaults.
func New() Config {
	return newMainConfig(&FileConfig{})
}

// Load reads the YAML file at path and returns a Config where environment
// variables override file values, and file values override defaults. An
// empty path is the same as New.
func Load(path string) (Config, error) {
	if path == "" {
		return New(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %s not found: %w", path, err)
		}
		return nil, fmt.Errorf("error reading config from %s: %w", path, err)
	}

	file := &FileConfig{}
	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	return newMainConfig(file), nil
}

func newMainConfig(file *FileConfig) mainConfig {
	return mainConfig{
		EnvVars: EnvVars{file: &file.App},
		Backend: Backend{file: &file.Backend},
		Session: Session{file: &file.Session},
		Storage: Storage{file: &file.Storage},
		OAuth:   OAuth{file: &file.Authorize},
		Host:    Host{file: &file.Host},
		Cors:    Cors{file: &file.FakeBackend},
	}
}

func (c mainConfig) Validate() error {
	return errors.Join(
		c.Backend.validate(),
		c.Session.validate(),
		c.Storage.validate(),
	)
}
