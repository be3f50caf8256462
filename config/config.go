package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

type (
	// Env holds the values of environment variable based configuration
	Env struct {
		Host           string `envconfig:"HOST" default:"127.0.0.1" yaml:"host"`
		Port           int    `envconfig:"PORT" default:"8080" yaml:"port"`
		MocksDir       string `envconfig:"MOCKS_DIR" default:"./mocks" yaml:"mocksDir"`
		ConfigFilePath string `envconfig:"GNOCK_CONFIG" default:"./gnockfile.yaml" yaml:"-"`
		AdminBasePath  string `envconfig:"GNOCK_ADMIN_PATH" default:"/__gnock" yaml:"adminBasePath"`
		LogLevel       string `envconfig:"LOG_LEVEL" default:"info" yaml:"logLevel"`
	}
)

// New returns a new Env config
func New() *Env {
	cfg := &Env{}

	envconfig.MustProcess("", cfg)

	return cfg
}

// Load reads the environment, then lets the YAML file at path override whatever it sets.
// An empty path falls back to GNOCK_CONFIG, a file that does not exist is skipped.
func Load(path string) (*Env, error) {
	cfg := &Env{}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if path == "" {
		path = cfg.ConfigFilePath
	}

	contents, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode yaml %s: %w", path, err)
	}
	cfg.ConfigFilePath = path

	return cfg, nil
}
