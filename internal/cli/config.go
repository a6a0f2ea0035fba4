package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultDatabase is used when neither --db nor a config file names one.
const DefaultDatabase = "uam.db"

// DefaultConfigFile is looked up in the working directory when --config
// is not given.
const DefaultConfigFile = "uam.yaml"

// Config is the optional uam.yaml file.
type Config struct {
	// Store is the path to the ledger database.
	Store string `yaml:"store"`

	// DefaultScale is applied when register commands omit --scale.
	DefaultScale string `yaml:"default_scale,omitempty"`
}

// LoadConfig reads and parses a uam.yaml file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FallbackScale is used when neither --scale nor the config file names
// a default scale.
const FallbackScale = "analytic"

// resolveOptions fills opts.Database and opts.DefaultScale from, in
// order: the flags, the config file, the defaults. Runs after flag
// parsing so a --config path is honored. A missing default config file
// is fine; a named --config that does not exist is an error.
func resolveOptions(opts *RootOptions) error {
	path := opts.Config
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	cfg, err := LoadConfig(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		cfg = Config{}
	default:
		return err
	}

	if opts.Database == "" {
		opts.Database = cfg.Store
		if opts.Database == "" {
			opts.Database = DefaultDatabase
		}
	}

	opts.DefaultScale = cfg.DefaultScale
	if opts.DefaultScale == "" {
		opts.DefaultScale = FallbackScale
	}
	return nil
}
