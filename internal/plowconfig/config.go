// Package plowconfig reads and writes the small JSON configuration file
// that records where a plow installation keeps its caches and how it talks
// to a registry.
package plowconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/plow-dev/plow/internal/fs"
	"github.com/plow-dev/plow/internal/turbopath"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

// Config holds the user-level settings plow needs outside of any single
// field's manifest: where to cache things, and how to reach a registry.
type Config struct {
	// PlowHome is the directory holding the registry index cache and the
	// content-addressed field cache.
	PlowHome string `json:"plowHome,omitempty"`
	// RegistryURL is the base URL of the private registry backend.
	RegistryURL string `json:"registryUrl,omitempty"`
	// Token authenticates requests to RegistryURL.
	Token string `json:"token,omitempty"`
}

const configFileName = "config.json"

// DefaultConfigPath returns the path to the config file under the given
// plow home directory.
func DefaultConfigPath(plowHome turbopath.AbsoluteSystemPath) turbopath.AbsoluteSystemPath {
	return plowHome.UntypedJoin(configFileName)
}

// ReadConfigFile reads the config file at path. A missing file is not an
// error; it yields a zero-value Config so first-run behaves sensibly.
func ReadConfigFile(fsys afero.Fs, path turbopath.AbsoluteSystemPath) (*Config, error) {
	contents, err := afero.ReadFile(fsys, path.ToString())
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file %v: %w", path, err)
	}
	var config Config
	if err := json.Unmarshal(contents, &config); err != nil {
		return nil, fmt.Errorf("parsing config file %v: %w", path, err)
	}
	return &config, nil
}

// WriteConfigFile writes config to path, creating parent directories as
// needed.
func WriteConfigFile(fsys afero.Fs, path turbopath.AbsoluteSystemPath, config *Config) error {
	contents, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := fs.EnsureDirFS(fsys, path); err != nil {
		return err
	}
	return afero.WriteFile(fsys, path.ToString(), contents, 0644)
}

// AddConfigFlags registers the --plow-home and --registry override flags,
// bound to config and defaulting to the values already read from the
// config file, so a parsed flag takes precedence over the file.
func AddConfigFlags(config *Config, flags *pflag.FlagSet) {
	flags.StringVar(&config.PlowHome, "plow-home", config.PlowHome, "Override the directory plow uses for caches")
	flags.StringVar(&config.RegistryURL, "registry", config.RegistryURL, "Override the registry base URL")
}
