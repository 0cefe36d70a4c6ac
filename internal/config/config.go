package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds settings for the update checker.
type Config struct {
	// StableListingURL is the upstream directory page enumerating released artifacts.
	StableListingURL string `yaml:"stable_listing_url"`
	// ReleaseAPIURL is the release-metadata API queried when the listing is unusable.
	ReleaseAPIURL string `yaml:"release_api_url"`
	// PluginConfigFile is the path to the plugin package record.
	PluginConfigFile string `yaml:"plugin_config_file"`
	// BuildDirectory is the packaging-tools directory the build command runs in.
	BuildDirectory string `yaml:"build_directory"`
	// BuildCommand is the build command invoked after a record update.
	BuildCommand []string `yaml:"build_command"`
	// Architecture is the single package architecture tracked by the checker.
	Architecture string `yaml:"architecture"`
	// Timeout is the duration applied to HTTP requests.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultStableListingURL is the upstream stable-release directory.
	DefaultStableListingURL = "https://pkgs.tailscale.com/stable/"

	// DefaultReleaseAPIURL is the fallback release-metadata endpoint.
	DefaultReleaseAPIURL = "https://api.github.com/repos/tailscale/tailscale/releases/latest"

	// DefaultPluginConfigFilename is the default path to the plugin package record.
	DefaultPluginConfigFilename = "plugin_config.json"

	// DefaultBuildDirectory is the default packaging-tools directory.
	DefaultBuildDirectory = "tools"

	// DefaultArchitecture is the only architecture the plugin is packaged for.
	DefaultArchitecture = "amd64"

	// DefaultTimeout is the default duration for HTTP requests.
	DefaultTimeout = 30 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// DefaultBuildCommand is the build script invoked inside BuildDirectory.
//
//nolint:gochecknoglobals // Slice constants are not expressible as const.
var DefaultBuildCommand = []string{"./build.sh"}

// errConfigIsNotSet is returned when a nil configuration is provided.
var errConfigIsNotSet = errors.New("configuration is not set")

// Default returns a configuration populated with default values.
func Default() *Config {
	cfg := new(Config)
	fillDefaults(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates essential fields.
// An empty path yields the defaults without touching the filesystem.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings, filling defaults for unset fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	fillDefaults(cfg)

	if _, err := url.ParseRequestURI(cfg.StableListingURL); err != nil {
		return fmt.Errorf("invalid stable listing URL: %w", err)
	}

	if _, err := url.ParseRequestURI(cfg.ReleaseAPIURL); err != nil {
		return fmt.Errorf("invalid release API URL: %w", err)
	}

	return nil
}

// fillDefaults replaces zero values with defaults.
func fillDefaults(cfg *Config) {
	if cfg.StableListingURL == "" {
		cfg.StableListingURL = DefaultStableListingURL
	}

	if cfg.ReleaseAPIURL == "" {
		cfg.ReleaseAPIURL = DefaultReleaseAPIURL
	}

	if cfg.PluginConfigFile == "" {
		cfg.PluginConfigFile = DefaultPluginConfigFilename
	}

	if cfg.BuildDirectory == "" {
		cfg.BuildDirectory = DefaultBuildDirectory
	}

	if len(cfg.BuildCommand) == 0 {
		cfg.BuildCommand = append([]string(nil), DefaultBuildCommand...)
	}

	if cfg.Architecture == "" {
		cfg.Architecture = DefaultArchitecture
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
}
