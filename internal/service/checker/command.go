package checker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/storage-plugins/tailscale-updater/internal/builder"
	"github.com/storage-plugins/tailscale-updater/internal/config"
	"github.com/storage-plugins/tailscale-updater/internal/logger"
	"github.com/storage-plugins/tailscale-updater/internal/plugin"
	"github.com/storage-plugins/tailscale-updater/internal/release"
)

// Options are inputs accepted by the update checker entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// PluginConfigPath overrides the plugin record path from the settings.
	PluginConfigPath string
	// VerifyArtifact downloads the new artifact and checks its digest before
	// the record is rewritten.
	VerifyArtifact bool
}

// Run executes one update check and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "update-checker")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.PluginConfigPath != "" {
		cfg.PluginConfigFile = opts.PluginConfigPath
	}

	releases := release.NewClient(
		release.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		release.WithListingURL(cfg.StableListingURL),
		release.WithReleaseAPIURL(cfg.ReleaseAPIURL),
		release.WithArchitecture(cfg.Architecture),
	)

	r := &runner{
		store:          plugin.NewFileStore(cfg.PluginConfigFile),
		versions:       releases,
		checksums:      releases,
		builder:        builder.New(cfg.BuildDirectory, cfg.BuildCommand...),
		architecture:   cfg.Architecture,
		verifyArtifact: opts.VerifyArtifact,
		now:            time.Now,
	}

	if err = r.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Update check failed", "error", err)
		return err
	}

	return nil
}
