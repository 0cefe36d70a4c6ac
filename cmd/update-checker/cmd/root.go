package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/storage-plugins/tailscale-updater/internal/logger"
	"github.com/storage-plugins/tailscale-updater/internal/service/checker"
	"github.com/storage-plugins/tailscale-updater/internal/version"
)

var (
	// configPath to the settings YAML file; defaults apply when empty.
	configPath string

	// pluginConfigPath overrides the plugin record location.
	pluginConfigPath string

	// verifyArtifact enables downloading the artifact to check its digest.
	verifyArtifact bool

	// logLevel sets the minimum logging level.
	logLevel string

	// rootCmd represents the base command for checking and applying upstream updates.
	rootCmd = &cobra.Command{
		Use:   "update-checker",
		Short: "Check for a new upstream release and rebuild the plugin package",
		Long: "Check the upstream stable listing for a newer release of the wrapped tool. " +
			"When one exists, fetch its checksum, rewrite the plugin package record, and " +
			"run the package build. Exits 0 when the package is already up to date.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if lvl, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(lvl)
			}

			options := &checker.Options{
				ConfigPath:       configPath,
				PluginConfigPath: pluginConfigPath,
				VerifyArtifact:   verifyArtifact,
			}

			return checker.Run(ctx, options)
		},
	}
)

// Execute runs the update-checker CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to settings file")
	rootCmd.Flags().StringVarP(&pluginConfigPath, "plugin-config", "p", "", "path to plugin record")
	rootCmd.Flags().BoolVar(&verifyArtifact, "verify", false, "download the artifact and verify its digest")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "logging level (debug, info, warn, error)")
}
