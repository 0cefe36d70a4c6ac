package checker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/storage-plugins/tailscale-updater/internal/logger"
	"github.com/storage-plugins/tailscale-updater/internal/plugin"
	"github.com/storage-plugins/tailscale-updater/internal/release"
)

// versionSource fetches the latest available upstream version string.
type versionSource interface {
	LatestVersion(ctx context.Context) (string, error)
}

// checksumSource fetches and verifies artifact digests.
type checksumSource interface {
	Checksum(ctx context.Context, artifactFile string) (string, error)
	VerifyArtifact(ctx context.Context, artifactFile, digest string) error
}

// packageBuilder runs the external build step.
type packageBuilder interface {
	Run(ctx context.Context) error
}

// runner holds the collaborators and per-run state for a single update check.
// It is intentionally unexported: call Run(ctx, *Options) from callers.
type runner struct {
	store          plugin.Store   // Persisted package record.
	versions       versionSource  // Latest upstream version lookup.
	checksums      checksumSource // Artifact digest lookup and verification.
	builder        packageBuilder // Package build step.
	architecture   string         // Tracked artifact architecture.
	verifyArtifact bool           // Whether to download and hash the artifact.

	// now supplies the date stamped into the record on update.
	now func() time.Time
}

var (
	// ErrConfigUnreadable reports that the plugin record could not be read.
	ErrConfigUnreadable = errors.New("plugin record unreadable")

	// ErrConfigUnwritable reports that the rewritten record could not be persisted.
	ErrConfigUnwritable = errors.New("plugin record unwritable")
)

// dateLayout renders the record's version field, YYYY.MM.DD.
const dateLayout = "2006.01.02"

// run executes the linear workflow:
// load record → fetch latest → compare → fetch checksum → rewrite record → build.
// Every failure is terminal; a build failure after the record was rewritten
// leaves the new record in place.
func (r *runner) run(ctx context.Context) error {
	logger.Info(ctx, "Loading plugin record")

	record, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigUnreadable, err)
	}

	current := record.UpstreamRelease()
	if current == "" {
		logger.WarnKV(ctx, "Stored release identifier is malformed, forcing update",
			"identifier", record.TailscaleVersion)
	}

	logger.Info(ctx, "Fetching latest upstream version")

	latest, err := r.versions.LatestVersion(ctx)
	if err != nil {
		return err
	}

	// Exact string comparison: any difference, including a malformed stored
	// identifier, proceeds to update.
	if current == latest {
		logger.InfoKV(ctx, "Package is up to date", "version", current)
		return nil
	}

	logger.InfoKV(ctx, "Update available", "current", current, "latest", latest)

	artifactFile := release.ArtifactFile(latest, r.architecture)

	digest, err := r.checksums.Checksum(ctx, artifactFile)
	if err != nil {
		return err
	}

	if r.verifyArtifact {
		if err = r.checksums.VerifyArtifact(ctx, artifactFile, digest); err != nil {
			return err
		}
	}

	// Version carries the update date, not the upstream version; the release
	// identifier and its digest move together in one write.
	record.Version = r.now().Format(dateLayout)
	record.TailscaleVersion = release.ArtifactName(latest, r.architecture)
	record.TailscaleSHA256 = digest

	logger.InfoKV(ctx, "Writing plugin record",
		"version", record.Version, "release", record.TailscaleVersion)

	if err = r.store.Save(ctx, record); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigUnwritable, err)
	}

	if err = r.builder.Run(ctx); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Package updated", "release", latest)

	return nil
}
