package release

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/storage-plugins/tailscale-updater/internal/logger"
)

var (
	// ErrChecksumUnavailable reports that an artifact digest could not be
	// fetched or failed validation.
	ErrChecksumUnavailable = errors.New("artifact checksum unavailable")

	// ErrArtifactMismatch reports that a downloaded artifact does not hash to
	// its published digest.
	ErrArtifactMismatch = errors.New("artifact digest mismatch")

	// hexDigestPattern accepts exactly one hex-encoded 256-bit digest.
	hexDigestPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
)

// Checksum fetches the published digest for an artifact file. The digest is
// hosted next to the artifact under the same name with a ".sha256" suffix;
// the first whitespace-delimited token of the body is the digest, and only a
// token of exactly 64 hex characters is accepted.
func (c *Client) Checksum(ctx context.Context, artifactFile string) (string, error) {
	checksumURL, err := c.listingFileURL(artifactFile + checksumSuffix)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrChecksumUnavailable, err)
	}

	body, err := c.getAll(ctx, checksumURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrChecksumUnavailable, err)
	}

	fields := strings.Fields(string(body))
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty checksum response for %s",
			ErrChecksumUnavailable, artifactFile)
	}

	digest := fields[0]
	if !hexDigestPattern.MatchString(digest) {
		return "", fmt.Errorf("%w: malformed digest %q for %s",
			ErrChecksumUnavailable, digest, artifactFile)
	}

	return digest, nil
}

// VerifyArtifact downloads the artifact and checks that its SHA-256 digest
// matches the published one. Comparison is case-insensitive.
func (c *Client) VerifyArtifact(ctx context.Context, artifactFile, wantDigest string) error {
	artifactURL, err := c.listingFileURL(artifactFile)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Downloading artifact for verification", "url", artifactURL)

	response, err := c.get(ctx, artifactURL)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	hasher := sha256.New()
	if _, err = io.Copy(hasher, response.Body); err != nil {
		return fmt.Errorf("hash artifact: %w", err)
	}

	gotDigest := hex.EncodeToString(hasher.Sum(nil))
	if !strings.EqualFold(gotDigest, wantDigest) {
		return fmt.Errorf("%w: %s: got %s, want %s",
			ErrArtifactMismatch, artifactFile, gotDigest, wantDigest)
	}

	return nil
}
