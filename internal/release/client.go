package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"unicode"

	goversion "github.com/hashicorp/go-version"

	"github.com/storage-plugins/tailscale-updater/internal/config"
	"github.com/storage-plugins/tailscale-updater/internal/logger"
)

// HTTPClient describes the minimal HTTP client surface, so tests can
// substitute their own transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client resolves upstream release information: the latest stable version and
// per-artifact checksums.
type Client struct {
	// httpClient performs all requests.
	httpClient HTTPClient
	// listingURL is the stable-release directory page.
	listingURL string
	// releaseAPIURL is the release-metadata API used when the listing is unusable.
	releaseAPIURL string
	// architecture selects which artifacts are considered.
	architecture string
}

// Option configures client behaviour.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithListingURL sets a custom stable listing address.
func WithListingURL(rawURL string) Option {
	return func(c *Client) {
		if rawURL != "" {
			c.listingURL = rawURL
		}
	}
}

// WithReleaseAPIURL sets a custom release-metadata API address.
func WithReleaseAPIURL(rawURL string) Option {
	return func(c *Client) {
		if rawURL != "" {
			c.releaseAPIURL = rawURL
		}
	}
}

// WithArchitecture sets the artifact architecture to track.
func WithArchitecture(arch string) Option {
	return func(c *Client) {
		if arch != "" {
			c.architecture = arch
		}
	}
}

const (
	// toolName is the upstream tool whose artifacts are tracked.
	toolName = "tailscale"

	// artifactExtension is the compressed package extension in the stable listing.
	artifactExtension = ".tgz"

	// checksumSuffix is appended to an artifact filename to address its digest.
	checksumSuffix = ".sha256"
)

var (
	// ErrVersionUnavailable reports that both the stable listing and the
	// release API failed to yield a latest version.
	ErrVersionUnavailable = errors.New("upstream version unavailable")

	// errBadHTTPStatus is returned for non-200 responses.
	errBadHTTPStatus = errors.New("unexpected http status")

	// errNoArtifacts is returned when the listing contains no matching artifacts.
	errNoArtifacts = errors.New("no matching artifacts in stable listing")

	// errMissingTagName is returned when the release metadata lacks a tag name.
	errMissingTagName = errors.New("release metadata has no tag_name")
)

// NewClient creates a release client with production defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:    http.DefaultClient,
		listingURL:    config.DefaultStableListingURL,
		releaseAPIURL: config.DefaultReleaseAPIURL,
		architecture:  config.DefaultArchitecture,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ArtifactName returns the tailscale_<version>_<arch> identifier for a version.
func ArtifactName(version, arch string) string {
	return fmt.Sprintf("%s_%s_%s", toolName, version, arch)
}

// ArtifactFile returns the downloadable artifact filename for a version.
func ArtifactFile(version, arch string) string {
	return ArtifactName(version, arch) + artifactExtension
}

// LatestVersion returns the newest stable version string, e.g. "1.92.0".
// The stable listing is authoritative; the release API is consulted only when
// the listing cannot be fetched or contains no matching artifacts.
func (c *Client) LatestVersion(ctx context.Context) (string, error) {
	latest, primaryErr := c.latestFromListing(ctx)
	if primaryErr == nil {
		return latest, nil
	}

	logger.WarnKV(ctx, "Stable listing unusable, falling back to release API",
		"error", primaryErr)

	latest, fallbackErr := c.latestFromReleaseAPI(ctx)
	if fallbackErr == nil {
		return latest, nil
	}

	return "", fmt.Errorf("%w: listing: %w; release API: %w",
		ErrVersionUnavailable, primaryErr, fallbackErr)
}

// latestFromListing scans the stable listing page for artifact filenames and
// selects the maximum version under dotted-numeric ordering.
func (c *Client) latestFromListing(ctx context.Context) (string, error) {
	body, err := c.getAll(ctx, c.listingURL)
	if err != nil {
		return "", err
	}

	pattern := regexp.MustCompile(
		regexp.QuoteMeta(toolName) + `_([0-9]+(?:\.[0-9]+)*)_` +
			regexp.QuoteMeta(c.architecture) + regexp.QuoteMeta(artifactExtension))

	var (
		seen      = make(map[string]struct{})
		latestRaw string
		latest    *goversion.Version
	)

	for _, match := range pattern.FindAllStringSubmatch(string(body), -1) {
		raw := match[1]
		if _, ok := seen[raw]; ok {
			continue
		}

		seen[raw] = struct{}{}

		parsed, parseErr := goversion.NewVersion(raw)
		if parseErr != nil {
			continue
		}

		if latest == nil || parsed.GreaterThan(latest) {
			latest = parsed
			latestRaw = raw
		}
	}

	if latest == nil {
		return "", errNoArtifacts
	}

	return latestRaw, nil
}

// releaseMetadata is the subset of the release API response the client reads.
// Unknown fields are ignored by the decoder.
type releaseMetadata struct {
	// TagName is the tag of the latest release, e.g. "v1.92.0".
	TagName string `json:"tag_name"`
}

// latestFromReleaseAPI queries the release-metadata API for the latest tag,
// stripping a single leading version-prefix character such as "v".
func (c *Client) latestFromReleaseAPI(ctx context.Context) (string, error) {
	body, err := c.getAll(ctx, c.releaseAPIURL)
	if err != nil {
		return "", err
	}

	var metadata releaseMetadata
	if err = json.Unmarshal(body, &metadata); err != nil {
		return "", fmt.Errorf("decode release metadata: %w", err)
	}

	if metadata.TagName == "" {
		return "", errMissingTagName
	}

	tag := []rune(metadata.TagName)
	if !unicode.IsDigit(tag[0]) {
		tag = tag[1:]
	}

	return string(tag), nil
}

// get performs a GET request and returns the response after checking the status.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()
		return nil, fmt.Errorf("%s, %s: %w", rawURL, response.Status, errBadHTTPStatus)
	}

	return response, nil
}

// getAll performs a GET request and returns the full response body.
func (c *Client) getAll(ctx context.Context, rawURL string) ([]byte, error) {
	response, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}

// listingFileURL composes the URL of a file hosted next to the stable listing.
// path.Join normalizes duplicate slashes when composing the URL path.
func (c *Client) listingFileURL(fileName string) (string, error) {
	base, err := url.Parse(c.listingURL)
	if err != nil {
		return "", err
	}

	base.Path = path.Join(base.Path, fileName)

	return base.String(), nil
}
