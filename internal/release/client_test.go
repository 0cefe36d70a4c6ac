package release

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// newListingServer serves the provided body at every path.
func newListingServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server
}

// TestLatestVersion_FromListing picks the maximum version among listing artifacts,
// ignoring other architectures and duplicate entries.
func TestLatestVersion_FromListing(t *testing.T) {
	t.Parallel()

	listing := `<html><body>
<a href="tailscale_1.90.6_amd64.tgz">tailscale_1.90.6_amd64.tgz</a>
<a href="tailscale_1.90.6_amd64.tgz">tailscale_1.90.6_amd64.tgz</a>
<a href="tailscale_1.92.0_amd64.tgz">tailscale_1.92.0_amd64.tgz</a>
<a href="tailscale_1.94.1_arm64.tgz">tailscale_1.94.1_arm64.tgz</a>
</body></html>`

	server := newListingServer(t, http.StatusOK, listing)
	client := NewClient(WithListingURL(server.URL), WithHTTPClient(server.Client()))

	latest, err := client.LatestVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1.92.0", latest)
}

// TestLatestVersion_NumericOrdering ensures components compare as integers,
// so 1.90.10 beats 1.90.6 despite sorting lower lexically.
func TestLatestVersion_NumericOrdering(t *testing.T) {
	t.Parallel()

	listing := "tailscale_1.90.10_amd64.tgz tailscale_1.90.6_amd64.tgz tailscale_1.9_amd64.tgz"

	server := newListingServer(t, http.StatusOK, listing)
	client := NewClient(WithListingURL(server.URL), WithHTTPClient(server.Client()))

	latest, err := client.LatestVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1.90.10", latest)
}

// TestLatestVersion_FallbackToReleaseAPI uses the release API when the listing fails,
// stripping the leading tag prefix.
func TestLatestVersion_FallbackToReleaseAPI(t *testing.T) {
	t.Parallel()

	listing := newListingServer(t, http.StatusInternalServerError, "")
	api := newListingServer(t, http.StatusOK,
		`{"tag_name": "v1.92.0", "name": "1.92.0", "prerelease": false}`)

	client := NewClient(
		WithListingURL(listing.URL),
		WithReleaseAPIURL(api.URL),
		WithHTTPClient(listing.Client()),
	)

	latest, err := client.LatestVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1.92.0", latest)
}

// TestLatestVersion_EmptyListingFallsBack treats a listing without matching
// artifacts the same as a failed fetch.
func TestLatestVersion_EmptyListingFallsBack(t *testing.T) {
	t.Parallel()

	listing := newListingServer(t, http.StatusOK, "<html>no packages here</html>")
	api := newListingServer(t, http.StatusOK, `{"tag_name": "1.93.5"}`)

	client := NewClient(
		WithListingURL(listing.URL),
		WithReleaseAPIURL(api.URL),
		WithHTTPClient(listing.Client()),
	)

	latest, err := client.LatestVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1.93.5", latest)
}

// TestLatestVersion_BothSourcesFail yields ErrVersionUnavailable.
func TestLatestVersion_BothSourcesFail(t *testing.T) {
	t.Parallel()

	listing := newListingServer(t, http.StatusInternalServerError, "")
	api := newListingServer(t, http.StatusNotFound, "")

	client := NewClient(
		WithListingURL(listing.URL),
		WithReleaseAPIURL(api.URL),
		WithHTTPClient(listing.Client()),
	)

	_, err := client.LatestVersion(context.Background())
	require.ErrorIs(t, err, ErrVersionUnavailable)
}

// TestLatestVersion_MissingTagName rejects release metadata without a tag.
func TestLatestVersion_MissingTagName(t *testing.T) {
	t.Parallel()

	listing := newListingServer(t, http.StatusBadGateway, "")
	api := newListingServer(t, http.StatusOK, `{"assets": []}`)

	client := NewClient(
		WithListingURL(listing.URL),
		WithReleaseAPIURL(api.URL),
		WithHTTPClient(listing.Client()),
	)

	_, err := client.LatestVersion(context.Background())
	require.ErrorIs(t, err, ErrVersionUnavailable)
}

// TestArtifactNaming checks identifier and filename composition.
func TestArtifactNaming(t *testing.T) {
	t.Parallel()

	require.Equal(t, "tailscale_1.92.0_amd64", ArtifactName("1.92.0", "amd64"))
	require.Equal(t, "tailscale_1.92.0_amd64.tgz", ArtifactFile("1.92.0", "amd64"))
}
