package checker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/storage-plugins/tailscale-updater/internal/builder"
	"github.com/storage-plugins/tailscale-updater/internal/plugin"
	"github.com/storage-plugins/tailscale-updater/internal/release"
)

// fakeStore keeps the record in memory and remembers what was saved.
type fakeStore struct {
	record  *plugin.Record
	loadErr error
	saveErr error
	saved   *plugin.Record
}

func (s *fakeStore) Load(_ context.Context) (*plugin.Record, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}

	clone := *s.record

	return &clone, nil
}

func (s *fakeStore) Save(_ context.Context, record *plugin.Record) error {
	if s.saveErr != nil {
		return s.saveErr
	}

	clone := *record
	s.saved = &clone

	return nil
}

// fakeReleases serves canned version and checksum answers.
type fakeReleases struct {
	latest    string
	latestErr error
	digest    string
	digestErr error
	verifyErr error

	checksumCalls []string
	verifyCalls   []string
}

func (f *fakeReleases) LatestVersion(_ context.Context) (string, error) {
	return f.latest, f.latestErr
}

func (f *fakeReleases) Checksum(_ context.Context, artifactFile string) (string, error) {
	f.checksumCalls = append(f.checksumCalls, artifactFile)

	return f.digest, f.digestErr
}

func (f *fakeReleases) VerifyArtifact(_ context.Context, artifactFile, _ string) error {
	f.verifyCalls = append(f.verifyCalls, artifactFile)

	return f.verifyErr
}

// fakeBuilder counts build invocations.
type fakeBuilder struct {
	err  error
	runs int
}

func (b *fakeBuilder) Run(_ context.Context) error {
	b.runs++

	return b.err
}

// testDigest is a syntactically valid 64-hex digest.
var testDigest = strings.Repeat("ab", 32)

// newTestRunner wires fakes around a record wrapping 1.90.6 with a fixed clock.
func newTestRunner() (*runner, *fakeStore, *fakeReleases, *fakeBuilder) {
	store := &fakeStore{
		record: &plugin.Record{
			Name:             "tailscale",
			Author:           "storage-plugins",
			Version:          "2026.08.01",
			TailscaleVersion: "tailscale_1.90.6_amd64",
			TailscaleSHA256:  strings.Repeat("00", 32),
			PluginDirectory:  "/usr/local/emhttp/plugins/tailscale",
			Minver:           "6.12",
		},
	}
	releases := &fakeReleases{
		latest: "1.92.0",
		digest: testDigest,
	}
	build := new(fakeBuilder)

	r := &runner{
		store:        store,
		versions:     releases,
		checksums:    releases,
		builder:      build,
		architecture: "amd64",
		now: func() time.Time {
			return time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
		},
	}

	return r, store, releases, build
}

// TestRun_UpToDate terminates without writing or building when versions match.
func TestRun_UpToDate(t *testing.T) {
	t.Parallel()

	r, store, releases, build := newTestRunner()
	releases.latest = "1.90.6"

	require.NoError(t, r.run(context.Background()))
	require.Nil(t, store.saved)
	require.Zero(t, build.runs)
	require.Empty(t, releases.checksumCalls)
}

// TestRun_UpdatesRecord rewrites the record and runs the build on a new release.
func TestRun_UpdatesRecord(t *testing.T) {
	t.Parallel()

	r, store, releases, build := newTestRunner()

	require.NoError(t, r.run(context.Background()))

	require.Equal(t, []string{"tailscale_1.92.0_amd64.tgz"}, releases.checksumCalls)
	require.NotNil(t, store.saved)
	require.Equal(t, "tailscale_1.92.0_amd64", store.saved.TailscaleVersion)
	require.Equal(t, testDigest, store.saved.TailscaleSHA256)
	require.Equal(t, "2026.08.29", store.saved.Version)
	require.Equal(t, 1, build.runs)

	// Static fields pass through untouched.
	require.Equal(t, "tailscale", store.saved.Name)
	require.Equal(t, "6.12", store.saved.Minver)
}

// TestRun_MalformedIdentifier treats unparseable stored state as update needed.
func TestRun_MalformedIdentifier(t *testing.T) {
	t.Parallel()

	r, store, _, build := newTestRunner()
	store.record.TailscaleVersion = "tailscale-1.90.6"

	require.NoError(t, r.run(context.Background()))
	require.NotNil(t, store.saved)
	require.Equal(t, "tailscale_1.92.0_amd64", store.saved.TailscaleVersion)
	require.Equal(t, 1, build.runs)
}

// TestRun_LoadFailure wraps read errors in ErrConfigUnreadable.
func TestRun_LoadFailure(t *testing.T) {
	t.Parallel()

	r, store, _, build := newTestRunner()
	store.loadErr = plugin.ErrNotFound

	err := r.run(context.Background())
	require.ErrorIs(t, err, ErrConfigUnreadable)
	require.ErrorIs(t, err, plugin.ErrNotFound)
	require.Zero(t, build.runs)
}

// TestRun_VersionFailure propagates the version source error without writing.
func TestRun_VersionFailure(t *testing.T) {
	t.Parallel()

	r, store, releases, build := newTestRunner()
	releases.latestErr = fmt.Errorf("%w: everything is down", release.ErrVersionUnavailable)

	err := r.run(context.Background())
	require.ErrorIs(t, err, release.ErrVersionUnavailable)
	require.Nil(t, store.saved)
	require.Zero(t, build.runs)
}

// TestRun_ChecksumFailure guarantees no write happens after a digest failure.
func TestRun_ChecksumFailure(t *testing.T) {
	t.Parallel()

	r, store, releases, build := newTestRunner()
	releases.digestErr = fmt.Errorf("%w: malformed digest", release.ErrChecksumUnavailable)

	err := r.run(context.Background())
	require.ErrorIs(t, err, release.ErrChecksumUnavailable)
	require.Nil(t, store.saved)
	require.Zero(t, build.runs)
}

// TestRun_SaveFailure wraps write errors in ErrConfigUnwritable and skips the build.
func TestRun_SaveFailure(t *testing.T) {
	t.Parallel()

	r, store, _, build := newTestRunner()
	store.saveErr = errors.New("disk full")

	err := r.run(context.Background())
	require.ErrorIs(t, err, ErrConfigUnwritable)
	require.Zero(t, build.runs)
}

// TestRun_BuildFailure fails the run but keeps the rewritten record in place.
func TestRun_BuildFailure(t *testing.T) {
	t.Parallel()

	r, store, _, build := newTestRunner()
	build.err = fmt.Errorf("%w: exit code 2", builder.ErrBuildFailed)

	err := r.run(context.Background())
	require.ErrorIs(t, err, builder.ErrBuildFailed)

	// No rollback: the new record persists.
	require.NotNil(t, store.saved)
	require.Equal(t, "tailscale_1.92.0_amd64", store.saved.TailscaleVersion)
}

// TestRun_VerifyArtifact exercises the opt-in download verification.
func TestRun_VerifyArtifact(t *testing.T) {
	t.Parallel()

	r, store, releases, _ := newTestRunner()
	r.verifyArtifact = true

	require.NoError(t, r.run(context.Background()))
	require.Equal(t, []string{"tailscale_1.92.0_amd64.tgz"}, releases.verifyCalls)

	// A verification failure blocks the record write.
	r, store, releases, build := newTestRunner()
	r.verifyArtifact = true
	releases.verifyErr = fmt.Errorf("%w: bad download", release.ErrArtifactMismatch)

	err := r.run(context.Background())
	require.ErrorIs(t, err, release.ErrArtifactMismatch)
	require.Nil(t, store.saved)
	require.Zero(t, build.runs)
}
