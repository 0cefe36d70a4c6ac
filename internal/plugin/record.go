package plugin

import "strings"

// Record describes the currently packaged upstream release. It mirrors the
// JSON record the packaging pipeline consumes, so field order and names are
// fixed.
type Record struct {
	// Name is the plugin package name.
	Name string `json:"name"`
	// Author is the plugin maintainer.
	Author string `json:"author"`
	// GithubRepository is the source repository URL of this plugin.
	GithubRepository string `json:"githubRepository"`
	// Version is the date of the most recent successful update, as YYYY.MM.DD.
	Version string `json:"version"`
	// TailscaleVersion identifies the wrapped release as tailscale_<version>_<arch>.
	TailscaleVersion string `json:"tailscaleVersion"`
	// TailscaleSHA256 is the hex digest of the artifact named by TailscaleVersion.
	TailscaleSHA256 string `json:"tailscaleSHA256"`
	// PackageVersion is maintained by the packaging tooling, never by the checker.
	PackageVersion string `json:"packageVersion"`
	// PackageSHA256 is maintained by the packaging tooling, never by the checker.
	PackageSHA256 string `json:"packageSHA256"`
	// PluginDirectory is the install location on the host platform.
	PluginDirectory string `json:"pluginDirectory"`
	// ConfigDirectory is the runtime state location on the host platform.
	ConfigDirectory string `json:"configDirectory"`
	// Minver is the minimum host platform version the package supports.
	Minver string `json:"minver"`
}

// recordIdentifierParts is the number of underscore-separated parts in a
// well-formed tailscale_<version>_<arch> identifier.
const recordIdentifierParts = 3

// UpstreamRelease extracts the wrapped release version from the stored
// tailscale_<version>_<arch> identifier. A malformed identifier yields "",
// which never equals a fetched version, so stale or hand-edited records are
// treated as "update needed" rather than as a fatal parse error.
func (r *Record) UpstreamRelease() string {
	parts := strings.Split(r.TailscaleVersion, "_")
	if len(parts) != recordIdentifierParts {
		return ""
	}

	return parts[1]
}
