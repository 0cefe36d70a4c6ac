// Package release resolves upstream release information for the wrapped tool.
//
// The latest version comes from the stable listing page (authoritative),
// with the release-metadata API as a fallback when the listing cannot be
// fetched or parsed. Artifact digests come from the ".sha256" resources
// published next to each artifact.
package release
