// Package checker orchestrates the single-pass update workflow: read the
// plugin record, discover the latest upstream release, and when the packaged
// version is stale fetch the new artifact's digest, rewrite the record, and
// run the package build.
package checker
