// Package plugin holds the persisted package record describing which upstream
// release is currently wrapped, and a file-backed store for it.
//
// The record's tailscaleVersion and tailscaleSHA256 fields always move
// together: the store rewrites the whole record atomically, so a reader never
// sees a version paired with a stale checksum.
package plugin
