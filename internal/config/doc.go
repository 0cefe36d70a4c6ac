// Package config loads and validates settings for the update checker:
// upstream endpoints, the plugin record path, the build command, and the
// tracked architecture. All fields default to the production values, so a
// missing settings file is not an error.
package config
