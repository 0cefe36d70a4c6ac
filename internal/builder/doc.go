// Package builder invokes the packaging build script as a subprocess,
// buffering its output in full before surfacing it to the operator.
package builder
