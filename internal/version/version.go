// Package version exposes the build-time version stamp.
package version

// version is overwritten at build time via -ldflags.
var version = "v0.0.0"

// Value returns the binary's version string.
func Value() string {
	return version
}
