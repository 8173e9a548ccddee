// ABOUTME: Build and product identity constants
// ABOUTME: Reported in the startup log lines of both binaries
package version

const (
	// Product is the human-readable product name.
	Product = "Airwave"

	// Version is the semantic version of this build.
	Version = "0.3.0"
)
