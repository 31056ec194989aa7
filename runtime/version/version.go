// Package version exposes the build identity baked in at link time.
package version

import "fmt"

// Overridden via -ldflags at build time.
var (
	gitCommit = "unknown"
	buildDate = "unknown"
	semver    = "0.1.0"
)

// Version returns the full human-readable build identity.
func Version() string {
	return fmt.Sprintf("filegate/%s (commit %s, built %s)", semver, gitCommit, buildDate)
}

// SemanticVersion returns the bare semver string.
func SemanticVersion() string {
	return semver
}
