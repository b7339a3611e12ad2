// Package version exposes the build version injected at link time.
package version

// Version is overridden via -ldflags "-X codefixer/cli/internal/version.Version=...".
var Version = "dev"

// String returns the version for --version output.
func String() string {
	return Version
}
