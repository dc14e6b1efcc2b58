// Package version holds the ctst binary's version string, set at build
// time via -ldflags.
package version

// Version is overridden at build time with -ldflags
// "-X github.com/containust/containust/internal/version.Version=...".
// "dev" identifies a local, non-release build.
var Version = "dev"
