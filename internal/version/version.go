// Package version holds the build version, set with
// -ldflags "-X github.com/pfolio/portfolio-api/internal/version.Version=...".
package version

var Version = "dev"
