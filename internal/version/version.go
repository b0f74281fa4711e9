// Package version exposes the build version, overridable at link time via
// -ldflags "-X personamux/internal/version.Version=...".
package version

var Version = "dev"
