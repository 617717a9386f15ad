// Package version reports the build version.
package version

// Version is overridden at build time via -ldflags "-X docqa/internal/version.Version=...".
var Version = "0.1.0-dev"

func String() string { return "docqa " + Version }
