// Package version exposes the CLI version reported to the backend and
// shown in --version output.
package version

// Version is overridden at release time via
// -ldflags "-X github.com/Sopamo/curlydots-cli/internal/version.Version=v1.2.3".
var Version = "dev"
