// Package buildinfo exposes the binary's version, stamped at build time via
// -ldflags, and derives the User-Agent string sent on every Discourse and
// pull-request API request so that server-side request logs can attribute
// traffic to a specific gatekeeper release.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// BinaryVersion is set at build time via -ldflags. Defaults to "dev".
var BinaryVersion = "dev"

// ModuleVersion returns the module version embedded by the Go toolchain
// (when available), falling back to the empty string in environments
// without embedded build info (e.g. `go run`).
func ModuleVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return ""
}

// UserAgent returns the User-Agent header value identifying this binary to
// Discourse and forge APIs, preferring the ldflags-stamped release version
// and falling back to the Go module's pseudo-version.
func UserAgent() string {
	version := BinaryVersion
	if version == "dev" {
		if moduleVersion := ModuleVersion(); moduleVersion != "" {
			version = moduleVersion
		}
	}
	return fmt.Sprintf("discourse-gatekeeper/%s", version)
}
