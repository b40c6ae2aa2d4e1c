// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     version
// Description: Central version information for binary and components
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package version

import (
	"fmt"
	"runtime"
)

// Version constants
const (
	// App is the application version
	App = "1.0.0"

	// Component versions
	Session     = "1.0.0"
	Recognition = "1.0.0"
	Translation = "1.0.0"
	Synthesis   = "1.0.0"
	API         = "1.0.0"
)

// Set at build time via -ldflags "-X .../version.Commit=..."
var (
	Commit    = "dev"
	BuildDate = "unknown"
)

// ComponentVersion returns the version for a component name
func ComponentVersion(name string) string {
	switch name {
	case "session":
		return Session
	case "recognition", "stt":
		return Recognition
	case "translation":
		return Translation
	case "synthesis", "tts":
		return Synthesis
	case "api", "server":
		return API
	default:
		return App
	}
}

// String returns the full version line printed by the version command
func String() string {
	return fmt.Sprintf("meinDOLMETSCHER %s (commit %s, built %s, %s %s/%s)",
		App, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
