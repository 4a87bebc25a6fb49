// Package version provides version information for the handover decision
// engine.
package version

// Version constants for the project.
const (
	// Version is the current version of the project.
	Version = "1.0.0"

	// ProtocolRevision identifies the wire/config format this build targets.
	ProtocolRevision = "2026.1"

	// GoVersion is the Go version used.
	GoVersion = "1.24.6"
)

// GetVersion returns the current version.
func GetVersion() string {
	return Version
}

// GetProtocolRevision returns the targeted wire/config protocol revision.
func GetProtocolRevision() string {
	return ProtocolRevision
}
