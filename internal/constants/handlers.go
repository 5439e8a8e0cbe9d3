// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// Web session constants
const (
	// SessionDuration is how long an idle capture session is kept
	SessionDuration = 24 * time.Hour

	// SessionCleanupInterval is how often expired sessions are closed
	SessionCleanupInterval = 10 * time.Minute
)
