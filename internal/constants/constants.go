// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Acquisition constants
const (
	// MaxUploadSize is the maximum accepted image payload in bytes (5MB)
	MaxUploadSize = 5 << 20

	// MaxImagePixels bounds width*height of an accepted image before it is decoded
	MaxImagePixels = 24_000_000

	// MaxImageSize is the maximum dimension (width or height) of a normalized capture
	MaxImageSize = 1280

	// JPEGQuality is the quality used when re-encoding captures
	JPEGQuality = 85

	// CameraWidth and CameraHeight are the ideal camera resolution
	CameraWidth  = 1280
	CameraHeight = 720

	// CameraFacingMode requests the front-facing camera
	CameraFacingMode = "user"

	// DefaultCameraTimeout bounds a single snapshot request
	DefaultCameraTimeout = 10 * time.Second
)

// Analysis constants
const (
	// MinObservations and MaxObservations bound the stage-one observation list.
	// The instruction asks for 6-8; fewer are tolerated, more are rejected.
	MinObservations = 1
	MaxObservations = 8

	// DefaultAnalysisTimeout bounds a whole pipeline run
	DefaultAnalysisTimeout = 3 * time.Minute
)

// Provider names
const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Pipeline names
const (
	PipelineSingle   = "single"
	PipelineTwoStage = "two-stage"
)
