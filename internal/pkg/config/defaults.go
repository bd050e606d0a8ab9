package config

// Default values for configuration.
const (
	// Beeper defaults
	DefaultHostURL = "http://localhost:23373"

	// Hydration defaults
	DefaultHydrationPoolSize = 8

	// Thumbnail defaults
	DefaultThumbnailWorkers   = 2
	DefaultThumbnailQueueSize = 256
	DefaultMaxDimJPEG         = 800
	DefaultMaxDimPNG          = 1280
	DefaultJPEGQuality        = 75

	// Logging defaults
	DefaultLogLevel = "info"
)
