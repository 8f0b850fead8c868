package version

const APP = "headwatch"

// Overridden at build time with -ldflags "-X headwatch/internal/version.VERSION=..."
var (
	VERSION = "dev"
	COMMIT  = "unknown"
)
