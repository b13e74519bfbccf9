package types

// RunMode is the deployment mode of the process
type RunMode string

const (
	// ModeServer runs the API server with the scheduler exposed as cron
	// endpoints (the default).
	ModeServer RunMode = "server"
	// ModeScheduler runs a single scheduler pass and exits. Useful for
	// external cron or one-shot invocations.
	ModeScheduler RunMode = "scheduler"
)

// LogLevel is the logging level for the zap logger
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
