package logger

// Logger defines the interface for component-scoped logging.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	ErrorWithCode(err error) *LogEvent
}

var _ Logger = (*componentLogger)(nil)
