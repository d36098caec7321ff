package log

// Logger is the interface applications implement to receive DUA manager
// log events. Pass nil or NoopLogger to disable logging.
type Logger interface {
	// Log records an event. Implementations must be thread-safe.
	// The event should be processed quickly or queued; blocking affects
	// registration latency.
	Log(event Event)
}

// NoopLogger discards all events. Use when logging is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// FuncLogger adapts a function to the Logger interface.
type FuncLogger func(Event)

// Log invokes the function.
func (f FuncLogger) Log(event Event) { f(event) }

// MultiLogger sends events to multiple loggers, e.g. console output via
// SlogAdapter plus a capture file via FileLogger.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger that fans out to all given loggers.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log sends the event to all configured loggers.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Compile-time interface satisfaction checks.
var (
	_ Logger = NoopLogger{}
	_ Logger = FuncLogger(nil)
	_ Logger = (*MultiLogger)(nil)
)
