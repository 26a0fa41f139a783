package logger

// Logger is the logging surface shared by the import services. Errorf is for
// recoverable per-item and per-category failures, Criticalf for failures
// that end the run.
type Logger interface {
	Log(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Criticalf(format string, v ...interface{})
	WithPrefix(prefix string) Logger
}
