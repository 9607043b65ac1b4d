package workflow

import "log"

// Logger separates step reporting from control flow so tests can assert on
// emitted events.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// StdLogger forwards to the process logger.
type StdLogger struct{}

func (StdLogger) Infof(format string, args ...any) {
	log.Printf(format, args...)
}

func (StdLogger) Warnf(format string, args ...any) {
	log.Printf("warning: "+format, args...)
}

func (StdLogger) Errorf(format string, args ...any) {
	log.Printf("error: "+format, args...)
}
