package logger

import (
	"fmt"
	"io"
	"log"
	"sync"
)

type BaseLogger struct {
	mu     sync.Mutex
	prefix string
	writer io.Writer
}

func NewLogger(writer io.Writer, prefix string) *BaseLogger {
	return &BaseLogger{
		writer: writer,
		prefix: prefix,
	}
}

func (l *BaseLogger) Log(format string, v ...interface{}) {
	l.write("", format, v...)
}

func (l *BaseLogger) Errorf(format string, v ...interface{}) {
	l.write("ERROR", format, v...)
}

func (l *BaseLogger) Criticalf(format string, v ...interface{}) {
	l.write("CRITICAL", format, v...)
}

func (l *BaseLogger) WithPrefix(extraPrefix string) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &BaseLogger{
		writer: l.writer,
		prefix: l.prefix + " " + extraPrefix,
	}
}

func (l *BaseLogger) write(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prefix := l.prefix
	if level != "" {
		prefix = prefix + " " + level
	}
	message := fmt.Sprintf(prefix+" "+format, v...)
	if l.writer != nil {
		fmt.Fprintln(l.writer, message)
	}
	log.Print(message)
}
