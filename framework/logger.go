package framework

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Logger is the interface for debug output produced while a test runs. It is
// deliberately minimal so that components such as the API client can write
// diagnostics without knowing where they end up.
type Logger interface {
	Printf(message string, args ...any)
}

type nullLogger struct{}

func (n nullLogger) Printf(message string, args ...any) {}

func NullLogger() Logger { return nullLogger{} }

// CapturedMessage is a single timestamped line of debug output.
type CapturedMessage struct {
	Time    time.Time
	Message string
}

type CapturedOutput []CapturedMessage

// CapturingLogger buffers debug output in memory, so that the output of a
// test can be attached to its result or dumped only if the test fails.
type CapturingLogger struct {
	output []CapturedMessage
	lock   sync.Mutex
}

func (l *CapturingLogger) Printf(message string, args ...any) {
	l.lock.Lock()
	l.output = append(l.output, CapturedMessage{Time: time.Now(), Message: fmt.Sprintf(message, args...)})
	l.lock.Unlock()
}

func (l *CapturingLogger) Output() CapturedOutput {
	l.lock.Lock()
	ret := append([]CapturedMessage(nil), l.output...)
	l.lock.Unlock()
	return ret
}

func (output CapturedOutput) Dump(dest io.Writer, prefix string) {
	for _, m := range output {
		fmt.Fprintf(dest, "%s[%s] %s\n",
			prefix,
			m.Time.Format(timestampFormat),
			m.Message,
		)
	}
}

func (output CapturedOutput) String() string {
	var sb strings.Builder
	output.Dump(&sb, "")
	return sb.String()
}

// PrefixedLogger returns a Logger that prepends a fixed prefix to every
// message before forwarding it to the wrapped logger. Components that share
// one underlying logger use this to tell their output apart.
func PrefixedLogger(wrapped Logger, prefix string) Logger {
	return prefixedLogger{wrapped: wrapped, prefix: prefix}
}

type prefixedLogger struct {
	wrapped Logger
	prefix  string
}

func (p prefixedLogger) Printf(message string, args ...any) {
	p.wrapped.Printf(p.prefix+message, args...)
}
