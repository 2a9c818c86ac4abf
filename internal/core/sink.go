package core

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Sink receives human-readable progress and error text. Calls are
// fire-and-forget and may come from several goroutines.
type Sink interface {
	Progress(msg string)
	Error(msg string)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Progress(string) {}
func (NopSink) Error(string)    {}

// WriterSink writes progress to out and errors to errOut, one line each.
type WriterSink struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	errorFmt func(format string, a ...any) string
}

// NewWriterSink creates a WriterSink. errorFmt decorates error lines; nil leaves them plain.
func NewWriterSink(out, errOut io.Writer, errorFmt func(format string, a ...any) string) *WriterSink {
	if errorFmt == nil {
		errorFmt = fmt.Sprintf
	}
	return &WriterSink{out: out, errOut: errOut, errorFmt: errorFmt}
}

func (s *WriterSink) Progress(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.out, msg)
}

func (s *WriterSink) Error(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.errOut, s.errorFmt("Error: %s", msg))
}

// LogSink forwards messages to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink. A nil logger is replaced with a no-op one.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("progress")}
}

func (s *LogSink) Progress(msg string) { s.logger.Info(msg) }
func (s *LogSink) Error(msg string)    { s.logger.Error(msg) }

// MultiSink fans messages out to several sinks.
type MultiSink []Sink

func (m MultiSink) Progress(msg string) {
	for _, s := range m {
		s.Progress(msg)
	}
}

func (m MultiSink) Error(msg string) {
	for _, s := range m {
		s.Error(msg)
	}
}

// RecordingSink keeps every message in order. Useful for testing.
type RecordingSink struct {
	mu       sync.Mutex
	Messages []SinkMessage
}

// SinkMessage is one recorded message.
type SinkMessage struct {
	Error bool
	Text  string
}

func (s *RecordingSink) Progress(msg string) { s.add(false, msg) }
func (s *RecordingSink) Error(msg string)    { s.add(true, msg) }

func (s *RecordingSink) add(isErr bool, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, SinkMessage{Error: isErr, Text: msg})
}

// Errors returns the recorded error messages.
func (s *RecordingSink) Errors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.Messages {
		if m.Error {
			out = append(out, m.Text)
		}
	}
	return out
}

// Progresses returns the recorded progress messages.
func (s *RecordingSink) Progresses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.Messages {
		if !m.Error {
			out = append(out, m.Text)
		}
	}
	return out
}
