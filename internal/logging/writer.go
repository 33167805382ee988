package logging

import (
	"log/slog"
	"strings"
)

// Writer is an io.Writer implementation that forwards subprocess output to slog.
// The review step attaches one to the Copilot CLI's stdout and stderr so the
// tool's progress lands in the task log line by line.
type Writer struct {
	logger *slog.Logger
	msg    string
}

// NewWriter constructs a Writer bound to the provided logger. The msg is the
// log message used for every forwarded line (e.g. "copilot output").
func NewWriter(logger *slog.Logger, msg string) *Writer {
	return &Writer{logger: logger, msg: msg}
}

// Write logs the given bytes at info level, one log record per non-empty line.
func (w *Writer) Write(p []byte) (int, error) {
	if w.logger != nil {
		for _, line := range strings.SplitAfter(string(p), "\n") {
			line = strings.TrimRight(line, "\n")
			if line != "" {
				w.logger.Info(w.msg, "line", line)
			}
		}
	}
	return len(p), nil
}
