// Package logging records the run log: one line per conversion event, kept
// next to the reports so a failed batch can be traced after the TUI exits.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileName is the run log inside the configured log directory.
const FileName = "utilrep.log"

// Logger is the run log. A nil *Logger discards everything, so callers
// that run without a log directory need no checks.
type Logger struct {
	mu   sync.Mutex
	path string
	out  *os.File
}

// New opens dir/utilrep.log for appending, creating dir as needed.
func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("run log directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName)
	out, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("run log %s: %w", path, err)
	}
	return &Logger{path: path, out: out}, nil
}

// Path is where entries are written.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return nil
	}
	err := l.out.Close()
	l.out = nil
	return err
}

// Printf records one entry stamped with the local time. Embedded newlines
// are indented so every entry still starts with its timestamp.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	msg = strings.ReplaceAll(msg, "\n", "\n    ")

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return
	}
	fmt.Fprintf(l.out, "[%s] %s\n", time.Now().Format(time.RFC3339), msg)
}
