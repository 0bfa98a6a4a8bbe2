// Package audit provides the append-only, human-readable audit trail.
// One line per notable event, fixed path, restrictive permissions. The
// trail is the record of every reconciliation decision whether or not an
// alert was raised.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"grimm.is/rampart/internal/clock"
)

// Log appends timestamped lines to a single file.
type Log struct {
	mu   sync.Mutex
	f    *os.File
	clk  clock.Clock
	path string
}

// Open opens (creating if needed) the audit log at path.
func Open(path string, clk clock.Clock) (*Log, error) {
	if clk == nil {
		clk = &clock.RealClock{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Log{f: f, clk: clk, path: path}, nil
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Append writes one timestamped line.
func (l *Log) Append(format string, args ...any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s %s\n", l.clk.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
	if _, err := l.f.WriteString(line); err != nil {
		return fmt.Errorf("append audit line: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
