package notice

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogSink appends every shown notice to a log file. Attach it with
// Queue.Subscribe; used by the headless watch command so push activity
// is auditable after the fact.
type LogSink struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewLogSink creates a sink writing to path. The file is opened lazily.
func NewLogSink(path string) *LogSink {
	return &LogSink{path: path}
}

// Write appends one notice line. Errors are swallowed: a broken log file
// must never interfere with notice delivery.
func (s *LogSink) Write(n Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFile(); err != nil {
		return
	}
	line := fmt.Sprintf("%s [%s] %s\n",
		n.At.UTC().Format("2006-01-02T15:04:05Z"),
		strings.ToUpper(n.Severity.String()),
		n.Message)
	if _, err := s.file.WriteString(line); err != nil {
		return
	}
	_ = s.file.Sync()
}

// Close closes the underlying file.
func (s *LogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *LogSink) ensureFile() error {
	if s.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open notice log: %w", err)
	}
	s.file = file
	return nil
}
