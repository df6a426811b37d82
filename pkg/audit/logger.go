package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger defines the interface for push journal backends
type Logger interface {
	Log(event *Event) error
	Query(filter Filter) ([]*Event, error)
	Close() error
}

// FileLogger logs push events to a JSON-lines file
type FileLogger struct {
	path     string
	file     *os.File
	encoder  *json.Encoder
	mu       sync.RWMutex
	rotation RotationConfig
	log      logrus.FieldLogger
}

// RotationConfig configures log file rotation
type RotationConfig struct {
	MaxSize    int64 // Max file size in bytes before rotation
	MaxBackups int   // Max number of old files to retain
}

// NewFileLogger opens (or creates) the journal at path for appending.
// log receives warnings about malformed entries; nil discards them.
func NewFileLogger(path string, rotation RotationConfig, log logrus.FieldLogger) (*FileLogger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	return &FileLogger{
		path:     path,
		file:     file,
		encoder:  json.NewEncoder(file),
		rotation: rotation,
		log:      log,
	}, nil
}

// Path returns the journal file path
func (l *FileLogger) Path() string {
	return l.path
}

// Log appends an event to the journal
func (l *FileLogger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rotation.MaxSize > 0 {
		if info, err := l.file.Stat(); err == nil {
			if info.Size() >= l.rotation.MaxSize {
				if err := l.rotate(); err != nil {
					return fmt.Errorf("rotating journal: %w", err)
				}
			}
		}
	}

	return l.encoder.Encode(event)
}

// Query returns the newest events matching the filter, oldest first.
// Offset skips that many of the newest matches and Limit keeps at most that
// many. Only the current journal file is read; rotated backups are not.
func (l *FileLogger) Query(filter Filter) ([]*Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Event{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []*Event
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			if l.log != nil {
				l.log.Warnf("journal: skipping malformed entry at line %d: %v", lineNum, err)
			}
			continue
		}

		if matchesFilter(&event, filter) {
			events = append(events, &event)
		}
	}

	// Offset and Limit count back from the newest event
	end := len(events) - filter.Offset
	if end < 0 {
		end = 0
	}
	start := 0
	if filter.Limit > 0 && end-filter.Limit > start {
		start = end - filter.Limit
	}
	events = events[start:end]

	return events, scanner.Err()
}

// Close closes the journal file
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func matchesFilter(event *Event, filter Filter) bool {
	if filter.Device != "" && event.Device != filter.Device {
		return false
	}
	if filter.Phase != "" && event.Phase != filter.Phase {
		return false
	}
	if filter.RunID != "" && event.RunID != filter.RunID {
		return false
	}
	if !filter.StartTime.IsZero() && event.Timestamp.Before(filter.StartTime) {
		return false
	}
	if !filter.EndTime.IsZero() && event.Timestamp.After(filter.EndTime) {
		return false
	}
	if filter.SuccessOnly && !event.Success {
		return false
	}
	if filter.FailureOnly && event.Success {
		return false
	}
	return true
}

func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}

	// Nanoseconds keep backups from colliding when several rotations
	// happen within one second.
	timestamp := time.Now().Format("20060102-150405.000000000")
	rotatedPath := l.path + "." + timestamp

	if err := os.Rename(l.path, rotatedPath); err != nil {
		return err
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	l.file = file
	l.encoder = json.NewEncoder(file)

	if l.rotation.MaxBackups > 0 {
		l.cleanupOldFiles()
	}

	return nil
}

func (l *FileLogger) cleanupOldFiles() {
	dir := filepath.Dir(l.path)
	base := filepath.Base(l.path)

	matches, err := filepath.Glob(filepath.Join(dir, base+".*"))
	if err != nil {
		return
	}

	// Backup names sort chronologically
	sort.Strings(matches)
	if len(matches) > l.rotation.MaxBackups {
		for _, path := range matches[:len(matches)-l.rotation.MaxBackups] {
			os.Remove(path)
		}
	}
}
