package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"
)

const defaultQueryLimit = 100

// Logger appends audit events to a JSON-lines file.
type Logger struct {
	path    string
	logFile *os.File
	nextID  int64
	now     func() time.Time
}

// NewLogger creates a new audit logger
func NewLogger(logFilePath string) (*Logger, error) {
	// Ensure log directory exists
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	existing, err := readEvents(logFilePath)
	if err != nil {
		return nil, err
	}

	// Open log file
	logFile, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var lastID int64
	for _, e := range existing {
		lastID = max(lastID, e.ID)
	}

	return &Logger{
		path:    logFilePath,
		logFile: logFile,
		nextID:  lastID + 1,
		now:     time.Now,
	}, nil
}

// Log logs an audit event
func (al *Logger) Log(event *Event) error {
	event.ID = al.nextID
	event.Timestamp = al.now()
	if event.Level == "" {
		event.Level = LevelInfo
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := al.logFile.Write(append(jsonData, '\n')); err != nil {
		return fmt.Errorf("failed to write to log file: %w", err)
	}

	al.nextID++
	return nil
}

// QueryLogs returns matching events, newest first
func (al *Logger) QueryLogs(filters QueryFilters) ([]*Event, error) {
	events, err := readEvents(al.path)
	if err != nil {
		return nil, err
	}

	if filters.Limit <= 0 {
		filters.Limit = defaultQueryLimit
	}

	var out []*Event
	for _, event := range slices.Backward(events) {
		if !filters.match(event) {
			continue
		}
		out = append(out, event)
		if len(out) == filters.Limit {
			break
		}
	}

	return out, nil
}

func (f QueryFilters) match(e *Event) bool {
	switch {
	case f.StartTime != nil && e.Timestamp.Before(*f.StartTime):
		return false
	case f.EndTime != nil && e.Timestamp.After(*f.EndTime):
		return false
	case f.Username != "" && e.Username != f.Username:
		return false
	case f.Action != "" && e.Action != f.Action:
		return false
	case f.Level != "" && e.Level != f.Level:
		return false
	}
	return true
}

// readEvents loads every parseable event in file order.
func readEvents(path string) ([]*Event, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []*Event
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read audit log: %w", err)
		}

		event := &Event{}
		if json.Unmarshal(line, event) == nil {
			events = append(events, event)
		}
		if err != nil {
			return events, nil
		}
	}
}

// Close closes the audit logger
func (al *Logger) Close() error {
	return al.logFile.Close()
}
