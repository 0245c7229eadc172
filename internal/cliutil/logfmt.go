package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/Paintersrp/reap/internal/supervise"
)

// LogRecord represents a structured supervisor event ready for JSON
// encoding.
type LogRecord struct {
	Timestamp time.Time `json:"ts"`
	PID       int       `json:"pid"`
	Level     string    `json:"level"`
	Message   string    `json:"msg"`
}

// NewLogRecord converts a supervisor event into a structured log record.
func NewLogRecord(event supervise.Event) LogRecord {
	level := event.Level
	if level == "" {
		if inferred := inferLogLevel(event.Message); inferred != "" {
			level = inferred
		} else {
			level = "info"
		}
	}
	return LogRecord{
		Timestamp: event.Timestamp,
		PID:       event.PID,
		Level:     level,
		Message:   event.Message,
	}
}

var levelTokenPattern = regexp.MustCompile(`(?i)\b(error|warn|info)\b`)

func inferLogLevel(message string) string {
	matches := levelTokenPattern.FindStringSubmatch(message)
	if len(matches) < 2 {
		return ""
	}
	switch strings.ToLower(matches[1]) {
	case "error":
		return "error"
	case "warn":
		return "warn"
	case "info":
		return "info"
	default:
		return ""
	}
}

// EncodeEvent encodes a supervisor event to JSON, reporting errors to
// stderr if needed.
func EncodeEvent(enc *json.Encoder, stderr io.Writer, event supervise.Event) {
	if enc == nil {
		return
	}
	record := NewLogRecord(event)
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := enc.Encode(&record); err != nil {
		fmt.Fprintf(stderr, "error: encode event: %v\n", err)
	}
}

// FormatEvent renders a supervisor event as a plain status line.
func FormatEvent(event supervise.Event) string {
	if event.PID > 0 {
		return fmt.Sprintf("pid %d: %s", event.PID, event.Message)
	}
	return event.Message
}
