package logger

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

var levelNames = map[Level]string{LevelDebug: "DEBUG", LevelInfo: "INFO", LevelError: "ERROR"}

// Logger writes one JSON object per line. Safe for concurrent use.
type Logger struct {
	service string
	min     Level
	mu      sync.Mutex
	out     io.Writer
}

func New(service string) *Logger {
	return &Logger{service: service, min: LevelInfo, out: os.Stdout}
}

// WithLevel lowers or raises the minimum emitted level.
func (l *Logger) WithLevel(min Level) *Logger {
	return &Logger{service: l.service, min: min, out: l.out}
}

// Named returns a logger for a sub-component sharing the same output.
func (l *Logger) Named(service string) *Logger {
	return &Logger{service: service, min: l.min, out: l.out}
}

func (l *Logger) log(level Level, action string, fields map[string]any, err error) {
	if level < l.min {
		return
	}
	entry := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     levelNames[level],
		"service":   l.service,
		"action":    action,
		"hostname":  hostname(),
	}
	for k, v := range fields {
		entry[k] = v
	}
	if err != nil {
		entry["error"] = err.Error()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = json.NewEncoder(l.out).Encode(entry)
}

func (l *Logger) Debug(action string, fields map[string]any) { l.log(LevelDebug, action, fields, nil) }
func (l *Logger) Info(action string, fields map[string]any)  { l.log(LevelInfo, action, fields, nil) }
func (l *Logger) Error(action string, err error, fields map[string]any) {
	l.log(LevelError, action, fields, err)
}

func hostname() string { h, _ := os.Hostname(); return h }
