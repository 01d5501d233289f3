// Package logging provides leveled logging and stage tracing for schoolsim.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A StageTrace for structured JSONL traces of pipeline stages
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// StageTrace writes structured pipeline stage events to a JSONL file.
// It is safe for concurrent use. A nil StageTrace is safe to use;
// all methods are no-ops on nil receiver.
type StageTrace struct {
	mu   sync.Mutex
	file *os.File
}

// NewStageTrace creates a trace writer at dir/trace.jsonl.
// At "info" level (the default), returns nil and no file is created.
// At "debug" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewStageTrace(dir string, level string) *StageTrace {
	if ParseLevel(level) != slog.LevelDebug {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, "trace.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &StageTrace{file: f}
}

// Log writes a stage event as a single JSONL line.
// A "time" field is added automatically. The caller's map is not mutated.
// Safe to call on nil receiver.
func (st *StageTrace) Log(event map[string]any) {
	if st == nil || st.file == nil {
		return
	}

	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	st.mu.Lock()
	defer st.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = st.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (st *StageTrace) Close() {
	if st == nil || st.file == nil {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.file.Close()
	st.file = nil
}
