// Package history keeps an append-only JSONL log of session traffic.
//
// The core only ever writes here; nothing in the session lifecycle reads the
// log back. Write failures are swallowed after logging, because history must
// never break an interactive operation.
package history

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// Entry kinds.
const (
	KindInput  = "input"
	KindOutput = "output"
	KindSystem = "system"
)

// Entry is one logged record.
type Entry struct {
	TS      time.Time `json:"ts"`
	Type    string    `json:"type"`
	Content string    `json:"content"`
}

// SessionInfo summarizes one session's log file.
type SessionInfo struct {
	ID         string `json:"id"`
	FirstTS    string `json:"first_ts"`
	LastTS     string `json:"last_ts"`
	EntryCount int    `json:"entry_count"`
}

// Stats aggregates a session's logged traffic.
type Stats struct {
	InputCount       int     `json:"input_count"`
	OutputCount      int     `json:"output_count"`
	TotalInputChars  int     `json:"total_input_chars"`
	TotalOutputChars int     `json:"total_output_chars"`
	DurationSeconds  float64 `json:"duration_seconds"`
}

// Logger appends session history to per-session JSONL files.
type Logger struct {
	dir    string
	logger *zap.Logger
}

// New creates the logger, ensuring the log directory exists.
func New(dir string, logger *zap.Logger) (*Logger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	logger.Info("session history directory ready", zap.String("dir", dir))
	return &Logger{dir: dir, logger: logger}, nil
}

// Dir returns the history directory.
func (l *Logger) Dir() string {
	return l.dir
}

func (l *Logger) logPath(sessionID string) string {
	return filepath.Join(l.dir, sessionID+".jsonl")
}

// LogInput records user input sent to a session.
func (l *Logger) LogInput(sessionID, content string) {
	l.write(sessionID, KindInput, content)
}

// LogOutput records captured session output.
func (l *Logger) LogOutput(sessionID, content string) {
	l.write(sessionID, KindOutput, content)
}

// LogSystem records a lifecycle message (session created, destroyed, ...).
func (l *Logger) LogSystem(sessionID, message string) {
	l.write(sessionID, KindSystem, message)
}

func (l *Logger) write(sessionID, kind, content string) {
	if len(content) == 0 {
		return
	}

	entry := Entry{TS: time.Now(), Type: kind, Content: content}
	data, err := sonic.Marshal(entry)
	if err != nil {
		l.logger.Error("failed to encode history entry", zap.Error(err))
		return
	}

	f, err := os.OpenFile(l.logPath(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.logger.Error("failed to open history log",
			zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		l.logger.Error("failed to write history entry",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

// History returns logged entries for a session, optionally filtered by kind
// and limited to the most recent limit entries (0 means all).
func (l *Logger) History(sessionID string, limit int, kind string) []Entry {
	f, err := os.Open(l.logPath(sessionID))
	if err != nil {
		return nil
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := sonic.Unmarshal(line, &entry); err != nil {
			continue // skip corrupt lines, keep the rest
		}
		if kind == "" || entry.Type == kind {
			entries = append(entries, entry)
		}
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries
}

// Sessions lists all sessions with history, most recently active first.
func (l *Logger) Sessions() []SessionInfo {
	matches, err := filepath.Glob(filepath.Join(l.dir, "*.jsonl"))
	if err != nil {
		return nil
	}

	var sessions []SessionInfo
	for _, path := range matches {
		sessionID := filepath.Base(path)
		sessionID = sessionID[:len(sessionID)-len(".jsonl")]

		entries := l.History(sessionID, 0, "")
		if len(entries) == 0 {
			continue
		}

		sessions = append(sessions, SessionInfo{
			ID:         sessionID,
			FirstTS:    entries[0].TS.Format(time.RFC3339Nano),
			LastTS:     entries[len(entries)-1].TS.Format(time.RFC3339Nano),
			EntryCount: len(entries),
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastTS > sessions[j].LastTS
	})
	return sessions
}

// Stats aggregates counts and duration for a session's log.
func (l *Logger) Stats(sessionID string) Stats {
	entries := l.History(sessionID, 0, "")
	if len(entries) == 0 {
		return Stats{}
	}

	var stats Stats
	for _, e := range entries {
		switch e.Type {
		case KindInput:
			stats.InputCount++
			stats.TotalInputChars += len(e.Content)
		case KindOutput:
			stats.OutputCount++
			stats.TotalOutputChars += len(e.Content)
		}
	}
	stats.DurationSeconds = entries[len(entries)-1].TS.Sub(entries[0].TS).Seconds()
	return stats
}

// Delete removes a session's history file. Returns false when no log exists.
func (l *Logger) Delete(sessionID string) bool {
	err := os.Remove(l.logPath(sessionID))
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Error("failed to delete history log",
				zap.String("session_id", sessionID), zap.Error(err))
		}
		return false
	}
	return true
}

// Archive compresses a session's log to {id}.jsonl.gz and removes the
// original. Called best-effort when a session is destroyed.
func (l *Logger) Archive(sessionID string) error {
	src := l.logPath(sessionID)
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(src + ".gz")
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	return os.Remove(src)
}
