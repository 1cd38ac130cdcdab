// Package history appends translation records to a plain-text log and reads
// the log back for display.
package history

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	// NoHistory is shown when the log file does not exist yet.
	NoHistory = "No saved translations yet."

	timeLayout = "2006-01-02 15:04:05"
)

// Record is one pipeline outcome as written to the log.
type Record struct {
	Time       time.Time
	Original   string
	Translated string
}

// Format renders r in the on-disk layout, trailing blank line included.
func (r Record) Format() string {
	return fmt.Sprintf("[%s]\nOriginal: %s\nTranslated: %s\n\n", r.Time.Format(timeLayout), r.Original, r.Translated)
}

// Log is an append-only history file. Appends from several goroutines are
// serialized so records never interleave.
type Log struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

func (l *Log) Path() string { return l.path }

// Append writes one record stamped with the current local time.
func (l *Log) Append(original, translated string) (Record, error) {
	rec := Record{Time: l.now(), Original: original, Translated: translated}
	return rec, l.AppendRecord(rec)
}

func (l *Log) AppendRecord(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	if _, err := f.WriteString(rec.Format()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write history record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close history file: %w", err)
	}
	log.Printf("history: appended record to %s", l.path)
	return nil
}

// Load returns the file contents verbatim, or NoHistory when it does not exist.
func (l *Log) Load() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NoHistory, nil
	}
	if err != nil {
		return "", fmt.Errorf("read history file: %w", err)
	}
	return string(data), nil
}

// Parse splits well-formed log text back into records. Multi-line text inside a
// record is kept; parsing stops at the first malformed header.
func Parse(text string) ([]Record, error) {
	var records []Record
	rest := text
	for rest != "" {
		if !strings.HasPrefix(rest, "[") {
			return records, fmt.Errorf("record %d: missing timestamp header", len(records)+1)
		}
		end := strings.Index(rest, "]\nOriginal: ")
		if end < 0 {
			return records, fmt.Errorf("record %d: malformed header", len(records)+1)
		}
		ts, err := time.ParseInLocation(timeLayout, rest[1:end], time.Local)
		if err != nil {
			return records, fmt.Errorf("record %d: %w", len(records)+1, err)
		}
		rest = rest[end+len("]\nOriginal: "):]

		sep := strings.Index(rest, "\nTranslated: ")
		if sep < 0 {
			return records, fmt.Errorf("record %d: missing translation", len(records)+1)
		}
		original := rest[:sep]
		rest = rest[sep+len("\nTranslated: "):]

		next := nextHeader(rest)
		body := rest
		if next >= 0 {
			body, rest = rest[:next], rest[next:]
		} else {
			rest = ""
		}
		records = append(records, Record{
			Time:       ts,
			Original:   original,
			Translated: strings.TrimSuffix(body, "\n\n"),
		})
	}
	return records, nil
}

// nextHeader finds the start of the following record: a blank line then "[timestamp]".
func nextHeader(s string) int {
	off := 0
	for {
		i := strings.Index(s[off:], "\n\n[")
		if i < 0 {
			return -1
		}
		start := off + i + 2
		if end := strings.Index(s[start:], "]\nOriginal: "); end == len(timeLayout)+1 {
			if _, err := time.Parse(timeLayout, s[start+1:start+end]); err == nil {
				return start
			}
		}
		off = start
	}
}
