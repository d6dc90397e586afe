// Package progress implements the durable, append-only progress store.
//
// The store is a CSV file with a fixed header. Every graded interaction
// appends one row. Before an append to a store that already holds records,
// the whole file is copied to a sibling backup, giving one level of undo.
package progress

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gemtutor/internal/logging"
)

const (
	// NoHistory is returned by RecentHistory for an empty store.
	NoHistory = "No prior session history."

	historyHeading = "PREVIOUS SESSION HISTORY (Resume from here):\n"
)

// Tracker owns one progress store file.
// All writes go through a single mutex so concurrent graders never
// interleave a backup with another caller's append.
type Tracker struct {
	path       string
	backupPath string
	mu         sync.Mutex
	now        func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker opens (creating if needed) the store at path.
func NewTracker(path string, opts ...Option) (*Tracker, error) {
	if path == "" {
		return nil, errors.New("progress store path required")
	}
	t := &Tracker{
		path:       path,
		backupPath: BackupPathFor(path),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.EnsureStoreExists(); err != nil {
		return nil, err
	}
	return t, nil
}

// BackupPathFor inserts "_backup" before the extension of path.
func BackupPathFor(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_backup" + ext
}

// Path returns the store file path.
func (t *Tracker) Path() string { return t.path }

// BackupPath returns the sibling backup path.
func (t *Tracker) BackupPath() string { return t.backupPath }

// EnsureStoreExists creates the store with its header row if and only if
// the file does not exist. An existing store is never touched.
func (t *Tracker) EnsureStoreExists() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ensureLocked()
}

func (t *Tracker) ensureLocked() error {
	if dir := filepath.Dir(t.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	f, err := os.OpenFile(t.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return fmt.Errorf("failed to create progress store: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("failed to write store header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write store header: %w", err)
	}
	logging.Store("Created progress store at %s", t.path)
	return nil
}

// LogInteraction appends one record built from the assessment.
// The backup (when the store has records) and the append happen under one lock.
// I/O errors are returned to the caller.
func (t *Tracker) LogInteraction(a Assessment, tutorText, project string) error {
	topic := strings.TrimSpace(a.Topic)
	if topic == "" {
		topic = DefaultTopic
	}
	rec := Record{
		Timestamp:    t.now(),
		Topic:        topic,
		Mastery:      ClampMastery(a.Mastery),
		Notes:        a.Notes,
		FullResponse: tutorText,
		Project:      project,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read progress store: %w", err)
		}
		if err := t.ensureLocked(); err != nil {
			return err
		}
		data = nil
	}

	if hasRecords(data) {
		if err := writeFileAtomic(t.backupPath, data); err != nil {
			return fmt.Errorf("failed to back up progress store: %w", err)
		}
		logging.StoreDebug("Backed up %d bytes to %s", len(data), t.backupPath)
	}

	f, err := os.OpenFile(t.path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open progress store: %w", err)
	}
	defer f.Close()

	if len(data) > 0 && data[len(data)-1] != '\n' {
		if _, err := f.Write([]byte("\n")); err != nil {
			return fmt.Errorf("failed to append record: %w", err)
		}
	}

	w := csv.NewWriter(f)
	if err := w.Write(rec.row()); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}

	logging.Store("Logged interaction: topic=%s mastery=%d project=%s", rec.Topic, rec.Mastery, rec.Project)
	return nil
}

// hasRecords reports whether the file holds anything beyond its header line.
func hasRecords(data []byte) bool {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return false
	}
	return len(bytes.TrimSpace(data[i+1:])) > 0
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Records returns every record in insertion order.
// A missing store yields no records.
func (t *Tracker) Records() ([]Record, error) {
	t.mu.Lock()
	data, err := os.ReadFile(t.path)
	t.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read progress store: %w", err)
	}
	return parseRecords(bytes.NewReader(data))
}

// parseRecords reads CSV rows keyed by header name, tolerating reordered
// or missing columns.
func parseRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read store header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	field := func(row []string, name string) (string, bool) {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return "", false
		}
		return row[i], true
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse progress store: %w", err)
		}

		var rec Record
		if v, ok := field(row, "timestamp"); ok {
			rec.Timestamp, _ = time.ParseInLocation(TimestampLayout, v, time.Local)
		}
		rec.Topic, _ = field(row, "topic")
		if v, ok := field(row, "mastery"); ok {
			rec.Mastery, _ = strconv.Atoi(strings.TrimSpace(v))
		}
		rec.Notes, _ = field(row, "notes")
		rec.FullResponse, _ = field(row, "full_ai_response")
		rec.Project, _ = field(row, "project_name")
		records = append(records, rec)
	}
	return records, nil
}

// RecentHistory formats the last limit records as conversational context,
// most recent last. limit <= 0 returns every record. Failures are reported
// as a placeholder string rather than an error.
func (t *Tracker) RecentHistory(limit int) string {
	records, err := t.Records()
	if err != nil {
		logging.StoreError("Failed to load history: %v", err)
		return fmt.Sprintf("Error loading history: %v", err)
	}
	if len(records) == 0 {
		return NoHistory
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}

	var sb strings.Builder
	sb.WriteString(historyHeading)
	for _, r := range records {
		topic := r.Topic
		if topic == "" {
			topic = "General"
		}
		notes := r.Notes
		if notes == "" {
			notes = "N/A"
		}
		project := r.Project
		if project == "" {
			project = "None"
		}
		fmt.Fprintf(&sb, "- Topic: %s | Project: %s | Notes: %s\n", topic, project, notes)
	}
	return sb.String()
}
