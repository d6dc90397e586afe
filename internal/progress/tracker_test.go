package progress

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const headerLine = "timestamp,topic,mastery,notes,full_ai_response,project_name"

func fixedClock() func() time.Time {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)
	return func() time.Time { return ts }
}

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tr, err := NewTracker(filepath.Join(t.TempDir(), "test_progress.csv"), WithClock(fixedClock()))
	require.NoError(t, err)
	return tr
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNewTracker_CreatesStoreWithHeader(t *testing.T) {
	tr := newTestTracker(t)

	content := readFile(t, tr.Path())
	assert.Equal(t, headerLine+"\n", content)
}

func TestEnsureStoreExists_Idempotent(t *testing.T) {
	tr := newTestTracker(t)
	require.NoError(t, tr.LogInteraction(Assessment{Topic: "A"}, "Resp A", "Proj"))
	before := readFile(t, tr.Path())

	require.NoError(t, tr.EnsureStoreExists())
	require.NoError(t, tr.EnsureStoreExists())

	// Re-opening an existing store must not rewrite it either.
	_, err := NewTracker(tr.Path())
	require.NoError(t, err)

	after := readFile(t, tr.Path())
	assert.Equal(t, before, after)
	assert.Equal(t, 1, strings.Count(after, headerLine))
}

func TestNewTracker_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "progress.csv")
	_, err := NewTracker(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestLogInteraction_SingleRow(t *testing.T) {
	tr := newTestTracker(t)

	err := tr.LogInteraction(Assessment{Topic: "Math", Mastery: 8, Notes: "Good"}, "resp", "Proj")
	require.NoError(t, err)

	records, err := tr.Records()
	require.NoError(t, err)

	want := []Record{{
		Timestamp:    fixedClock()(),
		Topic:        "Math",
		Mastery:      8,
		Notes:        "Good",
		FullResponse: "resp",
		Project:      "Proj",
	}}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	assert.NoFileExists(t, tr.BackupPath(), "no backup for an empty store")
}

func TestLogInteraction_BackupHoldsPreviousState(t *testing.T) {
	tr := newTestTracker(t)

	require.NoError(t, tr.LogInteraction(Assessment{Topic: "A"}, "Resp A", "Proj A"))
	afterFirst := readFile(t, tr.Path())

	require.NoError(t, tr.LogInteraction(Assessment{Topic: "B"}, "Resp B", "Proj B"))

	require.FileExists(t, tr.BackupPath())
	backup := readFile(t, tr.BackupPath())
	assert.Equal(t, afterFirst, backup)
	assert.Contains(t, backup, "Resp A")
	assert.NotContains(t, backup, "Resp B")
}

func TestLogInteraction_BackupTracksNthAppend(t *testing.T) {
	tr := newTestTracker(t)

	for i := 1; i <= 5; i++ {
		before := readFile(t, tr.Path())
		require.NoError(t, tr.LogInteraction(Assessment{Topic: fmt.Sprintf("T%d", i)}, "r", "p"))
		if i >= 2 {
			assert.Equal(t, before, readFile(t, tr.BackupPath()), "backup after append %d", i)
		}
	}

	records, err := tr.Records()
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("T%d", i+1), r.Topic)
	}
}

func TestLogInteraction_Defaults(t *testing.T) {
	tr := newTestTracker(t)

	require.NoError(t, tr.LogInteraction(Assessment{}, "resp", "Proj"))

	records, err := tr.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, DefaultTopic, records[0].Topic)
	assert.Equal(t, 0, records[0].Mastery)
	assert.Equal(t, "", records[0].Notes)
}

func TestLogInteraction_ClampsMastery(t *testing.T) {
	tr := newTestTracker(t)

	require.NoError(t, tr.LogInteraction(Assessment{Topic: "hi", Mastery: 42}, "r", "p"))
	require.NoError(t, tr.LogInteraction(Assessment{Topic: "lo", Mastery: -3}, "r", "p"))

	records, err := tr.Records()
	require.NoError(t, err)
	assert.Equal(t, 10, records[0].Mastery)
	assert.Equal(t, 0, records[1].Mastery)
}

func TestLogInteraction_QuotesAwkwardFields(t *testing.T) {
	tr := newTestTracker(t)
	resp := "Line one, with comma\nLine \"two\""

	require.NoError(t, tr.LogInteraction(Assessment{Topic: "CSV, quoting", Notes: "a\nb"}, resp, "P"))

	records, err := tr.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, resp, records[0].FullResponse)
	assert.Equal(t, "CSV, quoting", records[0].Topic)
	assert.Equal(t, "a\nb", records[0].Notes)
}

func TestLogInteraction_RecreatesDeletedStore(t *testing.T) {
	tr := newTestTracker(t)
	require.NoError(t, os.Remove(tr.Path()))

	require.NoError(t, tr.LogInteraction(Assessment{Topic: "X"}, "r", "p"))

	content := readFile(t, tr.Path())
	assert.True(t, strings.HasPrefix(content, headerLine+"\n"))
	records, err := tr.Records()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestLogInteraction_MissingTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.csv")
	require.NoError(t, os.WriteFile(path, []byte(headerLine+"\n2026-01-01 00:00:00,Old,3,n,r,P"), 0644))

	tr, err := NewTracker(path)
	require.NoError(t, err)
	require.NoError(t, tr.LogInteraction(Assessment{Topic: "New"}, "r", "P"))

	records, err := tr.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Old", records[0].Topic)
	assert.Equal(t, "New", records[1].Topic)
}

func TestLogInteraction_ConcurrentCallersNeverLoseRows(t *testing.T) {
	tr := newTestTracker(t)

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, tr.LogInteraction(Assessment{Topic: fmt.Sprintf("T%02d", i)}, "r", "p"))
		}(i)
	}
	wg.Wait()

	records, err := tr.Records()
	require.NoError(t, err)
	require.Len(t, records, n)

	seen := make(map[string]bool)
	for _, r := range records {
		seen[r.Topic] = true
	}
	assert.Len(t, seen, n)

	backup, err := parseRecords(strings.NewReader(readFile(t, tr.BackupPath())))
	require.NoError(t, err)
	assert.Len(t, backup, n-1)
}

func TestRecentHistory(t *testing.T) {
	tr := newTestTracker(t)

	assert.Equal(t, NoHistory, tr.RecentHistory(5))

	require.NoError(t, tr.LogInteraction(Assessment{Topic: "A", Mastery: 1}, "Resp A", "Proj A"))
	require.NoError(t, tr.LogInteraction(Assessment{Topic: "B", Mastery: 2, Notes: "close"}, "Resp B", "Proj B"))

	t.Run("limit 1 keeps only the latest", func(t *testing.T) {
		h := tr.RecentHistory(1)
		assert.Contains(t, h, "Topic: B")
		assert.NotContains(t, h, "Topic: A")
	})

	t.Run("most recent last", func(t *testing.T) {
		h := tr.RecentHistory(5)
		assert.True(t, strings.HasPrefix(h, historyHeading))
		assert.Less(t, strings.Index(h, "Topic: A"), strings.Index(h, "Topic: B"))
		assert.Contains(t, h, "- Topic: B | Project: Proj B | Notes: close\n")
		assert.Contains(t, h, "- Topic: A | Project: Proj A | Notes: N/A\n")
	})

	t.Run("non-positive limit returns everything", func(t *testing.T) {
		h := tr.RecentHistory(0)
		assert.Equal(t, 2, strings.Count(h, "- Topic:"))
	})
}

func TestRecentHistory_MissingStore(t *testing.T) {
	tr := newTestTracker(t)
	require.NoError(t, os.Remove(tr.Path()))
	assert.Equal(t, NoHistory, tr.RecentHistory(5))
}

func TestRecentHistory_CorruptStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.csv")
	require.NoError(t, os.WriteFile(path, []byte(headerLine+"\n\"unterminated,quote\n"), 0644))

	tr, err := NewTracker(path)
	require.NoError(t, err)

	h := tr.RecentHistory(5)
	assert.True(t, strings.HasPrefix(h, "Error loading history:"), h)
}

func TestBackupPathFor(t *testing.T) {
	assert.Equal(t, "progress_db_backup.csv", BackupPathFor("progress_db.csv"))
	assert.Equal(t, filepath.Join("a", "b_backup.csv"), BackupPathFor(filepath.Join("a", "b.csv")))
	assert.Equal(t, "store_backup", BackupPathFor("store"))
}
