package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := newTestStorage(t)

	runID, err := store.StartRun("http://x.test/g?", "Mountains", 3, "out/Mountains")
	require.NoError(t, err)
	assert.Positive(t, runID)

	run, err := store.LastRun("http://x.test/g?")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, runID, run.RunID)
	assert.Equal(t, "Mountains", run.Title)
	assert.Equal(t, 3, run.TotalPages)
	assert.Equal(t, StatusRunning, run.Status)
	assert.Nil(t, run.FinishedAt)

	require.NoError(t, store.FinishRun(runID, StatusDone))
	run, err = store.LastRun("http://x.test/g?")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, run.Status)
	assert.NotNil(t, run.FinishedAt)
}

func TestLastRunNotFound(t *testing.T) {
	store := newTestStorage(t)
	run, err := store.LastRun("http://x.test/never?")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestLastRunPicksNewestForGallery(t *testing.T) {
	store := newTestStorage(t)

	first, err := store.StartRun("http://x.test/g?", "Mountains", 3, "Mountains")
	require.NoError(t, err)
	require.NoError(t, store.FinishRun(first, StatusInterrupted))
	second, err := store.StartRun("http://x.test/g?", "Mountains", 3, "Mountains")
	require.NoError(t, err)
	_, err = store.StartRun("http://x.test/other?", "Rivers", 1, "Rivers")
	require.NoError(t, err)

	run, err := store.LastRun("http://x.test/g?")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, second, run.RunID)
	assert.Equal(t, StatusRunning, run.Status)
}

func TestRecordPagesAndItems(t *testing.T) {
	store := newTestStorage(t)
	runID, err := store.StartRun("http://x.test/g?", "Mountains", 2, "Mountains")
	require.NoError(t, err)

	require.NoError(t, store.RecordPage(PageRecord{RunID: runID, PageNumber: 2, Status: StatusFailed, Error: "timeout"}))
	require.NoError(t, store.RecordPage(PageRecord{RunID: runID, PageNumber: 1, Status: StatusFetched}))
	require.NoError(t, store.RecordPage(PageRecord{RunID: runID, PageNumber: 2, Status: StatusFetched}))

	pages, err := store.ListPages(runID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, StatusFetched, pages[1].Status, "later record replaces earlier one")

	items := []ItemRecord{
		{RunID: runID, PageNumber: 1, ImageID: "1", Server: "10", FileType: "jpg", Path: "Mountains/1.jpg", Status: StatusDownloaded, Bytes: 100},
		{RunID: runID, PageNumber: 1, ImageID: "2", Server: "10", FileType: "jpg", Path: "Mountains/2.jpg", Status: StatusSkipped, Error: "exists"},
		{RunID: runID, PageNumber: 2, ImageID: "3", Server: "10", FileType: "png", Path: "Mountains/3.png", Status: StatusDownloaded, Bytes: 50},
	}
	for _, rec := range items {
		require.NoError(t, store.RecordItem(rec))
	}

	counts, err := store.CountItems(runID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{StatusDownloaded: 2, StatusSkipped: 1}, counts)

	other, err := store.CountItems(runID + 1)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	store, err := NewStorage(path)
	require.NoError(t, err)
	runID, err := store.StartRun("http://x.test/g?", "Mountains", 1, "Mountains")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStorage(path)
	require.NoError(t, err)
	defer reopened.Close()

	run, err := reopened.LastRun("http://x.test/g?")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, runID, run.RunID)
	assert.Equal(t, "Mountains", run.Title)
}
