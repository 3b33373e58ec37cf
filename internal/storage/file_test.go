package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecorder(t *testing.T) (*FileRecorder, string) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "logs", "interactions.jsonl")
	rec, err := NewFileRecorder(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })
	return rec, p
}

func TestFileRecorderKeepsOrderAndTimestamps(t *testing.T) {
	rec, _ := newRecorder(t)

	first := Event{Timestamp: time.Unix(1, 0).UTC(), SessionID: "a", Transport: "web", UserMessage: "hi there", AssistantResponse: "Hello!", Topic: "greeting"}
	second := Event{Timestamp: time.Unix(2, 0).UTC(), SessionID: "b", Transport: "telegram", UserMessage: "skills", AssistantResponse: "Core Skills", Topic: "skills"}
	require.NoError(t, rec.AppendInteraction(first))
	require.NoError(t, rec.AppendInteraction(second))

	events, err := rec.LoadInteractions()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].SessionID)
	assert.Equal(t, "telegram", events[1].Transport)
	assert.True(t, events[0].Timestamp.Equal(first.Timestamp))
}

func TestFileRecorderSkipsTornLines(t *testing.T) {
	rec, p := newRecorder(t)
	require.NoError(t, rec.AppendInteraction(Event{SessionID: "ok", UserMessage: "x"}))

	f, err := os.OpenFile(p, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{\"session_id\":\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, rec.AppendInteraction(Event{SessionID: "after", UserMessage: "y"}))

	events, err := rec.LoadInteractions()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ok", events[0].SessionID)
	assert.Equal(t, "after", events[1].SessionID)
}

func TestScanInteractionsStopsEarly(t *testing.T) {
	rec, _ := newRecorder(t)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, rec.AppendInteraction(Event{SessionID: id}))
	}
	var seen []string
	require.NoError(t, rec.ScanInteractions(func(ev Event) bool {
		seen = append(seen, ev.SessionID)
		return len(seen) < 2
	}))
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestFileRecorderReopenAppends(t *testing.T) {
	rec, p := newRecorder(t)
	require.NoError(t, rec.AppendInteraction(Event{SessionID: "before"}))
	require.NoError(t, rec.Close())
	require.Error(t, rec.AppendInteraction(Event{SessionID: "closed"}))

	again, err := NewFileRecorder(p)
	require.NoError(t, err)
	defer again.Close()
	require.NoError(t, again.AppendInteraction(Event{SessionID: "after"}))

	events, err := again.LoadInteractions()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "after", events[1].SessionID)
}
