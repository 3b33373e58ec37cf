package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-assistant/internal/storage"
)

func TestTrackerHelpers(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(ctx, storage.NewMemoryKV())
	tr.now = func() time.Time { return time.UnixMilli(1700000000000) }

	_, err := tr.TrackPageView(ctx, "home")
	require.NoError(t, err)
	_, err = tr.TrackContactForm(ctx)
	require.NoError(t, err)
	_, err = tr.TrackProjectView(ctx, "Wine Quality")
	require.NoError(t, err)
	_, err = tr.TrackResumeDownload(ctx)
	require.NoError(t, err)
	ev, err := tr.TrackGameScore(ctx, "s1", 120)
	require.NoError(t, err)
	_, err = tr.TrackAchievement(ctx, "s1", "High Scorer")
	require.NoError(t, err)

	assert.Equal(t, 6, tr.Count())
	require.NotNil(t, ev.Value)
	assert.Equal(t, 120, *ev.Value)
	assert.Equal(t, int64(1700000000000), ev.Timestamp)

	events := tr.Events()
	assert.Equal(t, "page_view", events[0].Event)
	assert.Equal(t, "navigation", events[0].Category)
	assert.Equal(t, "contact_form_submit", events[1].Action)
	assert.Equal(t, "Wine Quality", events[2].Label)
	assert.Equal(t, "resume", events[3].Label)
	assert.Equal(t, "score_achieved", events[4].Action)
	assert.Equal(t, "achievement_unlocked", events[5].Event)
}

func TestTrackValidates(t *testing.T) {
	tr := NewTracker(context.Background(), nil)
	_, err := tr.Track(context.Background(), Event{Category: "x", Action: "y"})
	require.Error(t, err)
	assert.Equal(t, 0, tr.Count())
}

func TestTrackKeepsExplicitTimestamp(t *testing.T) {
	tr := NewTracker(context.Background(), nil)
	ev, err := tr.Track(context.Background(), Event{Event: "e", Category: "c", Action: "a", Timestamp: 42})
	require.NoError(t, err)
	assert.Equal(t, int64(42), ev.Timestamp)
}

func TestTrackerPersistsAndClears(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	tr := NewTracker(ctx, kv)
	_, err := tr.TrackPageView(ctx, "about")
	require.NoError(t, err)

	reloaded := NewTracker(ctx, kv)
	require.Equal(t, 1, reloaded.Count())
	assert.Equal(t, "about", reloaded.Events()[0].Label)

	require.NoError(t, reloaded.Clear(ctx))
	assert.Equal(t, 0, reloaded.Count())
	assert.Equal(t, 0, NewTracker(ctx, kv).Count())
}

func TestTrackerIgnoresCorruptHistory(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, eventsKey, []byte("{not json")))

	tr := NewTracker(ctx, kv)
	assert.Equal(t, 0, tr.Count())
}

func TestTrackerBoundsHistory(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(ctx, nil)
	for i := 0; i < MaxEvents+10; i++ {
		_, err := tr.Track(ctx, Event{Event: "e", Category: "c", Action: "a", Timestamp: int64(i + 1)})
		require.NoError(t, err)
	}
	events := tr.Events()
	require.Len(t, events, MaxEvents)
	assert.Equal(t, int64(11), events[0].Timestamp)
}
