package game

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-assistant/internal/analytics"
	"portfolio-assistant/internal/storage"
)

type fakeTracker struct {
	mu           sync.Mutex
	scores       []int
	achievements []string
}

func (f *fakeTracker) TrackGameScore(_ context.Context, _ string, score int) (analytics.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores = append(f.scores, score)
	return analytics.Event{}, nil
}

func (f *fakeTracker) TrackAchievement(_ context.Context, _ string, name string) (analytics.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.achievements = append(f.achievements, name)
	return analytics.Event{}, nil
}

func TestFirstVisitOnNewSession(t *testing.T) {
	tr := &fakeTracker{}
	s := NewStore(nil, tr).Session(context.Background(), "s1")

	st := s.State()
	assert.Equal(t, 0, st.Score)
	assert.Equal(t, 1, st.Level)
	assert.Equal(t, []string{FirstVisit}, st.Achievements)
	assert.Empty(t, tr.achievements, "reading a session must not track anything")

	_, err := s.AddScore(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{FirstVisit, HighScorer}, tr.achievements)
}

func TestReadingSessionsDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	store := NewStore(kv, nil)

	for _, id := range []string{"visitor-1", "visitor-2", "visitor-3"} {
		assert.Equal(t, []string{FirstVisit}, store.Session(ctx, id).State().Achievements)
	}
	keys, err := kv.Keys(ctx, keyPrefix)
	require.NoError(t, err)
	assert.Empty(t, keys)

	store.Session(ctx, "visitor-2").ResetScore(ctx)
	keys, err = kv.Keys(ctx, keyPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{keyPrefix + "visitor-2"}, keys)
}

func TestSessionCacheIsBounded(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	store := NewStore(kv, nil, WithSessionLimit(2, 0))

	_, err := store.Session(ctx, "a").AddScore(ctx, 120)
	require.NoError(t, err)
	store.Session(ctx, "b")
	store.Session(ctx, "c")
	assert.Equal(t, 2, store.sessions.Len())

	// a was evicted and is reloaded from the store
	assert.Equal(t, 120, store.Session(ctx, "a").State().Score)
}

func TestAddScoreBounds(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, nil).Session(ctx, "s1")

	_, err := s.AddScore(ctx, MaxPointsPerAward+1)
	require.ErrorIs(t, err, ErrInvalidPoints)
	_, err = s.AddScore(ctx, math.MaxInt)
	require.ErrorIs(t, err, ErrInvalidPoints)
	assert.Equal(t, 0, s.State().Score)

	s.state.Score = MaxScore - 5
	up, err := s.AddScore(ctx, MaxPointsPerAward)
	require.NoError(t, err)
	assert.Equal(t, MaxScore, up.State.Score)
	assert.Equal(t, MaxScore, up.State.HighScore)
	assert.Equal(t, MaxScore/PointsPerLevel+1, up.State.Level)

	up, err = s.AddScore(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, MaxScore, up.State.Score)
}

func TestAddScoreLevelsAndHighScore(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, nil).Session(ctx, "s1")

	up, err := s.AddScore(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, up.State.Score)
	assert.Equal(t, 1, up.State.Level)
	assert.Equal(t, 50, up.State.HighScore)
	assert.Equal(t, []Event{{Kind: AchievementUnlocked, Achievement: HighScorer}}, up.Events)

	up, err = s.AddScore(ctx, 60)
	require.NoError(t, err)
	assert.Equal(t, 110, up.State.Score)
	assert.Equal(t, 2, up.State.Level)
	assert.Equal(t, []Event{{Kind: LevelUp, Level: 2}}, up.Events)
}

func TestLevelAchievements(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, nil).Session(ctx, "s1")

	up, err := s.AddScore(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, 11, up.State.Level)
	assert.Contains(t, up.State.Achievements, Level5)
	assert.Contains(t, up.State.Achievements, Level10)
	assert.NotContains(t, up.State.Achievements, Level25)
	assert.Equal(t, Event{Kind: LevelUp, Level: 11}, up.Events[len(up.Events)-1])

	up, err = s.AddScore(ctx, 1500)
	require.NoError(t, err)
	assert.Equal(t, 26, up.State.Level)
	assert.Contains(t, up.State.Achievements, Level25)
}

func TestAddScoreRejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, nil).Session(ctx, "s1")
	_, err := s.AddScore(ctx, 0)
	require.ErrorIs(t, err, ErrInvalidPoints)
	_, err = s.AddScore(ctx, -3)
	require.ErrorIs(t, err, ErrInvalidPoints)
	assert.Equal(t, 0, s.State().Score)
}

func TestResetScoreKeepsHighScoreAndAchievements(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, nil).Session(ctx, "s1")
	_, err := s.AddScore(ctx, 250)
	require.NoError(t, err)

	up := s.ResetScore(ctx)
	assert.Equal(t, 0, up.State.Score)
	assert.Equal(t, 1, up.State.Level)
	assert.Equal(t, 250, up.State.HighScore)
	assert.Contains(t, up.State.Achievements, HighScorer)
	assert.Empty(t, up.Events)

	// climbing back below the high score does not re-award it
	up, err = s.AddScore(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 250, up.State.HighScore)
	assert.Equal(t, []Event{{Kind: LevelUp, Level: 2}}, up.Events)
}

func TestUnlockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tr := &fakeTracker{}
	s := NewStore(nil, tr).Session(ctx, "s1")

	up := s.Unlock(ctx, "Explorer")
	assert.Equal(t, []Event{{Kind: AchievementUnlocked, Achievement: "Explorer"}}, up.Events)
	up = s.Unlock(ctx, "Explorer")
	assert.Empty(t, up.Events)

	assert.Equal(t, []string{FirstVisit, "Explorer"}, s.Achievements())
	assert.Equal(t, []string{FirstVisit, "Explorer"}, tr.achievements)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, nil).Session(ctx, "s1")

	var got []Event
	unsubscribe := s.Subscribe(func(e Event) { got = append(got, e) })

	_, err := s.AddScore(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, []Event{
		{Kind: AchievementUnlocked, Achievement: HighScorer},
		{Kind: LevelUp, Level: 2},
	}, got)

	unsubscribe()
	unsubscribe()
	_, err = s.AddScore(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTrackerSeesScores(t *testing.T) {
	ctx := context.Background()
	tr := &fakeTracker{}
	s := NewStore(nil, tr).Session(ctx, "s1")
	_, err := s.AddScore(ctx, 10)
	require.NoError(t, err)
	_, err = s.AddScore(ctx, 15)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 25}, tr.scores)
}

func TestStatePersists(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	s := NewStore(kv, nil).Session(ctx, "s1")
	_, err := s.AddScore(ctx, 120)
	require.NoError(t, err)

	reloaded := NewStore(kv, nil).Session(ctx, "s1").State()
	assert.Equal(t, 120, reloaded.Score)
	assert.Equal(t, 2, reloaded.Level)
	assert.Equal(t, 120, reloaded.HighScore)
	assert.Equal(t, []string{FirstVisit, HighScorer}, reloaded.Achievements)

	other := NewStore(kv, nil).Session(ctx, "s2").State()
	assert.Equal(t, 0, other.Score)
}

func TestCorruptStateStartsFresh(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, keyPrefix+"s1", []byte("garbage")))

	st := NewStore(kv, nil).Session(ctx, "s1").State()
	assert.Equal(t, 1, st.Level)
	assert.Equal(t, []string{FirstVisit}, st.Achievements)
}

func TestStateIsCopied(t *testing.T) {
	s := NewStore(nil, nil).Session(context.Background(), "s1")
	st := s.State()
	st.Achievements[0] = "mutated"
	assert.Equal(t, FirstVisit, s.Achievements()[0])
}
