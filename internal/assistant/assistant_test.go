package assistant

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-assistant/internal/history"
	"portfolio-assistant/internal/responder"
	"portfolio-assistant/internal/storage"
)

type memRecorder struct {
	mu     sync.Mutex
	events []storage.Event
}

func (r *memRecorder) AppendInteraction(e storage.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *memRecorder) LoadInteractions() ([]storage.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]storage.Event(nil), r.events...), nil
}

func newService(t *testing.T, welcome bool) (*Service, *memRecorder) {
	t.Helper()
	sel := responder.NewSelector(responder.DefaultTable())
	var opts []history.Option
	if welcome {
		opts = append(opts, history.WithWelcome(WelcomeReply(sel)))
	}
	rec := &memRecorder{}
	return New(sel, history.NewManager(storage.NewMemoryKV(), opts...), rec), rec
}

func TestAskRejectsBlank(t *testing.T) {
	svc, rec := newService(t, true)
	ctx := context.Background()

	_, err := svc.Ask(ctx, "s", "   \n")
	require.ErrorIs(t, err, ErrEmptyUtterance)
	assert.Len(t, svc.History(ctx, "s"), 1)
	assert.Empty(t, rec.events)
}

func TestAskAppendsExactlyOneReply(t *testing.T) {
	svc, rec := newService(t, true)
	ctx := WithTransport(context.Background(), TransportWeb)

	turn, err := svc.Ask(ctx, "s", "  Tell me about your experience ")
	require.NoError(t, err)
	assert.Equal(t, "experience", turn.Topic)
	assert.Equal(t, "Tell me about your experience", turn.User.Body)
	assert.Equal(t, history.SenderUser, turn.User.Sender)
	assert.Equal(t, history.SenderAgent, turn.Reply.Sender)
	assert.Contains(t, turn.Reply.Body, "Professional Journey")
	assert.Contains(t, turn.Reply.FollowUps, responder.LabelSkillsTech)
	assert.Contains(t, turn.Reply.FollowUps, responder.LabelContact)

	all := svc.History(ctx, "s")
	require.Len(t, all, 3)
	assert.Equal(t, turn.User.ID, all[1].ID)
	assert.Equal(t, turn.Reply.ID, all[2].ID)

	stats := svc.Stats(ctx, "s")
	assert.Equal(t, 3, stats.TotalMessages)
	assert.Equal(t, 1, stats.UserMessages)
	assert.Equal(t, 2, stats.AgentMessages)

	require.Len(t, rec.events, 1)
	assert.Equal(t, "web", rec.events[0].Transport)
	assert.Equal(t, "experience", rec.events[0].Topic)
	assert.Equal(t, "s", rec.events[0].SessionID)
}

func TestAskUsesConversationContext(t *testing.T) {
	svc, _ := newService(t, false)
	ctx := context.Background()

	turn, err := svc.Ask(ctx, "skills", "banana smoothie")
	require.NoError(t, err)
	assert.Equal(t, responder.TopicDefault, turn.Topic)

	_, err = svc.Ask(ctx, "skills", "which programming languages?")
	require.NoError(t, err)
	turn, err = svc.Ask(ctx, "skills", "banana smoothie")
	require.NoError(t, err)
	assert.Equal(t, "context/skills", turn.Topic)

	_, err = svc.Ask(ctx, "exp", "do you have a job")
	require.NoError(t, err)
	turn, err = svc.Ask(ctx, "exp", "banana smoothie")
	require.NoError(t, err)
	assert.Equal(t, "context/experience", turn.Topic)
}

func TestWelcomeCountsAsContext(t *testing.T) {
	svc, _ := newService(t, true)
	turn, err := svc.Ask(context.Background(), "s", "banana smoothie")
	require.NoError(t, err)
	// the welcome mentions skills
	assert.Equal(t, "context/skills", turn.Topic)
}

func TestResetAndReact(t *testing.T) {
	svc, _ := newService(t, true)
	ctx := context.Background()

	turn, err := svc.Ask(ctx, "s", "skills")
	require.NoError(t, err)

	ex, err := svc.React(ctx, "s", turn.Reply.ID, history.ReactionLiked)
	require.NoError(t, err)
	assert.True(t, ex.Reactions.Liked)

	_, err = svc.React(ctx, "s", "nope", history.ReactionLiked)
	require.ErrorIs(t, err, history.ErrUnknownExchange)

	left := svc.Reset(ctx, "s")
	require.Len(t, left, 1)
	assert.Equal(t, history.SenderAgent, left[0].Sender)
	assert.Equal(t, 1, svc.Stats(ctx, "s").TotalMessages)
}

func TestConcurrentAsksKeepPairs(t *testing.T) {
	svc, rec := newService(t, true)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Ask(ctx, "s", fmt.Sprintf("question %d about skills", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all := svc.History(ctx, "s")
	require.Len(t, all, 41)
	for i := 1; i < len(all); i += 2 {
		assert.Equal(t, history.SenderUser, all[i].Sender)
		assert.Equal(t, history.SenderAgent, all[i+1].Sender)
	}
	stats := svc.Stats(ctx, "s")
	assert.Equal(t, 20, stats.UserMessages)
	assert.Equal(t, 21, stats.AgentMessages)

	events, err := svc.Interactions()
	require.NoError(t, err)
	assert.Len(t, events, 20)
	assert.Len(t, rec.events, 20)
}

func TestTypingDelay(t *testing.T) {
	for seed := int64(0); seed < 200; seed++ {
		d := TypingDelay(seed)
		assert.GreaterOrEqual(t, d, MinTypingDelay)
		assert.Less(t, d, MaxTypingDelay)
	}
	assert.Equal(t, TypingDelay(42), TypingDelay(42))
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	require.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTransportDefaults(t *testing.T) {
	assert.Equal(t, "unknown", transportFrom(context.Background()))
	assert.Equal(t, TransportTelegram, transportFrom(WithTransport(context.Background(), TransportTelegram)))
}

func TestReportFailureDoesNotPanic(t *testing.T) {
	ReportFailure(&responder.SelectionFailure{Cause: fmt.Errorf("boom")})
}
