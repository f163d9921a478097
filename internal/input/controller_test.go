package input

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docchat/internal/query"
	"docchat/internal/transcript"
)

type blockingAsker struct {
	release chan string
}

func (b *blockingAsker) Ask(ctx context.Context, _ string) (string, error) {
	select {
	case a := <-b.release:
		return a, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type countingSubmitter struct {
	calls []string
}

func (s *countingSubmitter) Submit(_ context.Context, q string) (<-chan query.Result, bool) {
	s.calls = append(s.calls, q)
	ch := make(chan query.Result, 1)
	ch <- query.Result{Question: q, Answer: "ok"}
	return ch, true
}

func TestEnterSubmitsOnceAndClearsDraftImmediately(t *testing.T) {
	store := transcript.NewStore()
	asker := &blockingAsker{release: make(chan string, 1)}
	session := query.NewSession()
	coord := query.NewCoordinator(store, session, asker, time.Minute)
	c := NewController(context.Background(), session, coord)

	c.OnDraftChange("hello there")
	res := c.OnKeyEvent(KeyEnter, false)
	require.True(t, res.Suppress)
	require.NotNil(t, res.Pending)
	require.Equal(t, "", c.Draft(), "draft must clear before the backend answers")
	require.True(t, c.Busy())
	require.Equal(t, 1, store.Len())

	// a second Enter while in flight does nothing
	c.OnDraftChange("follow up")
	again := c.OnKeyEvent(KeyEnter, false)
	require.True(t, again.Suppress)
	require.Nil(t, again.Pending)
	require.Equal(t, "follow up", c.Draft())

	asker.release <- "answer"
	select {
	case r := <-res.Pending:
		require.True(t, r.OK())
	case <-time.After(2 * time.Second):
		t.Fatalf("submission did not settle")
	}
	require.Equal(t, 2, store.Len())
	require.False(t, c.Busy())
}

func TestShiftEnterNeverSubmits(t *testing.T) {
	sub := &countingSubmitter{}
	c := NewController(context.Background(), query.NewSession(), sub)
	for _, draft := range []string{"", "text", "multi\nline"} {
		c.OnDraftChange(draft)
		res := c.OnKeyEvent(KeyEnter, true)
		require.False(t, res.Suppress)
		require.Nil(t, res.Pending)
		require.Equal(t, draft, c.Draft())
	}
	require.Empty(t, sub.calls)
}

func TestOtherKeysIgnored(t *testing.T) {
	sub := &countingSubmitter{}
	c := NewController(context.Background(), query.NewSession(), sub)
	c.OnDraftChange("abc")
	res := c.OnKeyEvent(KeyOther, false)
	require.False(t, res.Suppress)
	require.Empty(t, sub.calls)
}

func TestEnterSubmitsDraftVerbatim(t *testing.T) {
	sub := &countingSubmitter{}
	c := NewController(context.Background(), query.NewSession(), sub)
	c.OnDraftChange("  spaced question \n")
	c.OnKeyEvent(KeyEnter, false)
	require.Equal(t, []string{"  spaced question \n"}, sub.calls)
}

func TestEnterOnEmptyDraftSuppressesWithoutSubmitting(t *testing.T) {
	store := transcript.NewStore()
	session := query.NewSession()
	coord := query.NewCoordinator(store, session, &blockingAsker{release: make(chan string)}, time.Minute)
	c := NewController(context.Background(), session, coord)
	c.OnDraftChange("   ")
	res := c.OnKeyEvent(KeyEnter, false)
	require.True(t, res.Suppress)
	require.Nil(t, res.Pending)
	require.Equal(t, 0, store.Len())
	require.False(t, c.Busy())
}
