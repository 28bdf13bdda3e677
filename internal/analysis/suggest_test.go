package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/meetsense/coachd/internal/models"
	"github.com/meetsense/coachd/internal/store"
)

type stubQuestions struct {
	questions []string
	err       error
	called    bool
}

func (s *stubQuestions) SuggestQuestions(ctx context.Context, sessionID string, recent []string) ([]string, error) {
	s.called = true
	return s.questions, s.err
}

func newSuggestStore(t *testing.T) store.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return store.NewRedis(rdb, 50)
}

func TestSuggester_EmitsEvent(t *testing.T) {
	st := newSuggestStore(t)
	ctx := context.Background()
	frag := models.Fragment{Text: "tell me about pricing", Speaker: "prospect", Seq: 1}
	if err := st.PushFragment(ctx, "s1", frag); err != nil {
		t.Fatal(err)
	}

	src := &stubQuestions{questions: []string{"What is your timeline?"}}
	col := &eventCollector{}
	NewSuggester(st, src, col.sink, nil).Run(ctx, "s1")

	events, _ := col.snapshot()
	if len(events) != 1 || events[0].Type != models.EventSuggestedQuestions {
		t.Fatalf("events = %v", events)
	}
}

func TestSuggester_EmptyWindowSkipsCall(t *testing.T) {
	st := newSuggestStore(t)
	src := &stubQuestions{questions: []string{"q?"}}
	col := &eventCollector{}

	NewSuggester(st, src, col.sink, nil).Run(context.Background(), "s1")

	if src.called {
		t.Error("source called for empty window")
	}
	if events, _ := col.snapshot(); len(events) != 0 {
		t.Errorf("events = %v, want none", events)
	}
}

func TestSuggester_UnavailableSourceProducesNothing(t *testing.T) {
	st := newSuggestStore(t)
	ctx := context.Background()
	if err := st.PushFragment(ctx, "s1", models.Fragment{Text: "hi", Speaker: "a", Seq: 1}); err != nil {
		t.Fatal(err)
	}

	src := &stubQuestions{err: errors.New("nlp: service unavailable")}
	col := &eventCollector{}
	NewSuggester(st, src, col.sink, nil).Run(ctx, "s1")

	if events, _ := col.snapshot(); len(events) != 0 {
		t.Errorf("events = %v, want none", events)
	}
}
