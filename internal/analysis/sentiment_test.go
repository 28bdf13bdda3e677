package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/meetsense/coachd/internal/models"
)

type stubSource struct {
	got    string
	result *models.SentimentResult
	err    error
}

func (s *stubSource) AnalyzeSentiment(ctx context.Context, text string) (*models.SentimentResult, error) {
	s.got = text
	return s.result, s.err
}

func TestSentiment_Analyze(t *testing.T) {
	src := &stubSource{result: &models.SentimentResult{Score: 0.5, Label: "positive", Confidence: 0.8}}
	a := NewSentiment(src)

	snap := NewSnapshot("s1", frags("alice", "this is going well", "very happy"), nil, models.SessionConfig{})
	events, err := a.Analyze(context.Background(), snap)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(events) != 1 || events[0].Type != models.EventSentiment {
		t.Fatalf("events = %v", events)
	}
	if !strings.Contains(src.got, "this is going well") {
		t.Errorf("source text = %q", src.got)
	}
}

func TestSentiment_WindowCapped(t *testing.T) {
	src := &stubSource{result: &models.SentimentResult{}}
	a := NewSentiment(src)

	texts := make([]string, 15)
	for i := range texts {
		texts[i] = "line"
	}
	texts[0] = "oldest"
	snap := NewSnapshot("s1", frags("alice", texts...), nil, models.SessionConfig{})
	if _, err := a.Analyze(context.Background(), snap); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(src.got, "oldest") {
		t.Error("oldest fragment should fall outside the sentiment window")
	}
}

func TestSentiment_SourceFailurePropagates(t *testing.T) {
	src := &stubSource{err: errors.New("nlp: service unavailable")}
	a := NewSentiment(src)

	snap := NewSnapshot("s1", frags("alice", "hello"), nil, models.SessionConfig{})
	if _, err := a.Analyze(context.Background(), snap); err == nil {
		t.Fatal("expected error from failing source")
	}
}

func TestSentiment_EmptyWindowNoCall(t *testing.T) {
	src := &stubSource{result: &models.SentimentResult{}}
	a := NewSentiment(src)

	events, err := a.Analyze(context.Background(), NewSnapshot("s1", nil, nil, models.SessionConfig{}))
	if err != nil || events != nil {
		t.Errorf("events=%v err=%v, want nil/nil", events, err)
	}
	if src.got != "" {
		t.Error("source should not be called for an empty window")
	}
}
