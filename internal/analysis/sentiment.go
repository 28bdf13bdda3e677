package analysis

import (
	"context"
	"strings"

	"github.com/meetsense/coachd/internal/models"
)

// sentimentWindow caps how many trailing fragments feed one NLP call.
const sentimentWindow = 10

// SentimentSource is the external deep-analysis boundary. Calls must be
// timeout-bounded by the implementation.
type SentimentSource interface {
	AnalyzeSentiment(ctx context.Context, text string) (*models.SentimentResult, error)
}

type Sentiment struct {
	source SentimentSource
}

func NewSentiment(source SentimentSource) *Sentiment {
	return &Sentiment{source: source}
}

func (a *Sentiment) Name() string { return NameSentiment }

// Analyze sends the trailing window's text to the NLP collaborator. Any
// failure there is returned as-is; the dispatcher logs it and the pass
// simply produces no sentiment event.
func (a *Sentiment) Analyze(ctx context.Context, snap Snapshot) ([]models.Event, error) {
	if len(snap.Fragments) == 0 {
		return nil, nil
	}

	frags := snap.Fragments
	if len(frags) > sentimentWindow {
		frags = frags[len(frags)-sentimentWindow:]
	}
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		parts = append(parts, f.Text)
	}

	result, err := a.source.AnalyzeSentiment(ctx, strings.Join(parts, " "))
	if err != nil {
		return nil, err
	}
	return []models.Event{{Type: models.EventSentiment, Payload: result}}, nil
}
