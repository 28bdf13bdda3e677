package analysis

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/meetsense/coachd/internal/models"
	"github.com/meetsense/coachd/internal/store"
)

// QuestionSource produces follow-up question suggestions from recent
// conversation context. Backed by the external NLP collaborator.
type QuestionSource interface {
	SuggestQuestions(ctx context.Context, sessionID string, recent []string) ([]string, error)
}

// Suggester fetches follow-up questions on the periodic sweep rather
// than per fragment; the NLP backend is too slow for the ingest path.
type Suggester struct {
	store  store.Store
	source QuestionSource
	sink   Sink
	log    *logrus.Logger
}

func NewSuggester(st store.Store, source QuestionSource, sink Sink, log *logrus.Logger) *Suggester {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Suggester{store: st, source: source, sink: sink, log: log}
}

// Run emits one suggested_questions event for the session, or nothing
// when the collaborator is unavailable or the window is empty.
func (s *Suggester) Run(ctx context.Context, sessionID string) {
	frags, err := s.store.Window(ctx, sessionID)
	if err != nil || len(frags) == 0 {
		return
	}
	recent := make([]string, 0, len(frags))
	for _, f := range frags {
		recent = append(recent, f.Text)
	}

	questions, err := s.source.SuggestQuestions(ctx, sessionID, recent)
	if err != nil {
		s.log.WithError(err).WithField("session", sessionID).Debug("suggestions unavailable")
		return
	}
	if len(questions) == 0 || s.sink == nil {
		return
	}
	s.sink(sessionID, []models.Event{{
		Type:    models.EventSuggestedQuestions,
		Payload: map[string]any{"questions": questions},
	}})
}
