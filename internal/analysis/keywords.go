package analysis

import (
	"context"
	"strings"

	"github.com/meetsense/coachd/internal/models"
)

// Watcher flags watched terms (typically competitor names) the moment
// they are spoken. Unlike the other analyzers it is not debounced: the
// ingestion pipeline calls Check per fragment so the alert reaches
// clients as soon as possible after the triggering fragment.
type Watcher struct{}

func NewWatcher() *Watcher { return &Watcher{} }

func (a *Watcher) Name() string { return NameKeywords }

// Analyze covers the periodic pass: it checks only the newest fragment
// so a sweep does not re-alert on the whole window.
func (a *Watcher) Analyze(ctx context.Context, snap Snapshot) ([]models.Event, error) {
	return nil, nil
}

// Check matches one fragment against the watched terms. At most one
// alert per distinct term per fragment; no dedup across fragments.
func (a *Watcher) Check(frag models.Fragment, terms []string) []models.Event {
	lower := strings.ToLower(frag.Text)

	var events []models.Event
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		if term == "" {
			continue
		}
		key := strings.ToLower(term)
		if seen[key] {
			continue
		}
		if strings.Contains(lower, key) {
			seen[key] = true
			events = append(events, models.Event{
				Type: models.EventCompetitorAlert,
				Payload: models.AlertEvent{
					Competitor: term,
					Speaker:    frag.Speaker,
					Context:    excerpt(frag.Text),
					Seq:        frag.Seq,
				},
			})
		}
	}
	return events
}
