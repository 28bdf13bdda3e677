package analysis

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/meetsense/coachd/internal/models"
)

// interrogativeLeads qualify a fragment as a question even without a
// question mark.
var interrogativeLeads = map[string]bool{
	"who": true, "what": true, "when": true, "where": true, "why": true,
	"how": true, "which": true, "can": true, "could": true, "would": true,
	"should": true, "do": true, "does": true, "did": true, "is": true,
	"are": true, "will": true,
}

type Patterns struct{}

func NewPatterns() *Patterns { return &Patterns{} }

func (a *Patterns) Name() string { return NamePatterns }

func (a *Patterns) Analyze(ctx context.Context, snap Snapshot) ([]models.Event, error) {
	events := Detect(snap.Fragments, snap.Config)
	out := make([]models.Event, 0, len(events))
	for _, pe := range events {
		out = append(out, models.Event{Type: models.EventPattern, Payload: pe})
	}
	return out, nil
}

// Detect scans a timestamp-ordered window for questions, objections and
// monologues. Re-running over the same window yields the same set.
func Detect(frags []models.Fragment, cfg models.SessionConfig) []models.PatternEvent {
	threshold := cfg.MonologueThreshold
	if threshold < 2 {
		threshold = 7
	}
	now := time.Now().UTC()

	var events []models.PatternEvent
	for _, f := range frags {
		if isQuestion(f.Text) {
			events = append(events, models.PatternEvent{
				Kind:       models.PatternQuestion,
				Speaker:    f.Speaker,
				FirstSeq:   f.Seq,
				LastSeq:    f.Seq,
				Excerpt:    excerpt(f.Text),
				DetectedAt: now,
			})
		}
		if kw := matchAny(f.Text, cfg.ObjectionKeywords); kw != "" {
			events = append(events, models.PatternEvent{
				Kind:       models.PatternObjection,
				Speaker:    f.Speaker,
				FirstSeq:   f.Seq,
				LastSeq:    f.Seq,
				Excerpt:    excerpt(f.Text),
				DetectedAt: now,
			})
		}
	}

	events = append(events, monologues(frags, threshold, now)...)
	return events
}

func isQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if strings.Contains(trimmed, "?") {
		return true
	}
	first := strings.ToLower(strings.Fields(trimmed)[0])
	first = strings.Trim(first, ",.;:!")
	return interrogativeLeads[first]
}

// matchAny returns the first term found in text, case-insensitive.
func matchAny(text string, terms []string) string {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			return term
		}
	}
	return ""
}

// monologues finds runs of >= threshold consecutive fragments from one
// speaker, emitting one event per run.
func monologues(frags []models.Fragment, threshold int, now time.Time) []models.PatternEvent {
	var events []models.PatternEvent
	var runStart int
	for i := 1; i <= len(frags); i++ {
		if i < len(frags) && frags[i].Speaker == frags[runStart].Speaker {
			continue
		}
		if i-runStart >= threshold {
			events = append(events, models.PatternEvent{
				Kind:       models.PatternMonologue,
				Speaker:    frags[runStart].Speaker,
				FirstSeq:   frags[runStart].Seq,
				LastSeq:    frags[i-1].Seq,
				DetectedAt: now,
			})
		}
		runStart = i
	}
	return events
}

func excerpt(text string) string {
	const max = 120
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= max {
		return trimmed
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
		cut--
	}
	return trimmed[:cut] + "…"
}
