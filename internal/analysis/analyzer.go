// Package analysis runs the per-session analyzers: talk-time balance,
// conversational patterns, watched keywords and delegated sentiment.
// Analyzers are pure over a read-only snapshot and never mutate session
// state; they return derived events for fan-out.
package analysis

import (
	"context"
	"sort"

	"github.com/meetsense/coachd/internal/models"
)

// Analyzer names used in session configuration.
const (
	NameTalkTime  = "talk_time"
	NamePatterns  = "patterns"
	NameKeywords  = "keywords"
	NameSentiment = "sentiment"
)

// Snapshot is the read-only view of session state handed to analyzers.
// Fragments are ordered by timestamp ascending regardless of how the
// store returned them.
type Snapshot struct {
	SessionID string
	Fragments []models.Fragment
	Ledger    models.Ledger
	Config    models.SessionConfig
}

// Analyzer is one analysis pass over a session snapshot.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, snap Snapshot) ([]models.Event, error)
}

// NewSnapshot sorts fragments by timestamp (arrival order breaks ties)
// and wraps them with the ledger and config.
func NewSnapshot(sessionID string, frags []models.Fragment, ledger models.Ledger, cfg models.SessionConfig) Snapshot {
	sorted := make([]models.Fragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp != sorted[j].Timestamp {
			return sorted[i].Timestamp < sorted[j].Timestamp
		}
		return sorted[i].Seq < sorted[j].Seq
	})
	return Snapshot{
		SessionID: sessionID,
		Fragments: sorted,
		Ledger:    ledger,
		Config:    cfg,
	}
}
