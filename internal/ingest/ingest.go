// Package ingest validates and persists incoming transcript fragments
// and triggers the analysis passes that follow each append.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meetsense/coachd/internal/analysis"
	"github.com/meetsense/coachd/internal/models"
	"github.com/meetsense/coachd/internal/store"
)

// wordsPerSecond converts fragment text length to an estimated speaking
// duration when no explicit duration is supplied. 2.5 words/s is an
// average conversational pace (150 wpm).
const wordsPerSecond = 2.5

// Chunk is the validated payload of one transcript_chunk message.
type Chunk struct {
	Text      string  `json:"text"`
	Speaker   string  `json:"speaker"`
	Timestamp float64 `json:"timestamp"`
	Duration  float64 `json:"duration,omitempty"`
}

// Broadcaster delivers time-sensitive events to a session's connections
// without waiting for the debounced analysis pass.
type Broadcaster interface {
	Broadcast(sessionID string, event models.Event)
}

// Signaler requests a debounced analysis pass.
type Signaler interface {
	Signal(sessionID string)
}

type Pipeline struct {
	store      store.Store
	watcher    *analysis.Watcher
	dispatcher Signaler
	fanout     Broadcaster
	log        *logrus.Logger
}

func New(st store.Store, dispatcher Signaler, fanout Broadcaster, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		store:      st,
		watcher:    analysis.NewWatcher(),
		dispatcher: dispatcher,
		fanout:     fanout,
		log:        log,
	}
}

// Ingest appends one fragment to the session and kicks off analysis.
// A malformed chunk returns an error for logging; the caller keeps the
// connection open either way. Ingestion never blocks on analysis.
func (p *Pipeline) Ingest(ctx context.Context, sess *models.Session, chunk Chunk) error {
	if strings.TrimSpace(chunk.Text) == "" {
		return fmt.Errorf("ingest: text is required")
	}
	if strings.TrimSpace(chunk.Speaker) == "" {
		return fmt.Errorf("ingest: speaker is required")
	}
	if chunk.Duration < 0 {
		return fmt.Errorf("ingest: duration must be non-negative")
	}

	// A teardown may have raced this fragment; drop it rather than
	// resurrect keys for a dead session.
	if _, err := p.store.SessionByID(ctx, sess.ID); err == store.ErrNotFound {
		return fmt.Errorf("ingest: session %s no longer exists", sess.ID)
	} else if err != nil {
		return err
	}

	seq, err := p.store.NextSeq(ctx, sess.ID)
	if err != nil {
		return err
	}
	frag := models.Fragment{
		Text:       chunk.Text,
		Speaker:    chunk.Speaker,
		Timestamp:  chunk.Timestamp,
		Duration:   chunk.Duration,
		Seq:        seq,
		ReceivedAt: time.Now().UTC(),
	}
	if err := p.store.PushFragment(ctx, sess.ID, frag); err != nil {
		return err
	}
	if err := p.store.AddTalkTime(ctx, sess.ID, frag.Speaker, estimateDuration(chunk)); err != nil {
		return err
	}

	// Competitor alerts are time-sensitive, so they bypass the
	// debounced dispatcher entirely.
	if sess.Config.AnalyzerEnabled(analysis.NameKeywords) && p.fanout != nil {
		for _, event := range p.watcher.Check(frag, sess.Config.Competitors) {
			p.fanout.Broadcast(sess.ID, event)
		}
	}

	if p.dispatcher != nil {
		p.dispatcher.Signal(sess.ID)
	}

	p.log.WithFields(logrus.Fields{
		"session": sess.ID,
		"speaker": frag.Speaker,
		"seq":     seq,
	}).Debug("fragment ingested")
	return nil
}

// estimateDuration prefers the explicit duration field and otherwise
// derives one from word count at conversational pace.
func estimateDuration(chunk Chunk) float64 {
	if chunk.Duration > 0 {
		return chunk.Duration
	}
	words := len(strings.Fields(chunk.Text))
	return float64(words) / wordsPerSecond
}
