package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meetsense/coachd/internal/models"
	"github.com/meetsense/coachd/internal/store"
)

// Sink receives the joined analyzer output for one pass.
type Sink func(sessionID string, events []models.Event)

// Dispatcher runs every enabled analyzer concurrently against a session
// snapshot. Signals are debounced per session so a burst of fragments
// collapses into one pass.
type Dispatcher struct {
	store     store.Store
	analyzers []Analyzer
	debounce  time.Duration
	sink      Sink
	log       *logrus.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewDispatcher(st store.Store, analyzers []Analyzer, debounce time.Duration, sink Sink, log *logrus.Logger) *Dispatcher {
	if debounce <= 0 {
		debounce = 75 * time.Millisecond
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{
		store:     st,
		analyzers: analyzers,
		debounce:  debounce,
		sink:      sink,
		log:       log,
		pending:   make(map[string]*time.Timer),
	}
}

// Signal requests an analysis pass for the session. Repeated signals
// inside the debounce interval reset the timer; the pass runs once per
// burst. Fire-and-forget for the caller.
func (d *Dispatcher) Signal(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if timer, ok := d.pending[sessionID]; ok {
		timer.Reset(d.debounce)
		return
	}
	d.pending[sessionID] = time.AfterFunc(d.debounce, func() {
		d.mu.Lock()
		delete(d.pending, sessionID)
		d.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		d.Run(ctx, sessionID)
	})
}

// Stop cancels all pending passes.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, timer := range d.pending {
		timer.Stop()
		delete(d.pending, id)
	}
}

// Run executes one analysis pass immediately. Used by the debounce
// timer, the periodic sweep, and directly in tests.
func (d *Dispatcher) Run(ctx context.Context, sessionID string) {
	snap, err := d.snapshot(ctx, sessionID)
	if err != nil {
		if err != store.ErrNotFound {
			d.log.WithError(err).WithField("session", sessionID).Warn("snapshot failed")
		}
		return
	}

	events := d.runAnalyzers(ctx, snap)
	if len(events) > 0 && d.sink != nil {
		d.sink(sessionID, events)
	}
}

func (d *Dispatcher) snapshot(ctx context.Context, sessionID string) (Snapshot, error) {
	sess, err := d.store.SessionByID(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	frags, err := d.store.Window(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	ledger, err := d.store.Ledger(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(sessionID, frags, ledger, sess.Config), nil
}

// runAnalyzers launches every enabled analyzer together and joins their
// results. One analyzer failing or panicking never suppresses the
// others' output.
func (d *Dispatcher) runAnalyzers(ctx context.Context, snap Snapshot) []models.Event {
	results := make([][]models.Event, len(d.analyzers))
	var wg sync.WaitGroup
	for i, a := range d.analyzers {
		if !snap.Config.AnalyzerEnabled(a.Name()) {
			continue
		}
		wg.Add(1)
		go func(i int, a Analyzer) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					d.log.WithFields(logrus.Fields{
						"session":  snap.SessionID,
						"analyzer": a.Name(),
						"panic":    r,
					}).Error("analyzer panicked")
				}
			}()
			events, err := a.Analyze(ctx, snap)
			if err != nil {
				d.log.WithError(err).WithFields(logrus.Fields{
					"session":  snap.SessionID,
					"analyzer": a.Name(),
				}).Warn("analyzer failed")
				return
			}
			results[i] = events
		}(i, a)
	}
	wg.Wait()

	var joined []models.Event
	for _, events := range results {
		joined = append(joined, events...)
	}
	return joined
}
