// Package session owns the lifecycle of live coaching sessions: who may
// exist, how many connections each has, and when state is torn down.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/meetsense/coachd/internal/models"
	"github.com/meetsense/coachd/internal/store"
)

// Health is the snapshot reported to the health-check endpoint.
type Health struct {
	StoreConnected   bool
	GatewayAccepting bool
	ActiveSessions   int
}

// ManagerOpts configures a Manager.
type ManagerOpts struct {
	Store          store.Store
	ConfigTemplate models.SessionConfig
	GraceWindow    time.Duration
	SessionTTL     time.Duration
	SweepSchedule  string
	// SweepHook runs for every locally active session on each sweep
	// tick, after its TTL refresh. Used for the periodic analysis pass.
	SweepHook func(sessionID string)
	Log       *logrus.Logger
}

// Manager is the single source of truth for session existence and live
// connection counts on this engine instance. Session state itself lives
// in the store so other instances see it too.
type Manager struct {
	store store.Store
	tmpl  models.SessionConfig
	grace time.Duration
	ttl   time.Duration
	log   *logrus.Logger

	mu        sync.Mutex
	active    map[string]*models.Session
	pending   map[string]*time.Timer
	accepting bool

	cron      *cron.Cron
	sweepHook func(sessionID string)
}

func NewManager(opts ManagerOpts) *Manager {
	if opts.GraceWindow <= 0 {
		opts.GraceWindow = 30 * time.Second
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 4 * time.Hour
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	m := &Manager{
		store:     opts.Store,
		tmpl:      opts.ConfigTemplate,
		grace:     opts.GraceWindow,
		ttl:       opts.SessionTTL,
		log:       opts.Log,
		active:    make(map[string]*models.Session),
		pending:   make(map[string]*time.Timer),
		sweepHook: opts.SweepHook,
	}
	if opts.SweepSchedule != "" {
		m.cron = cron.New()
		if _, err := m.cron.AddFunc(opts.SweepSchedule, m.sweep); err != nil {
			opts.Log.WithError(err).Warn("invalid sweep schedule, periodic sweep disabled")
			m.cron = nil
		}
	}
	return m
}

// Start launches the periodic sweep, if scheduled.
func (m *Manager) Start() {
	if m.cron != nil {
		m.cron.Start()
	}
}

// Stop halts the sweep and cancels pending teardowns.
func (m *Manager) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, timer := range m.pending {
		timer.Stop()
		delete(m.pending, id)
	}
}

// GetOrCreate resolves the session for a meeting, creating it if absent.
// Safe under concurrent first-connects: the store arbitrates and exactly
// one creation wins; every caller gets the winning session.
func (m *Manager) GetOrCreate(ctx context.Context, meetingID, orgID string) (*models.Session, error) {
	if meetingID == "" {
		return nil, fmt.Errorf("session: meetingID is required")
	}

	sess := &models.Session{
		ID:        newID(),
		MeetingID: meetingID,
		OrgID:     orgID,
		CreatedAt: time.Now().UTC(),
		Config:    m.tmpl,
	}
	created, winner, err := m.store.CreateSession(ctx, sess)
	if err != nil {
		return nil, err
	}
	if created {
		m.log.WithFields(logrus.Fields{
			"session": winner.ID,
			"meeting": meetingID,
			"org":     orgID,
		}).Info("session created")
	}
	return winner, nil
}

// Acquire registers a new live connection on the session and cancels any
// teardown scheduled during the grace window.
func (m *Manager) Acquire(ctx context.Context, sess *models.Session) (int64, error) {
	m.mu.Lock()
	if timer, ok := m.pending[sess.ID]; ok {
		timer.Stop()
		delete(m.pending, sess.ID)
		m.log.WithField("session", sess.ID).Debug("teardown cancelled by reconnect")
	}
	m.active[sess.ID] = sess
	m.mu.Unlock()

	n, err := m.store.IncrConnections(ctx, sess.ID, 1)
	if err != nil {
		return 0, err
	}
	if err := m.store.Touch(ctx, sess.ID, m.ttl); err != nil {
		m.log.WithError(err).WithField("session", sess.ID).Warn("ttl refresh failed")
	}
	return n, nil
}

// Release drops one live connection. When the count reaches zero the
// teardown is scheduled, not executed: a reconnect inside the grace
// window keeps the session alive.
func (m *Manager) Release(ctx context.Context, sessionID string) error {
	// An explicit end may have deleted the session already; decrementing
	// then would resurrect its meta hash with a negative count.
	if _, err := m.store.SessionByID(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.forget(sessionID)
			return nil
		}
		return err
	}
	n, err := m.store.IncrConnections(ctx, sessionID, -1)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pending[sessionID]; ok {
		return nil
	}
	m.pending[sessionID] = time.AfterFunc(m.grace, func() {
		m.teardownIfIdle(sessionID)
	})
	m.log.WithField("session", sessionID).Debug("teardown scheduled")
	return nil
}

// End tears the session down immediately on an explicit end-of-meeting
// signal, regardless of attached connections.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	if timer, ok := m.pending[sessionID]; ok {
		timer.Stop()
		delete(m.pending, sessionID)
	}
	sess, ok := m.active[sessionID]
	delete(m.active, sessionID)
	m.mu.Unlock()

	if !ok {
		var err error
		sess, err = m.store.SessionByID(ctx, sessionID)
		if err == store.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
	}
	if err := m.store.DeleteSession(ctx, sess); err != nil {
		return err
	}
	m.log.WithField("session", sessionID).Info("session ended")
	return nil
}

// forget clears local bookkeeping for a session that no longer exists
// in the store.
func (m *Manager) forget(sessionID string) {
	m.mu.Lock()
	if timer, ok := m.pending[sessionID]; ok {
		timer.Stop()
		delete(m.pending, sessionID)
	}
	delete(m.active, sessionID)
	m.mu.Unlock()
}

func (m *Manager) teardownIfIdle(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m.mu.Lock()
	delete(m.pending, sessionID)
	m.mu.Unlock()

	if _, err := m.store.SessionByID(ctx, sessionID); errors.Is(err, store.ErrNotFound) {
		m.forget(sessionID)
		return
	}

	// A connection may have arrived between scheduling and firing.
	n, err := m.store.IncrConnections(ctx, sessionID, 0)
	if err != nil {
		m.log.WithError(err).WithField("session", sessionID).Warn("teardown count check failed")
		return
	}
	if n > 0 {
		return
	}
	if err := m.End(ctx, sessionID); err != nil {
		m.log.WithError(err).WithField("session", sessionID).Warn("teardown failed")
	}
}

// Lookup returns the locally active session, if this instance has any
// connection attached to it.
func (m *Manager) Lookup(sessionID string) (*models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.active[sessionID]
	return sess, ok
}

// ActiveSessionCount reports how many sessions have live connections on
// this instance. O(1).
func (m *Manager) ActiveSessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// SetAccepting records whether the gateway listener is up.
func (m *Manager) SetAccepting(v bool) {
	m.mu.Lock()
	m.accepting = v
	m.mu.Unlock()
}

// Health reports store reachability, gateway listener state and the
// active session count.
func (m *Manager) Health(ctx context.Context) Health {
	h := Health{ActiveSessions: m.ActiveSessionCount()}
	m.mu.Lock()
	h.GatewayAccepting = m.accepting
	m.mu.Unlock()
	h.StoreConnected = m.store.Ping(ctx) == nil
	return h
}

// sweep refreshes TTLs for locally active sessions and runs the
// periodic analysis hook.
func (m *Manager) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m.mu.Lock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.store.Touch(ctx, id, m.ttl); err != nil {
			m.log.WithError(err).WithField("session", id).Warn("sweep ttl refresh failed")
		}
		if m.sweepHook != nil {
			m.sweepHook(id)
		}
	}
}

func newID() string {
	return ulid.Make().String()
}
