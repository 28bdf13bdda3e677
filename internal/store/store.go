// Package store is the externalized per-session state backend. All
// mutation happens through atomic per-key operations so concurrent
// ingestion from multiple connections never loses updates, and the
// state survives engine restarts because it lives outside the process.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/meetsense/coachd/internal/models"
)

// ErrNotFound is returned when no session exists for the given key or ID.
var ErrNotFound = errors.New("store: session not found")

// Store is the session state backend consumed by the lifecycle manager,
// the ingestion pipeline (writer) and the analyzers (readers).
type Store interface {
	// CreateSession atomically claims the (meetingID, orgID) identity.
	// Exactly one concurrent caller wins; losers get created=false and
	// the session that won.
	CreateSession(ctx context.Context, sess *models.Session) (created bool, existing *models.Session, err error)

	SessionByMeeting(ctx context.Context, meetingID, orgID string) (*models.Session, error)
	SessionByID(ctx context.Context, sessionID string) (*models.Session, error)

	// DeleteSession removes the session record and all derived state.
	DeleteSession(ctx context.Context, sess *models.Session) error

	// NextSeq returns the next arrival-order number for the session.
	// The counter is cumulative: it keeps growing after old fragments
	// fall out of the trailing window.
	NextSeq(ctx context.Context, sessionID string) (int64, error)

	// PushFragment appends one fragment; the trailing window is trimmed
	// to the configured size, most recent first.
	PushFragment(ctx context.Context, sessionID string, frag models.Fragment) error

	// Window returns the trailing fragment window, most recent first.
	// Readers must order by timestamp, not list position.
	Window(ctx context.Context, sessionID string) ([]models.Fragment, error)

	// AddTalkTime atomically accumulates speaking seconds for a speaker.
	AddTalkTime(ctx context.Context, sessionID, speaker string, seconds float64) error

	Ledger(ctx context.Context, sessionID string) (models.Ledger, error)

	// IncrConnections adjusts the live connection count and returns the
	// new value.
	IncrConnections(ctx context.Context, sessionID string, delta int64) (int64, error)

	// Touch refreshes the TTL on every key belonging to the session.
	Touch(ctx context.Context, sessionID string, ttl time.Duration) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
