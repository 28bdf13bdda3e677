// Package gateway accepts authenticated coaching socket connections,
// bridges inbound messages to the ingestion pipeline and routes derived
// events back out to every connection on the session.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/meetsense/coachd/internal/auth"
	"github.com/meetsense/coachd/internal/ingest"
	"github.com/meetsense/coachd/internal/models"
	"github.com/meetsense/coachd/internal/session"
)

const ingestTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Conn binds one live transport to (session, user). It exists only for
// the lifetime of the transport; many Conns may share a session.
type Conn struct {
	id          string
	sessionID   string
	userID      string
	displayName string

	ws *websocket.Conn
	mu sync.Mutex
}

func (c *Conn) ID() string { return c.id }

// Send writes one event to the transport. The mutex serializes writes
// because fan-out and pong replies come from different goroutines.
func (c *Conn) Send(event models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(event)
}

type Gateway struct {
	verifier *auth.Verifier
	manager  *session.Manager
	registry *session.Registry
	pipeline *ingest.Pipeline
	log      *logrus.Logger
}

func New(verifier *auth.Verifier, manager *session.Manager, registry *session.Registry, pipeline *ingest.Pipeline, log *logrus.Logger) *Gateway {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gateway{
		verifier: verifier,
		manager:  manager,
		registry: registry,
		pipeline: pipeline,
		log:      log,
	}
}

// HandleCoaching upgrades the connection, authenticates it, resolves
// the session, and starts the read loop. Invalid credentials and
// missing parameters are connection-fatal; the socket is closed with an
// application close code before any event is sent.
func (g *Gateway) HandleCoaching(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.WithError(err).Warn("upgrade failed")
		return
	}

	q := r.URL.Query()
	claims, err := g.verifier.Verify(q.Get("token"))
	if err != nil {
		g.closeWith(ws, CloseAuthFailed, "authentication failed")
		return
	}

	meetingID := q.Get("meetingId")
	orgID := q.Get("organizationId")
	if meetingID == "" || orgID == "" {
		g.closeWith(ws, CloseMissingParam, "meetingId and organizationId are required")
		return
	}

	// The request context dies with the handler once the connection is
	// hijacked, so session setup gets its own.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sess, err := g.manager.GetOrCreate(ctx, meetingID, orgID)
	if err != nil {
		g.log.WithError(err).WithField("meeting", meetingID).Error("session resolve failed")
		g.closeWith(ws, websocket.CloseInternalServerErr, "session unavailable")
		return
	}

	conn := &Conn{
		id:          ulid.Make().String(),
		sessionID:   sess.ID,
		userID:      claims.UserID,
		displayName: claims.DisplayName,
		ws:          ws,
	}
	g.registry.Attach(sess.ID, conn)
	if _, err := g.manager.Acquire(ctx, sess); err != nil {
		g.registry.Detach(sess.ID, conn.id)
		g.log.WithError(err).WithField("session", sess.ID).Error("acquire failed")
		g.closeWith(ws, websocket.CloseInternalServerErr, "session unavailable")
		return
	}

	g.log.WithFields(logrus.Fields{
		"connection": conn.id,
		"session":    sess.ID,
		"user":       claims.UserID,
	}).Info("client connected")

	if err := conn.Send(models.Event{
		Type: models.EventSessionStarted,
		Payload: sessionStartedPayload{
			MeetingID: sess.MeetingID,
			SessionID: sess.ID,
			Config:    sess.Config,
		},
	}); err != nil {
		g.log.WithError(err).WithField("connection", conn.id).Warn("session_started send failed")
	}

	go g.readLoop(conn, sess)
}

// readLoop processes inbound messages until the transport closes. Only
// this connection's loop ends on close; in-flight analysis for the
// session is unaffected.
func (g *Gateway) readLoop(conn *Conn, sess *models.Session) {
	defer func() {
		conn.ws.Close()
		g.registry.Detach(sess.ID, conn.id)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.manager.Release(ctx, sess.ID); err != nil {
			g.log.WithError(err).WithField("session", sess.ID).Warn("release failed")
		}
		g.log.WithFields(logrus.Fields{
			"connection": conn.id,
			"session":    sess.ID,
		}).Info("client disconnected")
	}()

	for {
		var env Envelope
		if err := conn.ws.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.log.WithError(err).WithField("connection", conn.id).Debug("read error")
			}
			return
		}

		switch env.Type {
		case MsgTranscriptChunk:
			g.handleChunk(conn, sess, env.Payload)
		case MsgPing:
			// No session interaction; immediate echo.
			if err := conn.Send(models.Event{
				Type:    models.EventPong,
				Payload: pongPayload{Timestamp: time.Now().UnixMilli()},
			}); err != nil {
				g.log.WithError(err).WithField("connection", conn.id).Debug("pong send failed")
			}
		case MsgEndSession:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := g.manager.End(ctx, sess.ID); err != nil {
				g.log.WithError(err).WithField("session", sess.ID).Warn("end session failed")
			}
			cancel()
		default:
			g.log.WithFields(logrus.Fields{
				"connection": conn.id,
				"type":       env.Type,
			}).Debug("unknown message type")
		}
	}
}

// handleChunk parses and ingests one transcript fragment. A malformed
// chunk is logged and dropped; it never terminates the connection.
func (g *Gateway) handleChunk(conn *Conn, sess *models.Session, payload json.RawMessage) {
	var chunk ingest.Chunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		g.log.WithError(err).WithField("connection", conn.id).Warn("malformed transcript_chunk")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()
	if err := g.pipeline.Ingest(ctx, sess, chunk); err != nil {
		g.log.WithError(err).WithFields(logrus.Fields{
			"connection": conn.id,
			"session":    sess.ID,
		}).Warn("fragment rejected")
	}
}

func (g *Gateway) closeWith(ws *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	deadline := time.Now().Add(time.Second)
	if err := ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		g.log.WithError(err).Debug("close control write failed")
	}
	ws.Close()
}
