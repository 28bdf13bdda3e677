// Package admin exposes the engine's inspection surface over HTTP:
// health, active session count, and offline talk-time/pattern analysis
// outside the live socket flow.
package admin

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meetsense/coachd/internal/analysis"
	"github.com/meetsense/coachd/internal/models"
	"github.com/meetsense/coachd/internal/session"
	"github.com/meetsense/coachd/internal/store"
)

// StartOpts holds configuration for the admin server.
type StartOpts struct {
	Store   store.Store
	Manager *session.Manager
	Addr    string
}

// Start launches the admin HTTP server. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Store == nil || opts.Manager == nil {
		return fmt.Errorf("admin: store and manager are required")
	}
	if opts.Addr == "" {
		opts.Addr = ":8081"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts.Store, opts.Manager)

	srv := &http.Server{Addr: opts.Addr, Handler: router}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("admin: %w", err)
	}
	return nil
}

func registerRoutes(router *gin.Engine, st store.Store, manager *session.Manager) {
	router.GET("/healthz", healthHandler(manager))
	router.GET("/api/sessions/count", countHandler(manager))
	router.GET("/api/sessions/:id/talktime", talkTimeHandler(st))
	router.GET("/api/sessions/:id/patterns", patternsHandler(st))
	router.GET("/api/sessions/:id/fragments", fragmentsHandler(st))
}

func healthHandler(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := manager.Health(c.Request.Context())

		storeState := "connected"
		if !h.StoreConnected {
			storeState = "disconnected"
		}
		gatewayState := "running"
		if !h.GatewayAccepting {
			gatewayState = "stopped"
		}
		status := "ok"
		code := http.StatusOK
		if !h.StoreConnected || !h.GatewayAccepting {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status": status,
			"details": gin.H{
				"store":          storeState,
				"gateway":        gatewayState,
				"activeSessions": h.ActiveSessions,
			},
		})
	}
}

func countHandler(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"activeSessions": manager.ActiveSessionCount()})
	}
}

func talkTimeHandler(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := loadSession(c, st)
		if !ok {
			return
		}
		ledger, err := st.Ledger(c.Request.Context(), sess.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		report := analysis.Report(ledger, sess.Config.DominancePercent)
		if report == nil {
			report = &models.TalkTimeReport{Participants: map[string]models.TalkTimeParticipant{}, Balance: 1.0}
		}
		c.JSON(http.StatusOK, report)
	}
}

func patternsHandler(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := loadSession(c, st)
		if !ok {
			return
		}
		frags, err := st.Window(c.Request.Context(), sess.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		snap := analysis.NewSnapshot(sess.ID, frags, nil, sess.Config)
		events := analysis.Detect(snap.Fragments, sess.Config)
		if events == nil {
			events = []models.PatternEvent{}
		}
		c.JSON(http.StatusOK, gin.H{"sessionId": sess.ID, "patterns": events})
	}
}

func fragmentsHandler(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := loadSession(c, st)
		if !ok {
			return
		}
		frags, err := st.Window(c.Request.Context(), sess.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if frags == nil {
			frags = []models.Fragment{}
		}
		c.JSON(http.StatusOK, gin.H{
			"sessionId": sess.ID,
			"fragments": frags,
			"count":     len(frags),
		})
	}
}

func loadSession(c *gin.Context, st store.Store) (*models.Session, bool) {
	sess, err := st.SessionByID(c.Request.Context(), c.Param("id"))
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return sess, true
}
