package session

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/meetsense/coachd/internal/models"
)

// Handle is a live transport bound to one session. Many handles may
// reference one session.
type Handle interface {
	ID() string
	Send(event models.Event) error
}

// Registry maps sessionID to the set of connection handles attached on
// this instance. Attach and Detach are the only mutations.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[string]Handle
	log   *logrus.Logger
}

func NewRegistry(log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{conns: make(map[string]map[string]Handle), log: log}
}

func (r *Registry) Attach(sessionID string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[sessionID]
	if !ok {
		set = make(map[string]Handle)
		r.conns[sessionID] = set
	}
	set[h.ID()] = h
}

func (r *Registry) Detach(sessionID, handleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[sessionID]
	if !ok {
		return
	}
	delete(set, handleID)
	if len(set) == 0 {
		delete(r.conns, sessionID)
	}
}

// Broadcast delivers one event to every handle attached to the session.
// A failing handle is logged and skipped; delivery to the rest proceeds.
func (r *Registry) Broadcast(sessionID string, event models.Event) {
	r.mu.RLock()
	handles := make([]Handle, 0, len(r.conns[sessionID]))
	for _, h := range r.conns[sessionID] {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	for _, h := range handles {
		if err := h.Send(event); err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{
				"session":    sessionID,
				"connection": h.ID(),
				"event":      event.Type,
			}).Warn("fan-out delivery failed")
		}
	}
}

// Count returns the number of handles attached to the session.
func (r *Registry) Count(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[sessionID])
}
