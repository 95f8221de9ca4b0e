package application

import (
	"sync"

	"github.com/bnema/oneiro/internal/domain"
)

// StateContainer holds the active session. Readers always get a copy; the
// orchestrator replaces the whole session on every transition.
type StateContainer struct {
	mu      sync.RWMutex
	session *domain.Session
	loading bool
}

func NewStateContainer() *StateContainer {
	return &StateContainer{}
}

func (c *StateContainer) Session() (domain.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return domain.Session{}, false
	}
	return c.session.Clone(), true
}

func (c *StateContainer) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.loading
}

func (c *StateContainer) replace(session domain.Session) {
	next := session.Clone()

	c.mu.Lock()
	c.session = &next
	c.mu.Unlock()
}

func (c *StateContainer) setLoading(loading bool) {
	c.mu.Lock()
	c.loading = loading
	c.mu.Unlock()
}
