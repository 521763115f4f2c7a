package screen

import (
	"sync"
	"time"

	"github.com/simp-lee/escola/internal/domain"
)

type registryKey struct {
	session string
	entity  domain.Entity
}

// Registry keeps one ListController per session and entity, so search,
// filter and page interactions work on the collection loaded at mount.
type Registry struct {
	mu          sync.Mutex
	controllers map[registryKey]*ListController
	now         func() time.Time
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		controllers: make(map[registryKey]*ListController),
		now:         time.Now,
	}
}

// Get returns the controller for (sessionID, entity), creating it with
// build when absent. created reports whether build was called.
func (r *Registry) Get(sessionID string, entity domain.Entity, build func() *ListController) (ctrl *ListController, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := registryKey{session: sessionID, entity: entity}
	if c, ok := r.controllers[k]; ok {
		return c, false
	}
	c := build()
	r.controllers[k] = c
	return c, true
}

// Lookup returns an existing controller without creating one.
func (r *Registry) Lookup(sessionID string, entity domain.Entity) (*ListController, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[registryKey{session: sessionID, entity: entity}]
	return c, ok
}

// Drop forgets every controller of a session, e.g. on logout.
func (r *Registry) Drop(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.controllers {
		if k.session == sessionID {
			delete(r.controllers, k)
			n++
		}
	}
	return n
}

// Sweep forgets controllers unused for longer than idle.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, c := range r.controllers {
		if c.LastUsed().Before(cutoff) {
			delete(r.controllers, k)
			n++
		}
	}
	return n
}

// Len returns the number of live controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}
