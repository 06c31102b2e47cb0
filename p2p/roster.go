package p2p

import (
	"sort"
	"sync"
)

// Roster tracks the participants known to this node and their ready
// flags. Names are kept in sorted order so every peer derives the same
// turn order from the same roster.
type Roster struct {
	lock  sync.RWMutex
	order []string
	ready map[string]bool
}

func NewRoster() *Roster {
	return &Roster{
		order: []string{},
		ready: map[string]bool{},
	}
}

func (r *Roster) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.order)
}

// Add registers a participant as not-ready. Adding an existing name is
// a no-op.
func (r *Roster) Add(name string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.add(name)
}

func (r *Roster) add(name string) {
	if _, exists := r.ready[name]; exists {
		return
	}
	r.ready[name] = false
	r.order = append(r.order, name)
	sort.Strings(r.order)
}

func (r *Roster) Remove(name string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, exists := r.ready[name]; !exists {
		return
	}
	delete(r.ready, name)
	for i, existing := range r.order {
		if existing == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// SetReady updates a participant's ready flag, registering the name
// first if it is unknown.
func (r *Roster) SetReady(name string, ready bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.add(name)
	r.ready[name] = ready
}

func (r *Roster) IsReady(name string) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.ready[name]
}

// AllReady reports whether every registered participant is ready.
func (r *Roster) AllReady() bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	for _, ready := range r.ready {
		if !ready {
			return false
		}
	}
	return true
}

// Names returns the participants in their stable sorted order.
func (r *Roster) Names() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Snapshot copies the roster into the wire representation.
func (r *Roster) Snapshot() map[string]bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	snap := make(map[string]bool, len(r.ready))
	for name, ready := range r.ready {
		snap[name] = ready
	}
	return snap
}

// Replace swaps the roster wholesale for a received snapshot.
func (r *Roster) Replace(players map[string]bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.ready = make(map[string]bool, len(players))
	r.order = r.order[:0]
	for name, ready := range players {
		r.ready[name] = ready
		r.order = append(r.order, name)
	}
	sort.Strings(r.order)
}
