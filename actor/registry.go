package actor

import (
	"github.com/apogee-mp/apogee/aerror"
	"github.com/elliotchance/orderedmap/v2"
)

// Registry tracks every actor known to one client. Iteration is insertion
// ordered so per-tick updates are reproducible.
type Registry struct {
	actors *orderedmap.OrderedMap[uint64, *Actor]
	local  *Actor
}

func NewRegistry() *Registry {
	return &Registry{actors: orderedmap.NewOrderedMap[uint64, *Actor]()}
}

// Add inserts an actor. Only one local-authority actor may exist per client
// process; a second one is rejected.
func (r *Registry) Add(a *Actor) error {
	if _, ok := r.actors.Get(a.ID); ok {
		return aerror.New("actor: duplicate actor id %d", a.ID)
	}
	if a.Authority == AuthorityLocal {
		if r.local != nil {
			return aerror.New("actor: a local actor is already registered (id %d)", r.local.ID)
		}
		r.local = a
	}
	r.actors.Set(a.ID, a)
	return nil
}

// Remove deletes an actor by ID.
func (r *Registry) Remove(id uint64) {
	if r.local != nil && r.local.ID == id {
		r.local = nil
	}
	r.actors.Delete(id)
}

// Get resolves an actor by ID.
func (r *Registry) Get(id uint64) (*Actor, bool) {
	return r.actors.Get(id)
}

// Local returns the single locally controlled actor, or nil.
func (r *Registry) Local() *Actor {
	return r.local
}

// Len returns the number of registered actors.
func (r *Registry) Len() int {
	return r.actors.Len()
}

// Each calls f for every actor in insertion order.
func (r *Registry) Each(f func(a *Actor)) {
	for el := r.actors.Front(); el != nil; el = el.Next() {
		f(el.Value)
	}
}
