package model

import (
	"slices"
	"sync"
)

// ActorID is the stable identity of a world object. Zero is never valid.
type ActorID uint64

// Actor is read access to a world object.
type Actor interface {
	ID() ActorID
	Class() string
	Location() Vector
	Rotation() Rotator
}

// World resolves actors. An actor that is not found has been destroyed.
type World interface {
	Actor(id ActorID) (Actor, bool)
	Actors() []Actor
}

// BasicActor is a plain Actor value.
type BasicActor struct {
	ActorID  ActorID
	Kind     string
	Position Vector
	Facing   Rotator
}

// ID implements Actor.
func (a *BasicActor) ID() ActorID { return a.ActorID }

// Class implements Actor.
func (a *BasicActor) Class() string { return a.Kind }

// Location implements Actor.
func (a *BasicActor) Location() Vector { return a.Position }

// Rotation implements Actor.
func (a *BasicActor) Rotation() Rotator { return a.Facing }

// SimpleWorld is an in-memory World. It is safe for concurrent use.
type SimpleWorld struct {
	mu     sync.RWMutex
	actors map[ActorID]Actor
}

// NewSimpleWorld creates a world populated with actors.
func NewSimpleWorld(actors ...Actor) *SimpleWorld {
	w := &SimpleWorld{actors: make(map[ActorID]Actor, len(actors))}
	for _, a := range actors {
		w.actors[a.ID()] = a
	}
	return w
}

// Spawn adds or replaces an actor.
func (w *SimpleWorld) Spawn(a Actor) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.actors[a.ID()] = a
}

// Destroy removes an actor. Lookups for it fail afterwards.
func (w *SimpleWorld) Destroy(id ActorID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.actors, id)
}

// Actor implements World.
func (w *SimpleWorld) Actor(id ActorID) (Actor, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.actors[id]
	return a, ok
}

// Actors implements World. Actors are returned in ID order.
func (w *SimpleWorld) Actors() []Actor {
	w.mu.RLock()
	out := make([]Actor, 0, len(w.actors))
	for _, a := range w.actors {
		out = append(out, a)
	}
	w.mu.RUnlock()

	slices.SortFunc(out, func(a, b Actor) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return out
}
