package itemtype

import "github.com/hupe1980/envquery/model"

// KeyKind is the value kind of a blackboard key.
type KeyKind uint8

const (
	// KeyVector holds a vector.
	KeyVector KeyKind = iota + 1
	// KeyActor holds an actor.
	KeyActor
)

// Blackboard is the key-value store that receives query results.
type Blackboard interface {
	SetVector(key string, v model.Vector)
	SetActor(key string, a model.Actor)
}

// SupportedKeys returns the blackboard key kinds that can store items of d.
func SupportedKeys(d Descriptor) []KeyKind {
	var kinds []KeyKind
	c := d.Capabilities()
	if c.Has(CanLocation) || c.Has(CanRotation) {
		kinds = append(kinds, KeyVector)
	}
	if c.Has(CanActor) {
		kinds = append(kinds, KeyActor)
	}
	return kinds
}

// StoreInBlackboard writes the item value of raw under key.
// Actor items are stored as actors, spatial items as vectors and
// rotation-only items as their forward direction.
func StoreInBlackboard(d Descriptor, bb Blackboard, key string, raw []byte, w model.World) bool {
	if d == nil || bb == nil {
		return false
	}

	if a, ok := ResolveActor(d, raw, w); ok {
		bb.SetActor(key, a)
		return true
	}
	if loc, ok := Location(d, raw, w); ok {
		bb.SetVector(key, loc)
		return true
	}
	if rot, ok := Rotation(d, raw, w); ok {
		bb.SetVector(key, rot.Vector())
		return true
	}
	return false
}
