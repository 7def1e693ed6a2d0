package itemtype

import (
	"strings"

	"github.com/hupe1980/envquery/model"
)

// Capability is a set of values a descriptor can read from a payload.
type Capability uint8

const (
	// CanLocation means the payload yields a location.
	CanLocation Capability = 1 << iota
	// CanRotation means the payload yields a rotation.
	CanRotation
	// CanActor means the payload yields an actor.
	CanActor
)

// Has reports whether c contains all of f.
func (c Capability) Has(f Capability) bool {
	return c&f == f
}

// String returns a string representation of the capability set.
func (c Capability) String() string {
	var parts []string
	if c.Has(CanLocation) {
		parts = append(parts, "location")
	}
	if c.Has(CanRotation) {
		parts = append(parts, "rotation")
	}
	if c.Has(CanActor) {
		parts = append(parts, "actor")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Descriptor describes the payload layout of one item type.
type Descriptor interface {
	// Name returns the item type name.
	Name() string
	// ValueSize returns the fixed payload size in bytes.
	ValueSize() uint16
	// Capabilities returns the values this type can produce.
	Capabilities() Capability
	// Describe renders a payload for diagnostics.
	Describe(raw []byte) string
}

// Locator is implemented by descriptors with CanLocation.
type Locator interface {
	Location(raw []byte, w model.World) (model.Vector, bool)
}

// Orienter is implemented by descriptors with CanRotation.
type Orienter interface {
	Rotation(raw []byte, w model.World) (model.Rotator, bool)
}

// ActorSource is implemented by descriptors with CanActor.
type ActorSource interface {
	Actor(raw []byte, w model.World) (model.Actor, bool)
}

// Location reads a location from raw.
func Location(d Descriptor, raw []byte, w model.World) (model.Vector, bool) {
	if d == nil || !d.Capabilities().Has(CanLocation) || len(raw) < int(d.ValueSize()) {
		return model.Vector{}, false
	}
	l, ok := d.(Locator)
	if !ok {
		return model.Vector{}, false
	}
	return l.Location(raw, w)
}

// Rotation reads a rotation from raw.
func Rotation(d Descriptor, raw []byte, w model.World) (model.Rotator, bool) {
	if d == nil || !d.Capabilities().Has(CanRotation) || len(raw) < int(d.ValueSize()) {
		return model.Rotator{}, false
	}
	o, ok := d.(Orienter)
	if !ok {
		return model.Rotator{}, false
	}
	return o.Rotation(raw, w)
}

// ResolveActor reads an actor from raw. Destroyed actors report false.
func ResolveActor(d Descriptor, raw []byte, w model.World) (model.Actor, bool) {
	if d == nil || !d.Capabilities().Has(CanActor) || len(raw) < int(d.ValueSize()) {
		return nil, false
	}
	s, ok := d.(ActorSource)
	if !ok {
		return nil, false
	}
	return s.Actor(raw, w)
}
