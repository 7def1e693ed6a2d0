package itemtype

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/envquery/model"
)

const (
	vectorSize = 12
	actorSize  = 8
)

var (
	// Point is the location item type.
	Point = PointType{}
	// Direction is the direction item type.
	Direction = DirectionType{}
	// Actor is the actor reference item type.
	Actor = ActorType{}
)

func putVector(dst []byte, v model.Vector) {
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(v.X))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(v.Z))
}

func readVector(raw []byte) model.Vector {
	return model.Vector{
		X: math.Float32frombits(binary.LittleEndian.Uint32(raw[0:])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(raw[4:])),
		Z: math.Float32frombits(binary.LittleEndian.Uint32(raw[8:])),
	}
}

// PointType stores a location.
type PointType struct{}

// Name implements Descriptor.
func (PointType) Name() string { return "Point" }

// ValueSize implements Descriptor.
func (PointType) ValueSize() uint16 { return vectorSize }

// Capabilities implements Descriptor.
func (PointType) Capabilities() Capability { return CanLocation }

// Describe implements Descriptor.
func (PointType) Describe(raw []byte) string {
	if len(raw) < vectorSize {
		return "invalid"
	}
	return readVector(raw).String()
}

// Location implements Locator.
func (PointType) Location(raw []byte, _ model.World) (model.Vector, bool) {
	return readVector(raw), true
}

// Encode returns the payload for v.
func (PointType) Encode(v model.Vector) []byte {
	out := make([]byte, vectorSize)
	putVector(out, v)
	return out
}

// DirectionType stores a unit direction.
type DirectionType struct{}

// Name implements Descriptor.
func (DirectionType) Name() string { return "Direction" }

// ValueSize implements Descriptor.
func (DirectionType) ValueSize() uint16 { return vectorSize }

// Capabilities implements Descriptor.
func (DirectionType) Capabilities() Capability { return CanRotation }

// Describe implements Descriptor.
func (DirectionType) Describe(raw []byte) string {
	if len(raw) < vectorSize {
		return "invalid"
	}
	return readVector(raw).Rotation().String()
}

// Rotation implements Orienter.
func (DirectionType) Rotation(raw []byte, _ model.World) (model.Rotator, bool) {
	return readVector(raw).Rotation(), true
}

// Encode returns the payload for a direction. The direction is normalized.
func (DirectionType) Encode(dir model.Vector) []byte {
	out := make([]byte, vectorSize)
	putVector(out, dir.Normalize())
	return out
}

// EncodeRotation returns the payload for the forward direction of r.
func (d DirectionType) EncodeRotation(r model.Rotator) []byte {
	return d.Encode(r.Vector())
}

// ActorType stores an actor reference.
type ActorType struct{}

// Name implements Descriptor.
func (ActorType) Name() string { return "Actor" }

// ValueSize implements Descriptor.
func (ActorType) ValueSize() uint16 { return actorSize }

// Capabilities implements Descriptor.
func (ActorType) Capabilities() Capability { return CanLocation | CanRotation | CanActor }

// Describe implements Descriptor.
func (ActorType) Describe(raw []byte) string {
	if len(raw) < actorSize {
		return "invalid"
	}
	return fmt.Sprintf("Actor#%d", binary.LittleEndian.Uint64(raw))
}

// ID decodes the actor reference.
func (ActorType) ID(raw []byte) model.ActorID {
	return model.ActorID(binary.LittleEndian.Uint64(raw))
}

// Actor implements ActorSource.
func (t ActorType) Actor(raw []byte, w model.World) (model.Actor, bool) {
	id := t.ID(raw)
	if w == nil || id == 0 {
		return nil, false
	}
	return w.Actor(id)
}

// Location implements Locator.
func (t ActorType) Location(raw []byte, w model.World) (model.Vector, bool) {
	a, ok := t.Actor(raw, w)
	if !ok {
		return model.Vector{}, false
	}
	return a.Location(), true
}

// Rotation implements Orienter.
func (t ActorType) Rotation(raw []byte, w model.World) (model.Rotator, bool) {
	a, ok := t.Actor(raw, w)
	if !ok {
		return model.Rotator{}, false
	}
	return a.Rotation(), true
}

// Encode returns the payload for an actor reference.
func (ActorType) Encode(id model.ActorID) []byte {
	out := make([]byte, actorSize)
	binary.LittleEndian.PutUint64(out, uint64(id))
	return out
}
