package query

import (
	"github.com/hupe1980/envquery/itemtype"
	"github.com/hupe1980/envquery/model"
)

// ContextKey names a context role.
type ContextKey string

const (
	// ContextQuerier resolves to the query owner.
	ContextQuerier ContextKey = "Querier"
	// ContextItem marks the item under test. It is never resolved through
	// the context cache.
	ContextItem ContextKey = "Item"
)

// contextOverhead approximates the bookkeeping cost of one cache entry.
const contextOverhead = 64

// ContextData is a resolved context: NumValues payloads of ValueType.
type ContextData struct {
	ValueType itemtype.Descriptor
	Raw       []byte
	NumValues int
}

// SetActors stores actor references.
func (d *ContextData) SetActors(ids ...model.ActorID) {
	d.ValueType = itemtype.Actor
	d.Raw = d.Raw[:0]
	for _, id := range ids {
		d.Raw = append(d.Raw, itemtype.Actor.Encode(id)...)
	}
	d.NumValues = len(ids)
}

// SetLocations stores locations.
func (d *ContextData) SetLocations(locs ...model.Vector) {
	d.ValueType = itemtype.Point
	d.Raw = d.Raw[:0]
	for _, v := range locs {
		d.Raw = append(d.Raw, itemtype.Point.Encode(v)...)
	}
	d.NumValues = len(locs)
}

// SetDirections stores directions.
func (d *ContextData) SetDirections(dirs ...model.Vector) {
	d.ValueType = itemtype.Direction
	d.Raw = d.Raw[:0]
	for _, v := range dirs {
		d.Raw = append(d.Raw, itemtype.Direction.Encode(v)...)
	}
	d.NumValues = len(dirs)
}

// Value returns the payload of value i, or nil.
func (d *ContextData) Value(i int) []byte {
	if d == nil || d.ValueType == nil || i < 0 || i >= d.NumValues {
		return nil
	}
	stride := int(d.ValueType.ValueSize())
	if (i+1)*stride > len(d.Raw) {
		return nil
	}
	return d.Raw[i*stride : (i+1)*stride]
}

func (d *ContextData) size() int64 {
	return int64(cap(d.Raw)) + contextOverhead
}

// ContextProvider fills in the values of one context.
type ContextProvider interface {
	ProvideContext(qi *Instance, data *ContextData)
}

// ContextProviderFunc adapts a function to ContextProvider.
type ContextProviderFunc func(qi *Instance, data *ContextData)

// ProvideContext implements ContextProvider.
func (f ContextProviderFunc) ProvideContext(qi *Instance, data *ContextData) {
	f(qi, data)
}

// ContextSource supplies context providers, typically the query manager.
type ContextSource interface {
	ContextProvider(key ContextKey) (ContextProvider, bool)
}

// QuerierContext resolves ContextQuerier to the instance owner.
var QuerierContext = ContextProviderFunc(func(qi *Instance, data *ContextData) {
	if qi.owner == 0 {
		return
	}
	data.SetActors(qi.owner)
})

func (qi *Instance) contextProvider(key ContextKey) (ContextProvider, bool) {
	if qi.contexts != nil {
		if p, ok := qi.contexts.ContextProvider(key); ok {
			return p, true
		}
	}
	if key == ContextQuerier {
		return QuerierContext, true
	}
	return nil, false
}

// PrepareContext resolves key, using the per-instance cache.
// It fails for ContextItem, for unknown keys and when the context has no
// values; tests treat a failure as "not applicable this run".
func (qi *Instance) PrepareContext(key ContextKey) (*ContextData, bool) {
	if key == ContextItem {
		return nil, false
	}

	data, ok := qi.contextCache[key]
	if !ok {
		data = &ContextData{}
		provider, found := qi.contextProvider(key)
		if found {
			provider.ProvideContext(qi, data)
		}

		size := data.size()
		if err := qi.memory.AcquireMemory(size); err != nil {
			qi.logger.Warn("context not cached", "context", key, "bytes", size, "error", err)
		} else {
			if qi.contextCache == nil {
				qi.contextCache = make(map[ContextKey]*ContextData)
			}
			qi.contextCache[key] = data
			qi.contextBytes += size
		}
	}

	if data.NumValues == 0 || data.ValueType == nil {
		qi.logger.Debug("context has no data",
			"context", key,
			"option", qi.optionIndex,
			"test", qi.currentTest,
		)
		return nil, false
	}
	return data, true
}

// PrepareLocations resolves key into locations.
func (qi *Instance) PrepareLocations(key ContextKey) ([]model.Vector, bool) {
	data, ok := qi.PrepareContext(key)
	if !ok || !data.ValueType.Capabilities().Has(itemtype.CanLocation) {
		return nil, false
	}
	out := make([]model.Vector, 0, data.NumValues)
	for i := 0; i < data.NumValues; i++ {
		if v, ok := itemtype.Location(data.ValueType, data.Value(i), qi.world); ok {
			out = append(out, v)
		}
	}
	return out, len(out) > 0
}

// PrepareRotations resolves key into rotations.
func (qi *Instance) PrepareRotations(key ContextKey) ([]model.Rotator, bool) {
	data, ok := qi.PrepareContext(key)
	if !ok || !data.ValueType.Capabilities().Has(itemtype.CanRotation) {
		return nil, false
	}
	out := make([]model.Rotator, 0, data.NumValues)
	for i := 0; i < data.NumValues; i++ {
		if r, ok := itemtype.Rotation(data.ValueType, data.Value(i), qi.world); ok {
			out = append(out, r)
		}
	}
	return out, len(out) > 0
}

// PreparePoses resolves key into location plus rotation records.
func (qi *Instance) PreparePoses(key ContextKey) ([]model.Pose, bool) {
	data, ok := qi.PrepareContext(key)
	if !ok || !data.ValueType.Capabilities().Has(itemtype.CanLocation|itemtype.CanRotation) {
		return nil, false
	}
	out := make([]model.Pose, 0, data.NumValues)
	for i := 0; i < data.NumValues; i++ {
		raw := data.Value(i)
		loc, okLoc := itemtype.Location(data.ValueType, raw, qi.world)
		rot, okRot := itemtype.Rotation(data.ValueType, raw, qi.world)
		if okLoc && okRot {
			out = append(out, model.Pose{Location: loc, Rotation: rot})
		}
	}
	return out, len(out) > 0
}

// PrepareActors resolves key into actors. Destroyed actors are dropped;
// it succeeds only if at least one actor is left.
func (qi *Instance) PrepareActors(key ContextKey) ([]model.Actor, bool) {
	data, ok := qi.PrepareContext(key)
	if !ok || !data.ValueType.Capabilities().Has(itemtype.CanActor) {
		return nil, false
	}
	out := make([]model.Actor, 0, data.NumValues)
	for i := 0; i < data.NumValues; i++ {
		if a, ok := itemtype.ResolveActor(data.ValueType, data.Value(i), qi.world); ok {
			out = append(out, a)
		}
	}
	return out, len(out) > 0
}
