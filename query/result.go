package query

import (
	"time"

	"github.com/hupe1980/envquery/itemtype"
	"github.com/hupe1980/envquery/model"
)

// Result is the outcome of a finished instance. It owns copies of the
// items and their payloads, so it stays valid after Release.
type Result struct {
	QueryID     ID
	QueryName   string
	Owner       model.ActorID
	Status      Status
	RunMode     RunMode
	OptionIndex int
	ItemType    itemtype.Descriptor
	Items       []Item
	RawData     []byte

	ExecutionTime time.Duration
	Steps         int

	world model.World
}

// Result snapshots the instance outcome. Calling it before the instance
// finished returns the partial state with Status Processing.
func (qi *Instance) Result() *Result {
	items := make([]Item, len(qi.items))
	copy(items, qi.items)

	return &Result{
		QueryID:       qi.id,
		QueryName:     qi.name,
		Owner:         qi.owner,
		Status:        qi.status,
		RunMode:       qi.mode,
		OptionIndex:   qi.optionIndex,
		ItemType:      qi.itemType,
		Items:         items,
		RawData:       qi.store.Clone(),
		ExecutionTime: qi.totalExecutionTime,
		Steps:         qi.stepCount,
		world:         qi.world,
	}
}

// IsSuccessful reports whether the query selected at least one item.
func (r *Result) IsSuccessful() bool {
	return r != nil && r.Status == Success && len(r.Items) > 0
}

// NumItems returns the number of result items.
func (r *Result) NumItems() int { return len(r.Items) }

// ItemScore returns the score of item i.
func (r *Result) ItemScore(i int) float32 { return r.Items[i].Score }

// ItemData returns the payload of item i.
func (r *Result) ItemData(i int) []byte {
	if r.ItemType == nil || i < 0 || i >= len(r.Items) {
		return nil
	}
	off := r.Items[i].Handle.arena().Offset()
	size := int(r.ItemType.ValueSize())
	if off+size > len(r.RawData) {
		return nil
	}
	return r.RawData[off : off+size : off+size]
}

// ItemLocation reads the location of item i.
func (r *Result) ItemLocation(i int) (model.Vector, bool) {
	return itemtype.Location(r.ItemType, r.ItemData(i), r.world)
}

// ItemActor resolves the actor of item i.
func (r *Result) ItemActor(i int) (model.Actor, bool) {
	return itemtype.ResolveActor(r.ItemType, r.ItemData(i), r.world)
}

// Locations returns the locations of all items that have one.
func (r *Result) Locations() []model.Vector {
	out := make([]model.Vector, 0, len(r.Items))
	for i := range r.Items {
		if v, ok := r.ItemLocation(i); ok {
			out = append(out, v)
		}
	}
	return out
}

// Actors returns the actors of all items that still exist.
func (r *Result) Actors() []model.Actor {
	out := make([]model.Actor, 0, len(r.Items))
	for i := range r.Items {
		if a, ok := r.ItemActor(i); ok {
			out = append(out, a)
		}
	}
	return out
}

// StoreInBlackboard writes item i into bb under key.
func (r *Result) StoreInBlackboard(bb itemtype.Blackboard, key string, i int) bool {
	return itemtype.StoreInBlackboard(r.ItemType, bb, key, r.ItemData(i), r.world)
}
