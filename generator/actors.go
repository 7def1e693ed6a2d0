package generator

import (
	"fmt"

	"github.com/hupe1980/envquery/itemtype"
	"github.com/hupe1980/envquery/model"
	"github.com/hupe1980/envquery/query"
)

// ActorsOfClass generates Actor items for every world actor of Class
// within Radius of any location of a context.
type ActorsOfClass struct {
	Class string
	// Radius limits the search; zero or negative means unlimited.
	Radius query.FloatValue
	// Around is the search center context; empty means the querier.
	Around query.ContextKey
}

// ItemType implements query.Generator.
func (g *ActorsOfClass) ItemType() itemtype.Descriptor { return itemtype.Actor }

// Describe implements query.Generator.
func (g *ActorsOfClass) Describe() string {
	return fmt.Sprintf("ActorsOfClass: %s within %v of %s", g.Class, g.Radius.Value, contextOrQuerier(g.Around))
}

// GenerateItems implements query.Generator.
func (g *ActorsOfClass) GenerateItems(qi *query.Instance) {
	world := qi.World()
	if world == nil {
		return
	}

	radius := g.Radius.Resolve(qi)
	var centers []model.Vector
	if radius > 0 {
		var ok bool
		if centers, ok = qi.PrepareLocations(contextOrQuerier(g.Around)); !ok {
			return
		}
	}
	radiusSq := radius * radius

	for _, a := range world.Actors() {
		if g.Class != "" && a.Class() != g.Class {
			continue
		}
		if radius > 0 && !withinAny(a.Location(), centers, radiusSq) {
			continue
		}
		if err := qi.AddActor(a.ID()); err != nil {
			return
		}
	}
}

func withinAny(p model.Vector, centers []model.Vector, radiusSq float32) bool {
	for _, c := range centers {
		if p.Sub(c).SizeSquared() <= radiusSq {
			return true
		}
	}
	return false
}
