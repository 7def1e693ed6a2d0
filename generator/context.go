package generator

import (
	"fmt"

	"github.com/hupe1980/envquery/itemtype"
	"github.com/hupe1980/envquery/query"
)

// ContextPoints generates one Point item per location of a context.
type ContextPoints struct {
	Context query.ContextKey
}

// ItemType implements query.Generator.
func (g *ContextPoints) ItemType() itemtype.Descriptor { return itemtype.Point }

// Describe implements query.Generator.
func (g *ContextPoints) Describe() string {
	return fmt.Sprintf("ContextPoints: %s", contextOrQuerier(g.Context))
}

// GenerateItems implements query.Generator.
func (g *ContextPoints) GenerateItems(qi *query.Instance) {
	locs, ok := qi.PrepareLocations(contextOrQuerier(g.Context))
	if !ok {
		return
	}
	for _, l := range locs {
		if err := qi.AddLocation(l); err != nil {
			return
		}
	}
}
