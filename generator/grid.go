package generator

import (
	"fmt"
	"math"

	"github.com/hupe1980/envquery/itemtype"
	"github.com/hupe1980/envquery/model"
	"github.com/hupe1980/envquery/query"
)

// MaxGridItems caps the points of one SimpleGrid center.
const MaxGridItems = 1 << 16

// SimpleGrid generates Point items on a square grid in the XY plane around
// each location of a context.
type SimpleGrid struct {
	// Radius is half the grid extent.
	Radius query.FloatValue
	// Spacing is the distance between neighboring points.
	Spacing query.FloatValue
	// Around is the context the grid is centered on; empty means the querier.
	Around query.ContextKey
}

// ItemType implements query.Generator.
func (g *SimpleGrid) ItemType() itemtype.Descriptor { return itemtype.Point }

// Describe implements query.Generator.
func (g *SimpleGrid) Describe() string {
	return fmt.Sprintf("SimpleGrid: radius %v, spacing %v around %s",
		g.Radius.Value, g.Spacing.Value, contextOrQuerier(g.Around))
}

// GenerateItems implements query.Generator.
func (g *SimpleGrid) GenerateItems(qi *query.Instance) {
	radius := g.Radius.Resolve(qi)
	spacing := g.Spacing.Resolve(qi)
	if radius < 0 || spacing <= 0 {
		qi.Logger().Warn("invalid grid settings", "radius", radius, "spacing", spacing)
		return
	}

	centers, ok := qi.PrepareLocations(contextOrQuerier(g.Around))
	if !ok {
		return
	}

	steps := int(math.Floor(float64(radius / spacing)))
	perSide := 2*steps + 1
	if perSide*perSide > MaxGridItems {
		qi.Logger().Warn("grid too dense, clamping", "points", perSide*perSide, "max", MaxGridItems)
		steps = (int(math.Sqrt(MaxGridItems)) - 1) / 2
	}

	for _, c := range centers {
		for ix := -steps; ix <= steps; ix++ {
			for iy := -steps; iy <= steps; iy++ {
				p := model.Vector{
					X: c.X + float32(ix)*spacing,
					Y: c.Y + float32(iy)*spacing,
					Z: c.Z,
				}
				if err := qi.AddLocation(p); err != nil {
					return
				}
			}
		}
	}
}

func contextOrQuerier(key query.ContextKey) query.ContextKey {
	if key == "" {
		return query.ContextQuerier
	}
	return key
}
