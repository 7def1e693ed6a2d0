package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/hupe1980/envquery/model"
	"github.com/hupe1980/envquery/query"
)

var errInvalidWorld = errors.New("invalid world")

// worldFile is the TOML layout of a world:
//
//	[[actor]]
//	id = 1
//	class = "Guard"
//	location = [0, 0, 0]
//	rotation = [0, 90, 0] # pitch, yaw, roll in degrees
//
//	[[context]]
//	name = "Cover"
//	locations = [[100, 0, 0], [0, 100, 0]]
type worldFile struct {
	Actors   []actorDef   `toml:"actor"`
	Contexts []contextDef `toml:"context"`
}

type actorDef struct {
	ID       uint64     `toml:"id"`
	Class    string     `toml:"class"`
	Location [3]float32 `toml:"location"`
	Rotation [3]float32 `toml:"rotation"`
}

// contextDef is a named context with fixed locations or actors.
type contextDef struct {
	Name      string       `toml:"name"`
	Locations [][3]float32 `toml:"locations"`
	Actors    []uint64     `toml:"actors"`
}

// world is a decoded world file.
type world struct {
	*model.SimpleWorld
	contexts map[query.ContextKey]query.ContextProvider
}

func loadWorld(path string) (*world, error) {
	if path == "" {
		return &world{SimpleWorld: model.NewSimpleWorld()}, nil
	}
	f, err := os.Open(path) //nolint:gosec // user supplied world path
	if err != nil {
		return nil, fmt.Errorf("failed to open world: %w", err)
	}
	defer f.Close()

	w, err := decodeWorld(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

func decodeWorld(r io.Reader) (*world, error) {
	var wf worldFile
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&wf); err != nil {
		return nil, fmt.Errorf("failed to parse world: %w", err)
	}

	w := &world{
		SimpleWorld: model.NewSimpleWorld(),
		contexts:    make(map[query.ContextKey]query.ContextProvider, len(wf.Contexts)),
	}

	for i, a := range wf.Actors {
		if a.ID == 0 {
			return nil, fmt.Errorf("%w: actor %d has no id", errInvalidWorld, i)
		}
		id := model.ActorID(a.ID)
		if _, dup := w.Actor(id); dup {
			return nil, fmt.Errorf("%w: duplicate actor id %d", errInvalidWorld, a.ID)
		}
		w.Spawn(&model.BasicActor{
			ActorID:  id,
			Kind:     a.Class,
			Position: vec(a.Location),
			Facing:   model.Rotator{Pitch: a.Rotation[0], Yaw: a.Rotation[1], Roll: a.Rotation[2]},
		})
	}

	for _, c := range wf.Contexts {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: context without name", errInvalidWorld)
		}
		key := query.ContextKey(c.Name)
		if key == query.ContextQuerier || key == query.ContextItem {
			return nil, fmt.Errorf("%w: context name %q is reserved", errInvalidWorld, c.Name)
		}
		if _, dup := w.contexts[key]; dup {
			return nil, fmt.Errorf("%w: duplicate context %q", errInvalidWorld, c.Name)
		}
		provider, err := w.contextProvider(c)
		if err != nil {
			return nil, err
		}
		w.contexts[key] = provider
	}
	return w, nil
}

func (w *world) contextProvider(c contextDef) (query.ContextProvider, error) {
	switch {
	case len(c.Actors) > 0 && len(c.Locations) > 0:
		return nil, fmt.Errorf("%w: context %q mixes actors and locations", errInvalidWorld, c.Name)
	case len(c.Actors) > 0:
		ids := make([]model.ActorID, len(c.Actors))
		for i, id := range c.Actors {
			if _, ok := w.Actor(model.ActorID(id)); !ok {
				return nil, fmt.Errorf("%w: context %q references unknown actor %d", errInvalidWorld, c.Name, id)
			}
			ids[i] = model.ActorID(id)
		}
		return query.ContextProviderFunc(func(_ *query.Instance, d *query.ContextData) {
			d.SetActors(ids...)
		}), nil
	default:
		locs := make([]model.Vector, len(c.Locations))
		for i, l := range c.Locations {
			locs[i] = vec(l)
		}
		return query.ContextProviderFunc(func(_ *query.Instance, d *query.ContextData) {
			d.SetLocations(locs...)
		}), nil
	}
}

func vec(v [3]float32) model.Vector {
	return model.Vector{X: v[0], Y: v[1], Z: v[2]}
}
