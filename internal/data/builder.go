package data

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/scene"
)

var (
	ErrUnknownPrefab = errors.New("data: unknown prefab")
	ErrUnknownKind   = errors.New("data: unknown component kind")
)

// ComponentFactory creates one component from its prefab parameters.
type ComponentFactory func(p Params) (ecs.Component, error)

// Builder turns prefabs into registered entities.
type Builder struct {
	table *PrefabTable
	kinds map[string]ComponentFactory
	log   *zap.Logger
}

func NewBuilder(table *PrefabTable, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{table: table, kinds: make(map[string]ComponentFactory), log: log}
}

// Register binds a component kind (case-insensitive) to a factory. A later
// registration for the same kind replaces the earlier one.
func (b *Builder) Register(kind string, f ComponentFactory) {
	b.kinds[strings.ToLower(kind)] = f
}

func (b *Builder) Table() *PrefabTable { return b.table }

// Build creates an entity from the named prefab, attaches its components in
// prefab order and adds it to reg. Components are constructed before the
// entity exists, so a failing factory leaves the registry untouched.
func (b *Builder) Build(reg *ecs.Registry, name string) (*ecs.Entity, error) {
	p := b.table.Get(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrefab, name)
	}

	comps := make([]ecs.Component, 0, len(p.Components))
	for _, cs := range p.Components {
		f, ok := b.kinds[cs.Kind]
		if !ok {
			return nil, fmt.Errorf("prefab %q: %w: %q", p.Name, ErrUnknownKind, cs.Kind)
		}
		c, err := f(cs.Params)
		if err != nil {
			return nil, fmt.Errorf("prefab %q component %q: %w", p.Name, cs.Kind, err)
		}
		comps = append(comps, c)
	}

	e := reg.NewEntity(ecs.Options{
		Name:     p.Name,
		Tags:     p.Tags,
		Inactive: p.Active != nil && !*p.Active,
	})
	e.SetPosition(scene.Vec2{X: p.Position.X, Y: p.Position.Y})
	for _, c := range comps {
		e.AddComponent(c)
	}
	reg.Add(e)

	b.log.Debug("prefab built",
		zap.String("prefab", p.Name),
		zap.Stringer("entity", e.ID()),
		zap.Int("components", len(comps)),
	)
	return e, nil
}
