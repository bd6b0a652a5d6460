package game

import (
	"fmt"

	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/data"
	"github.com/l1jgo/simcore/internal/scripting"
)

// RegisterKinds binds the game's component kinds to b:
//
//	mover    speed
//	chase    speed (target set later)
//	health   max
//	collider radius
//	script   behavior (needs a scripting engine)
func RegisterKinds(b *data.Builder, in Input, scripts *scripting.Engine) {
	b.Register("mover", func(p data.Params) (ecs.Component, error) {
		return &Mover{Speed: p.Float("speed", 5), Input: in}, nil
	})
	b.Register("chase", func(p data.Params) (ecs.Component, error) {
		return &Chase{Speed: p.Float("speed", 2)}, nil
	})
	b.Register("health", func(p data.Params) (ecs.Component, error) {
		hp := p.Int("max", 100)
		if hp <= 0 {
			return nil, fmt.Errorf("health max must be positive, got %d", hp)
		}
		return NewHealth(hp), nil
	})
	b.Register("collider", func(p data.Params) (ecs.Component, error) {
		r := p.Float("radius", 0.5)
		if r <= 0 {
			return nil, fmt.Errorf("collider radius must be positive, got %g", r)
		}
		return &Collider{Radius: r}, nil
	})
	b.Register("script", func(p data.Params) (ecs.Component, error) {
		if scripts == nil {
			return nil, fmt.Errorf("script component without a scripting engine")
		}
		if err := p.Require("behavior"); err != nil {
			return nil, err
		}
		bh, err := scripts.NewBehavior(p.String("behavior", ""))
		if err != nil {
			return nil, err
		}
		return bh, nil
	})
}
