package data

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/l1jgo/simcore/internal/core/ecs"
)

const sample = `
prefabs:
  - name: hero
    tags: [player, "cafe\u0301"]
    position: { x: 1.5, y: -2 }
    components:
      - kind: Marker
        params: { label: first, weight: 3 }
      - kind: marker2
  - name: ghost
    active: false
`

func TestParsePrefabTable(t *testing.T) {
	tbl, err := ParsePrefabTable([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tbl.Count() != 2 {
		t.Fatalf("count = %d", tbl.Count())
	}
	if names := tbl.Names(); names[0] != "hero" || names[1] != "ghost" {
		t.Fatalf("names = %v", names)
	}
	hero := tbl.Get("hero")
	if hero == nil {
		t.Fatal("hero missing")
	}
	if hero.Tags[1] != "caf\u00e9" {
		t.Fatalf("tag should be NFC, got %q", hero.Tags[1])
	}
	if hero.Components[0].Kind != "marker" {
		t.Fatalf("kind should be lower-cased, got %q", hero.Components[0].Kind)
	}
	if hero.Position.X != 1.5 || hero.Position.Y != -2 {
		t.Fatalf("position = %+v", hero.Position)
	}
	if p := hero.Components[0].Params; p.String("label", "") != "first" || p.Int("weight", 0) != 3 {
		t.Fatalf("params = %v", p)
	}
	if tbl.Get("nobody") != nil {
		t.Fatal("unknown prefab should be nil")
	}
}

func TestLookupNormalizesName(t *testing.T) {
	tbl, err := ParsePrefabTable([]byte("prefabs:\n  - name: \"re\\u0301sume\\u0301\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Get("r\u00e9sum\u00e9") == nil {
		t.Fatal("precomposed lookup should find decomposed name")
	}
}

func TestParsePrefabTableErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", "prefabs:\n  - tags: [x]\n", "no name"},
		{"duplicate", "prefabs:\n  - name: a\n  - name: a\n", "duplicate"},
		{"no kind", "prefabs:\n  - name: a\n    components:\n      - params: {}\n", "no kind"},
		{"syntax", "prefabs: [", "parse prefab list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePrefabTable([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestParams(t *testing.T) {
	p := Params{"i": 4, "f": 2.5, "s": "x", "b": true}
	if p.Float("i", 0) != 4 || p.Float("f", 0) != 2.5 || p.Float("none", 9) != 9 {
		t.Fatal("Float")
	}
	if p.Int("f", 0) != 2 || p.Int("s", 7) != 7 {
		t.Fatal("Int")
	}
	if p.String("s", "") != "x" || !p.Bool("b", false) || p.Bool("s", false) {
		t.Fatal("String/Bool")
	}
	if err := p.Require("i", "missing"); err == nil {
		t.Fatal("Require should fail")
	}
	var empty Params
	if empty.Int("x", 1) != 1 {
		t.Fatal("nil params should return defaults")
	}
}

type marker struct {
	ecs.Base
	label string
}

type marker2 struct{ ecs.Base }

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	tbl, err := ParsePrefabTable([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(tbl, nil)
	b.Register("MARKER", func(p Params) (ecs.Component, error) {
		return &marker{label: p.String("label", "")}, nil
	})
	b.Register("marker2", func(Params) (ecs.Component, error) { return &marker2{}, nil })
	return b
}

func TestBuildRegistersEntity(t *testing.T) {
	b := newTestBuilder(t)
	reg := ecs.NewRegistry(nil)

	e, err := b.Build(reg, "hero")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !reg.Has(e.ID()) || e.Name() != "hero" {
		t.Fatalf("entity %v not registered", e.ID())
	}
	if got := reg.GetByTag("player"); len(got) != 1 || got[0] != e {
		t.Fatalf("tag index = %v", got)
	}
	m, ok := ecs.Get[*marker](e)
	if !ok || m.label != "first" {
		t.Fatal("marker component missing")
	}
	comps := e.Components()
	if len(comps) != 2 || comps[0] != ecs.Component(m) {
		t.Fatalf("components = %v", comps)
	}
	if e.Position().X != 1.5 {
		t.Fatalf("position = %+v", e.Position())
	}

	ghost, err := b.Build(reg, "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if ghost.Active() || ghost.Visible() {
		t.Fatal("active: false prefab should start inactive")
	}
}

func TestBuildErrorsLeaveRegistryUntouched(t *testing.T) {
	b := newTestBuilder(t)
	reg := ecs.NewRegistry(nil)

	if _, err := b.Build(reg, "villain"); !errors.Is(err, ErrUnknownPrefab) {
		t.Fatalf("err = %v", err)
	}

	b2 := NewBuilder(b.Table(), nil)
	if _, err := b2.Build(reg, "hero"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("err = %v", err)
	}

	boom := errors.New("boom")
	b.Register("marker2", func(Params) (ecs.Component, error) { return nil, boom })
	if _, err := b.Build(reg, "hero"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if reg.Count() != 0 {
		t.Fatalf("registry has %d entities after failed builds", reg.Count())
	}
}

func TestBundledPrefabsLoad(t *testing.T) {
	tbl, err := LoadPrefabTable(filepath.Join("..", "..", "data", "prefabs.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, name := range []string{"player", "beacon", "orbiter", "dormant"} {
		if tbl.Get(name) == nil {
			t.Fatalf("missing prefab %q", name)
		}
	}
	if _, err := LoadPrefabTable("does-not-exist.yaml"); err == nil {
		t.Fatal("missing file should fail")
	}
}
