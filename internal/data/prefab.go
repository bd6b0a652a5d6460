package data

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Prefab is an entity template: display name, tags, start state and the
// components to attach, in order.
type Prefab struct {
	Name       string          `yaml:"name"`
	Tags       []string        `yaml:"tags"`
	Active     *bool           `yaml:"active"` // nil = active
	Position   Point           `yaml:"position"`
	Components []ComponentSpec `yaml:"components"`
}

type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// ComponentSpec names a registered component kind and its parameters.
type ComponentSpec struct {
	Kind   string `yaml:"kind"`
	Params Params `yaml:"params"`
}

type prefabFile struct {
	Prefabs []Prefab `yaml:"prefabs"`
}

// PrefabTable provides lookup of prefabs by name. Names and tags are stored
// in Unicode NFC so lookups match regardless of how the source was composed.
type PrefabTable struct {
	byName map[string]*Prefab
	order  []string
}

// LoadPrefabTable loads a prefabs.yaml file.
func LoadPrefabTable(path string) (*PrefabTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prefab list: %w", err)
	}
	t, err := ParsePrefabTable(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParsePrefabTable decodes prefab YAML from memory.
func ParsePrefabTable(raw []byte) (*PrefabTable, error) {
	var f prefabFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse prefab list: %w", err)
	}
	t := &PrefabTable{
		byName: make(map[string]*Prefab, len(f.Prefabs)),
		order:  make([]string, 0, len(f.Prefabs)),
	}
	for i := range f.Prefabs {
		p := &f.Prefabs[i]
		p.Name = normalize(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("prefab #%d has no name", i+1)
		}
		if _, dup := t.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate prefab %q", p.Name)
		}
		for j, tag := range p.Tags {
			p.Tags[j] = normalize(tag)
		}
		for j, c := range p.Components {
			if c.Kind == "" {
				return nil, fmt.Errorf("prefab %q component #%d has no kind", p.Name, j+1)
			}
			p.Components[j].Kind = strings.ToLower(c.Kind)
		}
		t.byName[p.Name] = p
		t.order = append(t.order, p.Name)
	}
	return t, nil
}

// Get returns the prefab with the given name, or nil if none.
func (t *PrefabTable) Get(name string) *Prefab {
	return t.byName[normalize(name)]
}

// Count returns the total number of prefabs loaded.
func (t *PrefabTable) Count() int {
	return len(t.byName)
}

// Names returns prefab names in file order.
func (t *PrefabTable) Names() []string {
	return append([]string(nil), t.order...)
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
