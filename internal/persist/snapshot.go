package persist

import (
	"encoding/binary"
	"math"
	"slices"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/scene"
)

// EntitySnapshot is the persisted view of one registered entity.
type EntitySnapshot struct {
	ID     ecs.EntityID
	Name   string
	Tags   []string // sorted
	Active bool
	X, Y   float64
	State  map[string]float64 // "<component key>.<field>" -> value
}

// Stateful components contribute numeric fields to snapshots. Key must be
// stable and unique among an entity's components.
type Stateful interface {
	StateKey() string
	SaveState() map[string]float64
	LoadState(map[string]float64)
}

// Capture snapshots every registered entity, sorted by ID.
func Capture(reg *ecs.Registry) []EntitySnapshot {
	all := reg.All()
	out := make([]EntitySnapshot, 0, len(all))
	for _, e := range all {
		pos := e.Position()
		s := EntitySnapshot{
			ID:     e.ID(),
			Name:   e.Name(),
			Tags:   e.Tags(),
			Active: e.Active(),
			X:      pos.X,
			Y:      pos.Y,
		}
		for _, c := range e.Components() {
			st, ok := c.(Stateful)
			if !ok {
				continue
			}
			if s.State == nil {
				s.State = make(map[string]float64)
			}
			prefix := st.StateKey() + "."
			for k, v := range st.SaveState() {
				s.State[prefix+k] = v
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RestoreResult reports how a Restore went.
type RestoreResult struct {
	Applied int
	Missing []EntitySnapshot // no live entity matched by ID or name
}

// Restore writes snapshot state back onto live entities. Each snapshot is
// matched by ID first, then by name. Position, active flag, tags and
// Stateful component fields are overwritten; entities are never created or
// removed.
func Restore(reg *ecs.Registry, snaps []EntitySnapshot) RestoreResult {
	var res RestoreResult
	for _, s := range snaps {
		e, ok := reg.Get(s.ID)
		if !ok {
			e, ok = reg.GetByName(s.Name)
		}
		if !ok {
			res.Missing = append(res.Missing, s)
			continue
		}
		apply(e, s)
		res.Applied++
	}
	return res
}

func apply(e *ecs.Entity, s EntitySnapshot) {
	e.SetPosition(scene.Vec2{X: s.X, Y: s.Y})
	for _, t := range e.Tags() {
		if !slices.Contains(s.Tags, t) {
			e.RemoveTag(t)
		}
	}
	for _, t := range s.Tags {
		e.AddTag(t)
	}
	for _, c := range e.Components() {
		st, ok := c.(Stateful)
		if !ok {
			continue
		}
		prefix := st.StateKey() + "."
		fields := make(map[string]float64)
		for k, v := range s.State {
			if name, ok := strings.CutPrefix(k, prefix); ok && name != "" {
				fields[name] = v
			}
		}
		if len(fields) > 0 {
			st.LoadState(fields)
		}
	}
	e.SetActive(s.Active)
}

// Checksum hashes snapshots with BLAKE2b-256 over a canonical encoding:
// entities in ID order, tags sorted, state keys sorted.
func Checksum(snaps []EntitySnapshot) []byte {
	h, _ := blake2b.New256(nil)
	sorted := slices.Clone(snaps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var buf [8]byte
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	putStr := func(s string) {
		putU64(uint64(len(s)))
		h.Write([]byte(s))
	}

	putU64(uint64(len(sorted)))
	for _, s := range sorted {
		putU64(uint64(s.ID))
		putStr(s.Name)
		tags := slices.Clone(s.Tags)
		slices.Sort(tags)
		putU64(uint64(len(tags)))
		for _, t := range tags {
			putStr(t)
		}
		if s.Active {
			putU64(1)
		} else {
			putU64(0)
		}
		putU64(math.Float64bits(s.X))
		putU64(math.Float64bits(s.Y))
		keys := make([]string, 0, len(s.State))
		for k := range s.State {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		putU64(uint64(len(keys)))
		for _, k := range keys {
			putStr(k)
			putU64(math.Float64bits(s.State[k]))
		}
	}
	return h.Sum(nil)
}
