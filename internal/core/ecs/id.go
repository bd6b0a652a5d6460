package ecs

import "fmt"

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on release to invalidate stale refs.
// The zero ID is never minted.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// String is also the default display name of an entity.
func (id EntityID) String() string {
	if g := id.Generation(); g > 0 {
		return fmt.Sprintf("entity_%dg%d", id.Index(), g)
	}
	return fmt.Sprintf("entity_%d", id.Index())
}

// IDSource mints entity IDs. The Registry owns one; Release hands back the ID
// of a minted entity once it is destroyed.
type IDSource interface {
	Next() EntityID
	Release(id EntityID)
}

// IDPool manages ID allocation with generational indices and a free list.
// A released index comes back with a bumped generation, so IDs stay unique
// for the life of the process.
type IDPool struct {
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
}

func NewIDPool() *IDPool {
	return &IDPool{
		// index 0 is reserved so the zero EntityID is never handed out
		generations: make([]uint32, 1, 1024),
		freeList:    make([]uint32, 0, 256),
		nextIndex:   1,
	}
}

func (p *IDPool) Next() EntityID {
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		return NewEntityID(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	if int(idx) >= len(p.generations) {
		p.generations = append(p.generations, 0)
	}
	return NewEntityID(idx, p.generations[idx])
}

func (p *IDPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx == 0 || idx >= p.nextIndex {
		return false
	}
	if p.generations[idx] != id.Generation() {
		return false
	}
	for _, f := range p.freeList {
		if f == idx {
			return false
		}
	}
	return true
}

func (p *IDPool) Release(id EntityID) {
	idx := id.Index()
	if idx == 0 || idx >= p.nextIndex {
		return
	}
	if p.generations[idx] != id.Generation() {
		return // already released (stale reference)
	}
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
}

// Sequence hands out 1, 2, 3, ... and never reuses anything. Handy when
// tests want predictable IDs.
type Sequence struct {
	next uint64
}

func (s *Sequence) Next() EntityID {
	s.next++
	return EntityID(s.next)
}

func (s *Sequence) Release(EntityID) {}
