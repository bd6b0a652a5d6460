// Package scene is the minimal spatial graph entities are attached to.
// Rendering lives elsewhere; a Node only tracks position, visibility and
// parent/child links.
package scene

import "math"

// Vec2 is a 2D world-space position or direction.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Len() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64  { return v.Sub(o).Len() }
func (v Vec2) IsZero() bool         { return v.X == 0 && v.Y == 0 }

// Eq reports whether both coordinates are within eps of o.
func (v Vec2) Eq(o Vec2, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps
}

// Normalize returns the unit vector, or the zero vector for zero input.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Container is anything nodes can be inserted into and removed from.
type Container interface {
	AddChild(n *Node)
	RemoveChild(n *Node)
}

// Node is a scene graph element. The zero value is not usable; use NewNode.
// Accessed only from the simulation goroutine.
type Node struct {
	Position Vec2

	visible  bool
	parent   *Node
	children []*Node
}

func NewNode() *Node {
	return &Node{visible: true}
}

func (n *Node) Visible() bool     { return n.visible }
func (n *Node) SetVisible(v bool) { n.visible = v }
func (n *Node) Parent() *Node     { return n.parent }
func (n *Node) ChildCount() int   { return len(n.children) }

// Children returns a copy of the child list in insertion order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// AddChild reparents c under n. Adding an existing child is a no-op.
func (n *Node) AddChild(c *Node) {
	if c == nil || c == n || c.parent == n {
		return
	}
	if c.parent != nil {
		c.parent.RemoveChild(c)
	}
	c.parent = n
	n.children = append(n.children, c)
}

// RemoveChild detaches c if it is a direct child of n.
func (n *Node) RemoveChild(c *Node) {
	if c == nil || c.parent != n {
		return
	}
	for i, ch := range n.children {
		if ch == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			break
		}
	}
	c.parent = nil
}

// RemoveFromParent detaches n from whatever node currently holds it.
func (n *Node) RemoveFromParent() {
	if n.parent != nil {
		n.parent.RemoveChild(n)
	}
}

// Walk visits n and all descendants depth-first. Returning false from fn
// skips that node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}
