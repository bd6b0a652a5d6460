package scripting

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/scene"
)

// Behavior is a component whose hooks are Lua functions from a behavior
// definition. An entity carries at most one Behavior.
//
// Each instance gets a private self table. Its state field survives detach
// and re-attach; the rest is rebuilt on attach.
type Behavior struct {
	ecs.Base
	engine *Engine
	name   string
	def    *lua.LTable
	self   *lua.LTable
	state  *lua.LTable
}

// Name is the behavior definition this instance was created from.
func (b *Behavior) Name() string { return b.name }

// State returns the Lua value stored under key in self.state.
func (b *Behavior) State(key string) lua.LValue {
	if b.state == nil {
		return lua.LNil
	}
	return b.state.RawGetString(key)
}

func (b *Behavior) OnAttach() {
	b.self = b.newSelf()
	b.invoke("on_attach")
}

func (b *Behavior) OnDetach() {
	b.invoke("on_detach")
}

func (b *Behavior) OnEnable()  { b.invoke("on_enable") }
func (b *Behavior) OnDisable() { b.invoke("on_disable") }

// Update calls update(self, dt) with dt in seconds.
func (b *Behavior) Update(dt time.Duration) {
	b.invoke("update", lua.LNumber(dt.Seconds()))
}

func (b *Behavior) invoke(hook string, args ...lua.LValue) {
	if b.self == nil {
		return
	}
	fn := b.def.RawGetString(hook)
	if fn == lua.LNil {
		return
	}
	if owner := b.Owner(); owner != nil {
		b.self.RawSetString("name", lua.LString(owner.Name()))
	}
	b.engine.call(b.name, hook, fn, append([]lua.LValue{b.self}, args...)...)
}

// newSelf builds the table passed as the first argument to every hook.
// Methods accept both self:method() and self.method() call styles.
func (b *Behavior) newSelf() *lua.LTable {
	L := b.engine.vm
	if b.state == nil {
		b.state = L.NewTable()
	}
	self := L.NewTable()
	self.RawSetString("behavior", lua.LString(b.name))
	self.RawSetString("state", b.state)
	if owner := b.Owner(); owner != nil {
		self.RawSetString("id", lua.LString(owner.ID().String()))
		self.RawSetString("name", lua.LString(owner.Name()))
	}

	self.RawSetString("x", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(b.position().X))
		return 1
	}))
	self.RawSetString("y", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(b.position().Y))
		return 1
	}))
	self.RawSetString("move", L.NewFunction(func(L *lua.LState) int {
		i := firstArg(L)
		dx := float64(L.CheckNumber(i))
		dy := float64(L.CheckNumber(i + 1))
		if owner := b.Owner(); owner != nil {
			owner.Translate(scene.Vec2{X: dx, Y: dy})
		}
		return 0
	}))
	self.RawSetString("set_position", L.NewFunction(func(L *lua.LState) int {
		i := firstArg(L)
		x := float64(L.CheckNumber(i))
		y := float64(L.CheckNumber(i + 1))
		if owner := b.Owner(); owner != nil {
			owner.SetPosition(scene.Vec2{X: x, Y: y})
		}
		return 0
	}))
	self.RawSetString("has_tag", L.NewFunction(func(L *lua.LState) int {
		tag := L.CheckString(firstArg(L))
		owner := b.Owner()
		L.Push(lua.LBool(owner != nil && owner.HasTag(tag)))
		return 1
	}))
	self.RawSetString("add_tag", L.NewFunction(func(L *lua.LState) int {
		tag := L.CheckString(firstArg(L))
		if owner := b.Owner(); owner != nil {
			owner.AddTag(tag)
		}
		return 0
	}))
	self.RawSetString("remove_tag", L.NewFunction(func(L *lua.LState) int {
		tag := L.CheckString(firstArg(L))
		if owner := b.Owner(); owner != nil {
			owner.RemoveTag(tag)
		}
		return 0
	}))
	self.RawSetString("set_active", L.NewFunction(func(L *lua.LState) int {
		active := L.ToBool(firstArg(L))
		if owner := b.Owner(); owner != nil {
			owner.SetActive(active)
		}
		return 0
	}))
	self.RawSetString("active", L.NewFunction(func(L *lua.LState) int {
		owner := b.Owner()
		L.Push(lua.LBool(owner != nil && owner.Active()))
		return 1
	}))
	self.RawSetString("destroy", L.NewFunction(func(L *lua.LState) int {
		ecs.DestroyComponent(b)
		return 0
	}))
	return self
}

func (b *Behavior) position() scene.Vec2 {
	if owner := b.Owner(); owner != nil {
		return owner.Position()
	}
	return scene.Vec2{}
}

// firstArg skips the receiver table of a colon call.
func firstArg(L *lua.LState) int {
	if L.GetTop() > 0 && L.Get(1).Type() == lua.LTTable {
		return 2
	}
	return 1
}
