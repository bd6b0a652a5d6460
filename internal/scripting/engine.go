package scripting

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ErrNoBehavior is returned by NewBehavior for names no script registered.
var ErrNoBehavior = errors.New("scripting: no such behavior")

// Engine wraps a single gopher-lua VM holding behavior definitions.
// Single-goroutine access only (game loop).
type Engine struct {
	vm   *lua.LState
	log  *zap.Logger
	defs map[string]*lua.LTable
}

// NewEngine creates a Lua engine and loads every *.lua file under dir,
// shallower files first so nested scripts can use what the top level
// defines. An empty dir or a missing directory yields an engine with no
// behaviors.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log, defs: make(map[string]*lua.LTable)}
	vm.SetGlobal("behavior", vm.NewFunction(e.luaBehavior))
	vm.SetGlobal("log", vm.NewFunction(e.luaLog))

	if dir == "" {
		return e, nil
	}
	paths, err := scriptPaths(dir)
	if err != nil {
		vm.Close()
		return nil, fmt.Errorf("scan scripts: %w", err)
	}
	for _, path := range paths {
		if err := vm.DoFile(path); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		log.Debug("loaded lua script", zap.String("file", path))
	}
	log.Info("lua scripts loaded", zap.Int("files", len(paths)), zap.Int("behaviors", len(e.defs)))
	return e, nil
}

// scriptPaths lists the .lua files under root ordered by depth, then path.
func scriptPaths(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".lua" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	depth := func(p string) int { return strings.Count(p, string(filepath.Separator)) }
	sort.SliceStable(paths, func(i, j int) bool {
		if di, dj := depth(paths[i]), depth(paths[j]); di != dj {
			return di < dj
		}
		return paths[i] < paths[j]
	})
	return paths, nil
}

// LoadString runs a chunk of Lua source. name is used in error messages.
func (e *Engine) LoadString(name, src string) error {
	fn, err := e.vm.Load(strings.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("compile %s: %w", name, err)
	}
	e.vm.Push(fn)
	if err := e.vm.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

// Has reports whether a behavior with this name is registered.
func (e *Engine) Has(name string) bool {
	_, ok := e.defs[name]
	return ok
}

// Names lists registered behaviors, sorted.
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.defs))
	for n := range e.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewBehavior instantiates a registered behavior as an attachable component.
func (e *Engine) NewBehavior(name string) (*Behavior, error) {
	def, ok := e.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoBehavior, name)
	}
	return &Behavior{engine: e, name: name, def: def}, nil
}

// CalcDamage calls Lua calc_damage(base, target_hp) when a script defines
// it. Without the function, or on a Lua error, base is returned unchanged.
func (e *Engine) CalcDamage(base, targetHP int) int {
	fn := e.vm.GetGlobal("calc_damage")
	if fn == lua.LNil {
		return base
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(base), lua.LNumber(targetHP)); err != nil {
		e.log.Error("lua calc_damage error", zap.Error(err))
		return base
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua calc_damage returned non-number", zap.String("type", result.Type().String()))
		return base
	}
	return int(n)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// behavior(name, table) registers a behavior definition. Redefinition
// replaces the earlier one for instances created afterwards.
func (e *Engine) luaBehavior(L *lua.LState) int {
	name := L.CheckString(1)
	def := L.CheckTable(2)
	if name == "" {
		L.ArgError(1, "behavior name must not be empty")
		return 0
	}
	if _, dup := e.defs[name]; dup {
		e.log.Debug("lua behavior redefined", zap.String("behavior", name))
	}
	e.defs[name] = def
	return 0
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

// call invokes fn in protected mode. Errors are logged, never returned.
func (e *Engine) call(behavior, hook string, fn lua.LValue, args ...lua.LValue) {
	if fn.Type() != lua.LTFunction {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua behavior error",
			zap.String("behavior", behavior),
			zap.String("hook", hook),
			zap.Error(err),
		)
	}
}
