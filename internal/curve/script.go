package curve

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Script is a user-defined curve backed by a Lua chunk that declares
// global apply(volume) and inverse(brightness) functions. Outputs are
// clamped to [0,1] like the built-in curves, so a misbehaving script
// cannot violate the range invariant.
//
// A single LState is not safe for concurrent use, so calls are
// serialized internally. Callers need no synchronization of their own.
type Script struct {
	name string

	mu      sync.Mutex
	state   *lua.LState
	apply   lua.LValue
	inverse lua.LValue
}

// NewScript compiles the Lua source and resolves its apply/inverse
// functions. The returned curve owns the Lua state for its lifetime.
func NewScript(name, source string) (*Script, error) {
	L := lua.NewState()
	if err := L.DoString(source); err != nil {
		L.Close()
		return nil, fmt.Errorf("curve script %q: %w", name, err)
	}

	apply := L.GetGlobal("apply")
	if apply.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("curve script %q: missing apply function", name)
	}
	inverse := L.GetGlobal("inverse")
	if inverse.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("curve script %q: missing inverse function", name)
	}

	return &Script{name: name, state: L, apply: apply, inverse: inverse}, nil
}

func (c *Script) Apply(volume float64) float64 {
	return c.call(c.apply, clamp(volume))
}

func (c *Script) Inverse(brightness float64) float64 {
	return c.call(c.inverse, clamp(brightness))
}

func (c *Script) Name() string { return c.name }

// Close releases the underlying Lua state.
func (c *Script) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != nil {
		c.state.Close()
		c.state = nil
	}
}

func (c *Script) call(fn lua.LValue, arg float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return clamp(arg)
	}

	if err := c.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LNumber(arg)); err != nil {
		// A scripted curve must stay total; fall back to identity.
		return clamp(arg)
	}
	ret := c.state.Get(-1)
	c.state.Pop(1)

	n, ok := ret.(lua.LNumber)
	if !ok {
		return clamp(arg)
	}
	return clamp(float64(n))
}
