package reconcile

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
)

// LuaMatcher computes keys with a user supplied Lua function:
//
//	function key(name) return string.lower(name) end
type LuaMatcher struct {
	mu sync.Mutex
	L  *lua.LState
	fn lua.LValue
}

// NewLuaMatcher compiles script and checks that it defines key(name).
func NewLuaMatcher(script string) (*LuaMatcher, error) {
	if script == "" {
		return nil, errors.New("lua matcher requires a key script")
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: false})
	if err := L.DoString(script); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to load key script: %w", err)
	}

	fn := L.GetGlobal("key")
	if fn.Type() != lua.LTFunction {
		L.Close()
		return nil, errors.New("key script must define a function key(name)")
	}

	m := &LuaMatcher{L: L, fn: fn}
	if _, err := m.call(""); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// Key implements Matcher. A failing script falls back to the raw name.
func (m *LuaMatcher) Key(name string) string {
	key, err := m.call(name)
	if err != nil {
		log.Warn().Err(err).Str("name", name).Msg("Key script failed, using exact name")
		return name
	}
	return key
}

func (m *LuaMatcher) call(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.L.CallByParam(lua.P{Fn: m.fn, NRet: 1, Protect: true}, lua.LString(name)); err != nil {
		return "", fmt.Errorf("key script: %w", err)
	}
	ret := m.L.Get(-1)
	m.L.Pop(1)

	str, ok := ret.(lua.LString)
	if !ok {
		return "", fmt.Errorf("key script returned %s, want string", ret.Type())
	}
	return string(str), nil
}

// Close releases the Lua state.
func (m *LuaMatcher) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.L.Close()
}
