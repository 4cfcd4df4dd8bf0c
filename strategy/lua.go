package strategy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	luajson "layeh.com/gopher-json"

	"github.com/domino14/dilemma/game"
)

const (
	ScriptExt = ".lua"
	// ScriptEntry is the global function every script must define. It is
	// called as strategy(history, memory) and returns move, memory.
	ScriptEntry = "strategy"
)

// Scripts only get the pure libraries: no io, os or debug.
var scriptLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.LoadLibName, lua.OpenPackage},
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// NewScriptFactory compiles the script at path once; every instance gets
// its own Lua state.
func NewScriptFactory(path string) (Factory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return compile(bufio.NewReader(f), path)
}

// NewScriptFactoryFromString is like NewScriptFactory for inline source.
func NewScriptFactoryFromString(name, src string) (Factory, error) {
	return compile(strings.NewReader(src), name)
}

func compile(r io.Reader, name string) (Factory, error) {
	chunk, err := parse.Parse(r, name)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", name, err)
	}
	return func() (game.Strategy, error) {
		s, err := newScript(proto)
		if err != nil {
			return nil, err
		}
		return s, nil
	}, nil
}

// script is a strategy backed by a Lua state. Not safe for concurrent use.
type script struct {
	L  *lua.LState
	fn *lua.LFunction
}

func newScript(proto *lua.FunctionProto) (*script, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range scriptLibs {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true},
			lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, err
		}
	}
	luajson.Preload(L)

	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		L.Close()
		return nil, err
	}
	fn, ok := L.GetGlobal(ScriptEntry).(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("script does not define a %s function", ScriptEntry)
	}
	return &script{L: L, fn: fn}, nil
}

// Decide calls strategy(history, memory). history[1] holds the script's
// own moves and history[2] its opponent's, as 0 (defect) / 1 (cooperate).
func (s *script) Decide(h game.View, mem game.Memory) (game.Move, game.Memory, error) {
	hist := s.L.CreateTable(2, 0)
	own := s.L.CreateTable(h.Len(), 0)
	opp := s.L.CreateTable(h.Len(), 0)
	for t := 0; t < h.Len(); t++ {
		own.RawSetInt(t+1, lua.LNumber(h.Own(t)))
		opp.RawSetInt(t+1, lua.LNumber(h.Opp(t)))
	}
	hist.RawSetInt(1, own)
	hist.RawSetInt(2, opp)

	var lmem lua.LValue = lua.LNil
	if mem != nil {
		lmem = mem.(lua.LValue)
	}
	if err := s.L.CallByParam(lua.P{Fn: s.fn, NRet: 2, Protect: true}, hist, lmem); err != nil {
		return 0, nil, err
	}
	ret := s.L.Get(-2)
	newMem := s.L.Get(-1)
	s.L.Pop(2)

	var move game.Move
	switch v := ret.(type) {
	case lua.LNumber:
		move = game.ParseMove(float64(v))
	case lua.LString:
		move = game.ParseMove(string(v))
	case lua.LBool:
		move = game.ParseMove(bool(v))
	default:
		return 0, nil, errors.New("script returned no move")
	}
	if newMem == lua.LNil {
		return move, nil, nil
	}
	return move, newMem, nil
}

func (s *script) Close() error {
	s.L.Close()
	return nil
}
