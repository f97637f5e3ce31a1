package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"tictactoe_live/internal/game"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

const recommendFn = "recommend_move"

// LuaPolicy runs a Lua script that defines recommend_move(board) and returns
// a zero-based row and column. board is a 1-based array of 9 numbers.
type LuaPolicy struct {
	name  string
	proto *lua.FunctionProto
}

// LoadLuaPolicy compiles the script at path.
func LoadLuaPolicy(path string) (*LuaPolicy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return compileLuaPolicy(f, path)
}

// NewLuaPolicy compiles a policy from source.
func NewLuaPolicy(name, source string) (*LuaPolicy, error) {
	return compileLuaPolicy(strings.NewReader(source), name)
}

func compileLuaPolicy(r io.Reader, name string) (*LuaPolicy, error) {
	chunk, err := parse.Parse(r, name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return &LuaPolicy{name: name, proto: proto}, nil
}

// newState opens only the libraries a policy needs.
func newState() (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, err
		}
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L, nil
}

func (p *LuaPolicy) RecommendMove(ctx context.Context, board [game.Cells]float64) (int, int, error) {
	L, err := newState()
	if err != nil {
		return 0, 0, err
	}
	defer L.Close()
	L.SetContext(ctx)

	L.Push(L.NewFunctionFromProto(p.proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return 0, 0, fmt.Errorf("run %s: %w", p.name, err)
	}

	fn, ok := L.GetGlobal(recommendFn).(*lua.LFunction)
	if !ok {
		return 0, 0, fmt.Errorf("%s does not define %s", p.name, recommendFn)
	}

	tbl := L.NewTable()
	for i, v := range board {
		tbl.RawSetInt(i+1, lua.LNumber(v))
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 2, Protect: true}, tbl); err != nil {
		return 0, 0, fmt.Errorf("%s: %w", recommendFn, err)
	}

	row, rowOK := L.Get(-2).(lua.LNumber)
	col, colOK := L.Get(-1).(lua.LNumber)
	L.Pop(2)
	if !rowOK || !colOK {
		return 0, 0, fmt.Errorf("%s must return two numbers", recommendFn)
	}
	return int(row), int(col), nil
}
