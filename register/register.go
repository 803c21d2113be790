// Package register holds the two symbol scopes the compiler consults: a
// process-wide function signature registry, and a per-function local
// variable table mapping name to frame offset and type.
package register

import (
	"fmt"

	"github.com/skx/nasmgo/ast"
)

// Global is the process-wide function signature registry: function name
// to its ordered parameter types. It is seeded with the built-in stub
// signatures before any user function is compiled.
type Global struct {
	functions map[string][]ast.VarType
}

// NewGlobal creates a registry seeded with the built-in signatures:
// printint(INT) and __syscall1..5(ANY...).
func NewGlobal() *Global {
	g := &Global{functions: make(map[string][]ast.VarType)}

	g.functions["printint"] = []ast.VarType{{Base: ast.INT}}

	any := ast.VarType{Base: ast.ANY}
	for n := 1; n <= 5; n++ {
		sig := make([]ast.VarType, n)
		for i := range sig {
			sig[i] = any
		}
		g.functions[fmt.Sprintf("__syscall%d", n)] = sig
	}

	return g
}

// Declare adds a user function's signature, making it visible to any
// call site that follows. Forward references are not supported: calls
// made before a function is declared will not find it.
func (g *Global) Declare(name string, params []ast.VarType) {
	g.functions[name] = params
}

// Lookup returns a function's parameter-type signature, and whether it
// is known at all.
func (g *Global) Lookup(name string) ([]ast.VarType, bool) {
	sig, ok := g.functions[name]
	return sig, ok
}

// Local describes where a declared variable lives: its frame offset
// below rbp, and its type.
type Local struct {
	Offset int
	Type   ast.VarType
}

// Locals is the per-function variable table. It is created on entry to
// a function and discarded at function end.
type Locals struct {
	vars   map[string]Local
	offset int
}

// NewLocals creates an empty local-variable table.
func NewLocals() *Locals {
	return &Locals{vars: make(map[string]Local)}
}

// Declare installs a new local at the next frame offset, advancing the
// offset by the type's byte size. It is an error to redeclare a name
// already present in this function.
func (l *Locals) Declare(name string, t ast.VarType) (Local, error) {
	if _, ok := l.vars[name]; ok {
		return Local{}, fmt.Errorf("variable already declared before: %s", name)
	}
	l.offset += sizeOf(t)
	loc := Local{Offset: l.offset, Type: t}
	l.vars[name] = loc
	return loc, nil
}

// Lookup returns a previously declared local, and whether it exists.
func (l *Locals) Lookup(name string) (Local, bool) {
	loc, ok := l.vars[name]
	return loc, ok
}

// FrameSize returns the total byte size of the function's stack frame
// as currently declared.
func (l *Locals) FrameSize() int {
	return l.offset
}

// sizeOf returns the byte size a VarType occupies on the stack.
func sizeOf(t ast.VarType) int {
	if t.Stars > 0 {
		return 8
	}
	switch t.Base {
	case ast.LONG, ast.ANY:
		return 8
	case ast.INT:
		return 4
	case ast.BOOL, ast.CHAR:
		return 1
	default:
		return 8
	}
}
