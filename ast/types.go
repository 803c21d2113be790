// Package ast defines the typed intermediate representation produced by
// the parser and consumed by the code generator: variable types, and the
// tagged-variant Expr/Statement trees.
package ast

import "fmt"

// BaseType is the scalar portion of a VarType.
type BaseType byte

// pre-defined BaseType values.
const (
	INT BaseType = iota
	LONG
	BOOL
	CHAR
	// ANY matches any argument at call-type-check time; reserved for
	// built-in signatures.
	ANY
)

func (b BaseType) String() string {
	switch b {
	case INT:
		return "int"
	case LONG:
		return "long"
	case BOOL:
		return "bool"
	case CHAR:
		return "char"
	case ANY:
		return "any"
	default:
		return "unknown"
	}
}

// VarType is a scalar base type plus a pointer-indirection depth.
type VarType struct {
	Base  BaseType
	Stars int
}

func (v VarType) String() string {
	s := v.Base.String()
	for i := 0; i < v.Stars; i++ {
		s += "*"
	}
	return s
}

// VarTypeFromName resolves a type-name token ("int", "bool", "long",
// "str") to a VarType. "str" is treated as an alias for a CHAR pointer,
// per the backend's CHAR*-like treatment of string literals.
func VarTypeFromName(name string) (VarType, error) {
	switch name {
	case "int":
		return VarType{Base: INT}, nil
	case "bool":
		return VarType{Base: BOOL}, nil
	case "long":
		return VarType{Base: LONG}, nil
	case "str":
		return VarType{Base: CHAR, Stars: 1}, nil
	default:
		return VarType{}, fmt.Errorf("unknown type %q (types allowed: int, bool, long, str)", name)
	}
}
