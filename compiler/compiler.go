// The compiler-package contains the core of our compiler.
//
// In brief we go through a three-step process:
//
//  1.  Use the lexer to tokenize the source file.
//
//  2.  Parse the tokens into a sequence of top-level function
//      declarations (the AST).
//
//  3.  Walk each function once, generating NASM assembly for its body.
//
// There is one minor complication - string literals are collected into
// a list as they're discovered, and emitted into the .data segment once
// the body of the program has been generated.
package compiler

import (
	"embed"
	"fmt"

	"github.com/skx/nasmgo/ast"
	"github.com/skx/nasmgo/lexer"
	"github.com/skx/nasmgo/parser"
	"github.com/skx/nasmgo/register"
)

//go:embed builtin/printint.asm builtin/syscalls.asm
var embeddedBuiltins embed.FS

// Compiler holds our object-state.
type Compiler struct {

	// debug holds a flag to decide if debugging "stuff" is generated
	// in the output assembly.
	debug bool

	// source holds the source text we're compiling.
	source string

	// builtinDir, if set, overrides the embedded builtin assembly
	// files with files read from this directory on disk.
	builtinDir string

	// functions is the parsed sequence of top-level function
	// declarations.
	functions []ast.Statement

	// globals is the process-wide function signature registry.
	globals *register.Global

	// strings holds string literals in source order; their index is
	// their eventual "V{i}" label.
	strings []string
}

// New creates a new compiler, given the source text in the constructor.
func New(source string) *Compiler {
	return &Compiler{source: source, globals: register.NewGlobal()}
}

// SetDebug changes the debug-flag for our output.
func (c *Compiler) SetDebug(val bool) {
	c.debug = val
}

// SetBuiltinDir overrides the embedded builtin assembly with files read
// from the given directory at Compile() time.
func (c *Compiler) SetBuiltinDir(dir string) {
	c.builtinDir = dir
}

// Compile converts the source program into a single blob of AMD64 NASM
// assembly.
func (c *Compiler) Compile() (string, error) {
	if err := c.parse(); err != nil {
		return "", err
	}

	return c.emit()
}

// parse tokenizes and parses the source text, populating c.functions.
func (c *Compiler) parse() error {
	lex := lexer.New(c.source)
	if err := lex.Tokenize(); err != nil {
		return fmt.Errorf("lexing failed: %w", err)
	}

	funcs, err := parser.New(lex).ParseProgram()
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}
	if len(funcs) == 0 {
		return fmt.Errorf("the input program declared no functions")
	}

	c.functions = funcs
	return nil
}
