// generator.go contains the per-construct code generation: one method
// per AST statement/expression kind, each returning a fragment of NASM
// assembly text that gets concatenated into the enclosing function body.

package compiler

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/skx/nasmgo/ast"
	"github.com/skx/nasmgo/register"
)

// x64regs/x32regs/x8regs are System V AMD64 parameter registers, in
// declaration order, for 64-, 32- and 8-bit argument widths.
var (
	x64regs = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
	x32regs = []string{"edi", "esi", "edx", "ecx", "r8d", "r9d"}
	x8regs  = []string{"dil", "sil", "dl", "cl", "r8b", "r9b"}
)

// funcState is the compile-time state scoped to a single function: its
// local variable table and its monotonic if/while label counters.
type funcState struct {
	locals   *register.Locals
	ifCount  int
	whileCnt int
}

// paramReg returns the register a parameter at the given 0-based
// position should arrive in, sized for its type.
func paramReg(index int, t ast.VarType) (string, error) {
	if index < 0 || index >= 6 {
		return "", fmt.Errorf("internal error: parameter index %d out of range", index)
	}
	if t.Stars > 0 {
		return x64regs[index], nil
	}
	switch t.Base {
	case ast.LONG, ast.ANY:
		return x64regs[index], nil
	case ast.INT:
		return x32regs[index], nil
	case ast.BOOL, ast.CHAR:
		return x8regs[index], nil
	default:
		return "", fmt.Errorf("internal error: unknown data type %v", t)
	}
}

// returnReg returns the accumulator register an expression of the given
// type leaves its result in.
func returnReg(t ast.VarType) string {
	if t.Stars > 0 {
		return "rax"
	}
	switch t.Base {
	case ast.LONG, ast.ANY:
		return "rax"
	case ast.INT:
		return "eax"
	default: // BOOL, CHAR
		return "al"
	}
}

// sizeWord returns the NASM size-specifier word for a type's storage.
func sizeWord(t ast.VarType) string {
	if t.Stars > 0 {
		return "qword"
	}
	switch t.Base {
	case ast.LONG, ast.ANY:
		return "qword"
	case ast.INT:
		return "dword"
	default: // BOOL, CHAR
		return "byte"
	}
}

// emit builds the whole output assembly: program prologue, built-in
// stubs, every function body, the .data segment, and the empty .bss
// segment.
func (c *Compiler) emit() (string, error) {
	var out strings.Builder

	out.WriteString("[bits 64]\n")
	out.WriteString("segment .text\n")
	out.WriteString("\tglobal _start\n")
	out.WriteString("_start:\n")
	out.WriteString("\tmov rdi, [rsp]\n")
	out.WriteString("\tlea rsi, [rsp + 8]\n")
	out.WriteString("\tlea rdx, [rsp + rdi*8+8+8]\n")
	out.WriteString("\tcall main\n")
	out.WriteString("\tmov rdi, rax\n")
	out.WriteString("\tmov rax, 60\n")
	out.WriteString("\tsyscall\n")

	builtins, err := c.readBuiltins()
	if err != nil {
		return "", err
	}
	out.WriteString(builtins)

	if c.debug {
		out.WriteString("\t; debug build\n")
	}

	for _, fn := range c.functions {
		if fn.Kind != ast.StmtFunctionDecl {
			return "", fmt.Errorf("unknown top-level statement")
		}
		body, err := c.compileFunction(fn)
		if err != nil {
			return "", err
		}
		out.WriteString(body)
	}

	out.WriteString(c.dataSegment())
	out.WriteString("segment .bss\n")

	return out.String(), nil
}

// readBuiltins returns the concatenated contents of printint.asm and
// syscalls.asm, either from the embedded copies or, if SetBuiltinDir was
// called, from that directory on disk.
func (c *Compiler) readBuiltins() (string, error) {
	names := []string{"printint.asm", "syscalls.asm"}
	var out strings.Builder

	for _, name := range names {
		var (
			data []byte
			err  error
		)
		if c.builtinDir != "" {
			data, err = os.ReadFile(c.builtinDir + string(os.PathSeparator) + name)
		} else {
			data, err = fs.ReadFile(embeddedBuiltins, "builtin/"+name)
		}
		if err != nil {
			return "", fmt.Errorf("reading built-in %q: %w", name, err)
		}
		out.Write(data)
		out.WriteByte('\n')
	}

	return out.String(), nil
}

// dataSegment emits the .data segment holding the string-literal table.
func (c *Compiler) dataSegment() string {
	var out strings.Builder
	out.WriteString("segment .data\n")
	for i, s := range c.strings {
		out.WriteString(fmt.Sprintf("\tV%d db %s\n", i, escapeStringBytes(s)))
	}
	return out.String()
}

// escapeStringBytes renders a string literal's bytes as a comma-separated
// "0xHH" list with a trailing NUL terminator.
func escapeStringBytes(s string) string {
	var parts []string
	for i := 0; i < len(s); i++ {
		parts = append(parts, fmt.Sprintf("0x%02x", s[i]))
	}
	parts = append(parts, "0x00")
	return strings.Join(parts, ",")
}

// compileFunction generates a complete function: prologue, parameter
// spills, body, and the shared .retpoint epilogue.
func (c *Compiler) compileFunction(fn ast.Statement) (string, error) {
	if len(fn.Params) > 6 {
		return "", fmt.Errorf("no more than 6 arguments on functions are allowed")
	}

	fs := &funcState{locals: register.NewLocals()}
	var body strings.Builder

	paramTypes := make([]ast.VarType, len(fn.Params))
	for i, p := range fn.Params {
		loc, err := fs.locals.Declare(p.Name, p.Type)
		if err != nil {
			return "", err
		}
		reg, err := paramReg(i, p.Type)
		if err != nil {
			return "", err
		}
		body.WriteString(fmt.Sprintf("\tmov %s [rbp - %d], %s\n", sizeWord(p.Type), loc.Offset, reg))
		paramTypes[i] = p.Type
	}

	// The function becomes callable to everything compiled after this
	// point, including itself (forward references from earlier
	// functions are never resolved).
	c.globals.Declare(fn.Name, paramTypes)

	for _, stmt := range fn.Body {
		code, err := c.compileStatement(stmt, fs)
		if err != nil {
			return "", err
		}
		body.WriteString(code)
	}

	var out strings.Builder
	fmt.Fprintf(&out, "%s:\n\tpush rbp\n\tmov rbp, rsp\n\tsub rsp, %d\n", fn.Name, fs.locals.FrameSize())
	out.WriteString(body.String())
	fmt.Fprintf(&out, ".retpoint:\n\tadd rsp, %d\n\tpop rbp\n\tret\n", fs.locals.FrameSize())

	return out.String(), nil
}

// compileStatement dispatches on the statement kind.
func (c *Compiler) compileStatement(stmt ast.Statement, fs *funcState) (string, error) {
	switch stmt.Kind {
	case ast.StmtExpr:
		return c.compileExpr(*stmt.Expr, fs)
	case ast.StmtReturn:
		return c.compileReturn(stmt, fs)
	case ast.StmtVarDecl:
		return c.compileVarDecl(stmt, fs)
	case ast.StmtVarReassign:
		return c.compileVarReassign(stmt, fs)
	case ast.StmtIf:
		return c.compileIf(stmt, fs)
	case ast.StmtWhile:
		return c.compileWhile(stmt, fs)
	default:
		return "", fmt.Errorf("internal error: unknown statement kind %v", stmt.Kind)
	}
}

func (c *Compiler) compileReturn(stmt ast.Statement, fs *funcState) (string, error) {
	code, err := c.compileExpr(*stmt.Expr, fs)
	if err != nil {
		return "", err
	}
	return code + "\tjmp .retpoint\n", nil
}

func (c *Compiler) compileVarDecl(stmt ast.Statement, fs *funcState) (string, error) {
	code, err := c.compileExpr(*stmt.Expr, fs)
	if err != nil {
		return "", err
	}
	loc, err := fs.locals.Declare(stmt.Name, stmt.VarType)
	if err != nil {
		return "", err
	}
	code += fmt.Sprintf("\tmov %s [rbp - %d], %s\n", sizeWord(stmt.VarType), loc.Offset, returnReg(stmt.VarType))
	return code, nil
}

func (c *Compiler) compileVarReassign(stmt ast.Statement, fs *funcState) (string, error) {
	loc, ok := fs.locals.Lookup(stmt.Name)
	if !ok {
		return "", fmt.Errorf("trying to reassign an undeclared variable: %s", stmt.Name)
	}

	code, err := c.compileExpr(*stmt.Expr, fs)
	if err != nil {
		return "", err
	}

	if stmt.IsPtr {
		target := loc.Type
		target.Stars--
		code += fmt.Sprintf("\tmov rbx, [rbp - %d]\n", loc.Offset)
		code += fmt.Sprintf("\tmov %s [rbx], %s\n", sizeWord(target), returnReg(target))
		code += fmt.Sprintf("\tmov [rbp - %d], rbx\n", loc.Offset)
		return code, nil
	}

	code += fmt.Sprintf("\tmov [rbp - %d], %s\n", loc.Offset, returnReg(loc.Type))
	return code, nil
}

func (c *Compiler) compileIf(stmt ast.Statement, fs *funcState) (string, error) {
	n := fs.ifCount

	cond, err := c.compileExpr(stmt.Cond, fs)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.WriteString(cond)
	fmt.Fprintf(&out, "\tcmp eax, 0\n\tje .ELSE%d\n", n)

	for _, s := range stmt.Then {
		code, err := c.compileStatement(s, fs)
		if err != nil {
			return "", err
		}
		out.WriteString(code)
	}
	fmt.Fprintf(&out, "\tjmp .ENDIF%d\n", n)

	fmt.Fprintf(&out, ".ELSE%d:\n", n)
	for _, s := range stmt.Else {
		code, err := c.compileStatement(s, fs)
		if err != nil {
			return "", err
		}
		out.WriteString(code)
	}
	fmt.Fprintf(&out, ".ENDIF%d:\n", n)

	fs.ifCount++
	return out.String(), nil
}

func (c *Compiler) compileWhile(stmt ast.Statement, fs *funcState) (string, error) {
	n := fs.whileCnt
	fs.whileCnt++

	cond, err := c.compileExpr(stmt.Cond, fs)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	fmt.Fprintf(&out, ".WHILE%d:\n", n)
	out.WriteString(cond)
	fmt.Fprintf(&out, "\tcmp eax, 0\n\tje .ENDWHILE%d\n", n)

	for _, s := range stmt.Then {
		code, err := c.compileStatement(s, fs)
		if err != nil {
			return "", err
		}
		out.WriteString(code)
	}
	fmt.Fprintf(&out, "\tjmp .WHILE%d\n", n)
	fmt.Fprintf(&out, ".ENDWHILE%d:\n", n)

	return out.String(), nil
}

// compileExpr dispatches on the expression kind. Every arm leaves its
// result in the accumulator register matching its type's width.
func (c *Compiler) compileExpr(e ast.Expr, fs *funcState) (string, error) {
	switch e.Kind {
	case ast.ExprLiteralNumber:
		return fmt.Sprintf("\tmov rax, %d\n", e.Number), nil
	case ast.ExprLiteralBool:
		if e.Bool {
			return "\tmov rax, 1\n", nil
		}
		return "\tmov rax, 0\n", nil
	case ast.ExprLiteralString:
		return c.compileString(e), nil
	case ast.ExprVarRead:
		return c.compileVarRead(e, fs)
	case ast.ExprFuncCall:
		return c.compileFuncCall(e, fs)
	case ast.ExprOp:
		return c.compileOp(e, fs)
	default:
		return "", fmt.Errorf("internal error: unknown expression kind %v", e.Kind)
	}
}

// compileString registers a string literal in source order and returns
// code to load its data-segment label.
func (c *Compiler) compileString(e ast.Expr) string {
	idx := len(c.strings)
	c.strings = append(c.strings, e.String)
	return fmt.Sprintf("\tmov rax, V%d\n", idx)
}

// compileVarRead loads a local variable into its accumulator register,
// applying any leading pointer dereferences.
func (c *Compiler) compileVarRead(e ast.Expr, fs *funcState) (string, error) {
	loc, ok := fs.locals.Lookup(e.Name)
	if !ok {
		return "", fmt.Errorf("undefined variable: %s", e.Name)
	}

	var out strings.Builder
	lastReg := returnReg(loc.Type)
	fmt.Fprintf(&out, "\tmov %s, %s [rbp - %d]\n", lastReg, sizeWord(loc.Type), loc.Offset)

	vt := loc.Type
	for stars := e.DerefStars; stars > 0; stars-- {
		vt.Stars--
		newReg := returnReg(vt)
		fmt.Fprintf(&out, "\tmov %s, %s [%s]\n", newReg, sizeWord(vt), lastReg)
		if newReg == "al" {
			out.WriteString("\tmovzx rax, al\n")
		}
		lastReg = newReg
	}

	return out.String(), nil
}

// compileOp emits a conventional recursive left-associative lowering:
// evaluate lhs, push it, evaluate rhs, pop lhs back, then apply the
// per-operator sequence consuming (rbx=lhs, rax=rhs) and leaving the
// result in rax.
func (c *Compiler) compileOp(e ast.Expr, fs *funcState) (string, error) {
	lhs, err := c.compileExpr(*e.LHS, fs)
	if err != nil {
		return "", err
	}
	rhs, err := c.compileExpr(*e.RHS, fs)
	if err != nil {
		return "", err
	}

	opCode, err := operatorSequence(e.OpKind)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.WriteString(lhs)
	out.WriteString("\tpush rax\n")
	out.WriteString(rhs)
	out.WriteString("\tpop rbx\n")
	out.WriteString(opCode)
	return out.String(), nil
}

// operatorSequence returns the instruction sequence for a binary
// operator, consuming rbx (lhs) and rax (rhs) and leaving the result in
// rax.
func operatorSequence(op ast.OpKind) (string, error) {
	switch op {
	case ast.OpAdd:
		return "\tadd rax, rbx\n", nil

	case ast.OpSub:
		return "\tsub rbx, rax\n\tmov rax, rbx\n", nil

	case ast.OpMul:
		return "\timul rax, rbx\n", nil

	case ast.OpDiv:
		return "" +
			"\tpush rdx\n" +
			"\tmov rcx, rax\n" +
			"\tmov rax, rbx\n" +
			"\txor rdx, rdx\n" +
			"\tidiv rcx\n" +
			"\tpop rdx\n", nil

	case ast.OpMod:
		return "" +
			"\tpush rdx\n" +
			"\tmov rcx, rax\n" +
			"\tmov rax, rbx\n" +
			"\txor rdx, rdx\n" +
			"\tidiv rcx\n" +
			"\tmov rax, rdx\n" +
			"\tpop rdx\n", nil

	case ast.OpLT:
		return "\tcmp rbx, rax\n\tsetl al\n\tmovzx rax, al\n", nil

	case ast.OpGT:
		return "\tcmp rbx, rax\n\tsetg al\n\tmovzx rax, al\n", nil

	case ast.OpEQ:
		return "\tcmp rbx, rax\n\tsete al\n\tmovzx rax, al\n", nil

	case ast.OpNEQ:
		return "\tcmp rbx, rax\n\tsetne al\n\tmovzx rax, al\n", nil

	case ast.OpLTE:
		return "\tcmp rbx, rax\n\tsetle al\n\tmovzx rax, al\n", nil

	default:
		return "", fmt.Errorf("internal error: unknown operator %v", op)
	}
}

// compileFuncCall emits a call, checking arity against the global
// signature registry and using the two-pass argument-emission policy:
// call-typed arguments are emitted first, each moved straight into its
// target parameter register, to avoid clobbering parameter registers
// with the side effects of a nested call; then all remaining arguments.
func (c *Compiler) compileFuncCall(e ast.Expr, fs *funcState) (string, error) {
	sig, ok := c.globals.Lookup(e.Name)
	if !ok {
		return "", fmt.Errorf("undefined function: %s", e.Name)
	}
	if len(e.Args) > 6 {
		return "", fmt.Errorf("max number of params allowed in functions: 6")
	}
	if len(e.Args) != len(sig) {
		return "", fmt.Errorf("unexpected number of arguments on function call")
	}

	var out strings.Builder

	for i, arg := range e.Args {
		if arg.Kind != ast.ExprFuncCall {
			continue
		}
		code, err := c.compileExpr(arg, fs)
		if err != nil {
			return "", err
		}
		reg, err := paramReg(i, sig[i])
		if err != nil {
			return "", err
		}
		out.WriteString(code)
		fmt.Fprintf(&out, "\tmov %s, %s\n", reg, returnReg(sig[i]))
	}

	for i, arg := range e.Args {
		if arg.Kind == ast.ExprFuncCall {
			continue
		}
		code, err := c.compileExpr(arg, fs)
		if err != nil {
			return "", err
		}
		reg, err := paramReg(i, sig[i])
		if err != nil {
			return "", err
		}
		out.WriteString(code)
		fmt.Fprintf(&out, "\tmov %s, %s\n", reg, returnReg(sig[i]))
	}

	fmt.Fprintf(&out, "\tcall %s\n", e.Name)
	return out.String(), nil
}
