package compiler

import (
	"strings"
	"testing"

	"github.com/skx/nasmgo/ast"
)

// TestParamReg checks register selection by width and position.
func TestParamReg(t *testing.T) {
	tests := []struct {
		index    int
		t        ast.VarType
		expected string
	}{
		{0, ast.VarType{Base: ast.INT}, "edi"},
		{1, ast.VarType{Base: ast.INT}, "esi"},
		{0, ast.VarType{Base: ast.LONG}, "rdi"},
		{0, ast.VarType{Base: ast.BOOL}, "dil"},
		{2, ast.VarType{Base: ast.CHAR}, "dl"},
		{0, ast.VarType{Base: ast.CHAR, Stars: 1}, "rdi"},
	}

	for _, tt := range tests {
		got, err := paramReg(tt.index, tt.t)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if got != tt.expected {
			t.Errorf("paramReg(%d, %v) = %q, expected %q", tt.index, tt.t, got, tt.expected)
		}
	}

	if _, err := paramReg(6, ast.VarType{Base: ast.INT}); err == nil {
		t.Errorf("expected an error for an out-of-range parameter index")
	}
}

// TestReturnRegAndSizeWord checks the accumulator register and storage
// size-specifier picked for each base type.
func TestReturnRegAndSizeWord(t *testing.T) {
	tests := []struct {
		t        ast.VarType
		wantReg  string
		wantSize string
	}{
		{ast.VarType{Base: ast.INT}, "eax", "dword"},
		{ast.VarType{Base: ast.LONG}, "rax", "qword"},
		{ast.VarType{Base: ast.BOOL}, "al", "byte"},
		{ast.VarType{Base: ast.CHAR}, "al", "byte"},
		{ast.VarType{Base: ast.CHAR, Stars: 1}, "rax", "qword"},
	}

	for _, tt := range tests {
		if got := returnReg(tt.t); got != tt.wantReg {
			t.Errorf("returnReg(%v) = %q, expected %q", tt.t, got, tt.wantReg)
		}
		if got := sizeWord(tt.t); got != tt.wantSize {
			t.Errorf("sizeWord(%v) = %q, expected %q", tt.t, got, tt.wantSize)
		}
	}
}

// TestOperatorSequence just calls every operator branch, to ensure they
// are all covered and each yields a non-empty instruction sequence.
func TestOperatorSequence(t *testing.T) {
	ops := []ast.OpKind{
		ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod,
		ast.OpLT, ast.OpGT, ast.OpEQ, ast.OpNEQ, ast.OpLTE,
	}

	for _, op := range ops {
		code, err := operatorSequence(op)
		if err != nil {
			t.Fatalf("unexpected error for op %v: %s", op, err)
		}
		if code == "" {
			t.Errorf("expected a non-empty instruction sequence for op %v", op)
		}
	}
}

// TestEscapeStringBytes checks the "hi" -> "0x68,0x69,0x00" rendering,
// with a trailing NUL terminator.
func TestEscapeStringBytes(t *testing.T) {
	got := escapeStringBytes("hi")
	want := "0x68,0x69,0x00"
	if got != want {
		t.Errorf("escapeStringBytes(%q) = %q, expected %q", "hi", got, want)
	}
}

// TestCompileArithmeticPrecedence traces "1 + 2 * 3" through the whole
// pipeline and checks the emitted operator sequence matches the
// left-to-right, multiply-before-add evaluation order.
func TestCompileArithmeticPrecedence(t *testing.T) {
	c := New("fnc main() > int { return 1 + 2 * 3; }")
	out, err := c.Compile()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	// "2 * 3" must be evaluated before being added to 1: the "imul"
	// instruction should appear before the final "add".
	mulIdx := strings.Index(out, "imul rax, rbx")
	addIdx := strings.Index(out, "add rax, rbx")
	if mulIdx == -1 || addIdx == -1 || mulIdx > addIdx {
		t.Errorf("expected imul before add in:\n%s", out)
	}
}

// TestCompileIfElseLabels checks that if/else compiles to a matching
// pair of ELSE/ENDIF labels.
func TestCompileIfElseLabels(t *testing.T) {
	c := New("fnc main() > int { if 1 == 1 { return 1; } else { return 0; } }")
	out, err := c.Compile()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	for _, label := range []string{".ELSE0:", ".ENDIF0:"} {
		if !strings.Contains(out, label) {
			t.Errorf("expected label %s in:\n%s", label, out)
		}
	}
}

// TestCompileWhileLabels checks that a while loop compiles to a
// matching pair of WHILE/ENDWHILE labels.
func TestCompileWhileLabels(t *testing.T) {
	c := New("fnc main() > int { var a: int = 0; while a < 3 { a = a + 1; } return a; }")
	out, err := c.Compile()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	for _, label := range []string{".WHILE0:", ".ENDWHILE0:"} {
		if !strings.Contains(out, label) {
			t.Errorf("expected label %s in:\n%s", label, out)
		}
	}
}

// TestCompileFunctionCallTwoPassOrdering checks that a call-typed
// argument (here, the second one) is fully evaluated and moved into its
// parameter register before the first, literal argument is loaded, per
// the two-pass argument-emission policy: this keeps the nested call
// from clobbering a register a literal has already been placed in.
func TestCompileFunctionCallTwoPassOrdering(t *testing.T) {
	c := New(`
		fnc one() > int { return 1; }
		fnc add(a: int, b: int) > int { return a + b; }
		fnc main() > int { return add(2, one()); }
	`)
	out, err := c.Compile()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	callAddIdx := strings.Index(out, "call add")
	if callAddIdx == -1 {
		t.Fatalf("expected a call to add:\n%s", out)
	}
	before := out[:callAddIdx]

	callOneIdx := strings.Index(before, "call one")
	moveEsiIdx := strings.Index(before, "mov esi, eax")
	moveEdiIdx := strings.LastIndex(before, "mov edi, eax")

	if callOneIdx == -1 || moveEsiIdx == -1 || moveEdiIdx == -1 {
		t.Fatalf("missing expected instructions before call add:\n%s", out)
	}
	if !(callOneIdx < moveEsiIdx && moveEsiIdx < moveEdiIdx) {
		t.Errorf("expected call one, then its result moved into esi, then the literal moved into edi:\n%s", out)
	}
}
