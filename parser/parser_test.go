package parser

import (
	"testing"

	"github.com/skx/nasmgo/ast"
	"github.com/skx/nasmgo/lexer"
)

func parse(t *testing.T, src string) []ast.Statement {
	t.Helper()
	l := lexer.New(src)
	if err := l.Tokenize(); err != nil {
		t.Fatalf("unexpected tokenize error: %s", err)
	}
	funcs, err := New(l).ParseProgram()
	if err != nil {
		t.Fatalf("unexpected parse error: %s", err)
	}
	return funcs
}

func TestParseMinimalFunction(t *testing.T) {
	funcs := parse(t, `fnc main(argc: int, argv: long, envp: long) > int { return 0; }`)
	if len(funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(funcs))
	}
	fn := funcs[0]
	if fn.Name != "main" {
		t.Fatalf("expected main, got %s", fn.Name)
	}
	if len(fn.Params) != 3 {
		t.Fatalf("expected 3 params, got %d", len(fn.Params))
	}
	if fn.ReturnType.Base != ast.INT {
		t.Fatalf("expected int return type, got %v", fn.ReturnType)
	}
	if len(fn.Body) != 1 || fn.Body[0].Kind != ast.StmtReturn {
		t.Fatalf("expected a single return statement, got %+v", fn.Body)
	}
}

func TestParsePrecedence(t *testing.T) {
	funcs := parse(t, `fnc main() > int { return 1 + 2 * 3; }`)
	ret := funcs[0].Body[0]
	expr := ret.Expr
	if expr.Kind != ast.ExprOp || expr.OpKind != ast.OpAdd {
		t.Fatalf("expected a top-level add, got %+v", expr)
	}
	if expr.LHS.Kind != ast.ExprLiteralNumber || expr.LHS.Number != 1 {
		t.Fatalf("expected lhs to be 1, got %+v", expr.LHS)
	}
	if expr.RHS.Kind != ast.ExprOp || expr.RHS.OpKind != ast.OpMul {
		t.Fatalf("expected rhs to be a multiply, got %+v", expr.RHS)
	}
}

func TestParseLeftAssociativity(t *testing.T) {
	funcs := parse(t, `fnc main() > int { return 1 - 2 - 3; }`)
	expr := funcs[0].Body[0].Expr
	// (1 - 2) - 3
	if expr.Kind != ast.ExprOp || expr.OpKind != ast.OpSub {
		t.Fatalf("expected top-level sub, got %+v", expr)
	}
	if expr.RHS.Kind != ast.ExprLiteralNumber || expr.RHS.Number != 3 {
		t.Fatalf("expected rhs to be 3, got %+v", expr.RHS)
	}
	if expr.LHS.Kind != ast.ExprOp || expr.LHS.OpKind != ast.OpSub {
		t.Fatalf("expected lhs to itself be a sub, got %+v", expr.LHS)
	}
}

func TestParseWhileLoop(t *testing.T) {
	funcs := parse(t, `fnc main() > int {
		var n: int = 0;
		while n < 10 {
			n = n + 1;
		};
		return n;
	}`)
	body := funcs[0].Body
	if len(body) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(body))
	}
	if body[1].Kind != ast.StmtWhile {
		t.Fatalf("expected a while statement, got %+v", body[1])
	}
}

func TestParseIfElse(t *testing.T) {
	funcs := parse(t, `fnc main() > int {
		if 1 == 1 {
			return 1;
		} else {
			return 0;
		};
	}`)
	stmt := funcs[0].Body[0]
	if stmt.Kind != ast.StmtIf {
		t.Fatalf("expected an if statement, got %+v", stmt)
	}
	if len(stmt.Then) != 1 || len(stmt.Else) != 1 {
		t.Fatalf("expected 1 statement in each branch, got then=%d else=%d", len(stmt.Then), len(stmt.Else))
	}
}

func TestParseCallAsStatement(t *testing.T) {
	funcs := parse(t, `fnc main() > int { printint(1); return 0; }`)
	body := funcs[0].Body
	if body[0].Kind != ast.StmtExpr || body[0].Expr.Kind != ast.ExprFuncCall {
		t.Fatalf("expected a call statement, got %+v", body[0])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		`fnc main() > int { badkw 1; }`,
		`fnc main(a: int`,
		`fnc main() > unknown { return 0; }`,
		`fnc main() > int { var x: int 0; }`,
	}

	for _, src := range tests {
		l := lexer.New(src)
		if err := l.Tokenize(); err != nil {
			continue
		}
		if _, err := New(l).ParseProgram(); err == nil {
			t.Errorf("expected a parse error for %q", src)
		}
	}
}
