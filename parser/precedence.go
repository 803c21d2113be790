package parser

import (
	"fmt"

	"github.com/skx/nasmgo/ast"
	"github.com/skx/nasmgo/token"
)

// opTable maps a token kind to the operator it denotes.
var opTable = map[token.Type]ast.OpKind{
	token.PLUS:           ast.OpAdd,
	token.MINUS:          ast.OpSub,
	token.ASTERISK:       ast.OpMul,
	token.SLASH:          ast.OpDiv,
	token.PERCENT:        ast.OpMod,
	token.LT:             ast.OpLT,
	token.GT:             ast.OpGT,
	token.EQUALS_COMPARE: ast.OpEQ,
}

// precedenceTable maps an operator to its precedence level. Lower binds
// looser: comparisons (0) bind loosest, then +/- (1), then * / % (2).
var precedenceTable = map[ast.OpKind]int{
	ast.OpLT: 0,
	ast.OpGT: 0,
	ast.OpEQ: 0,

	ast.OpAdd: 1,
	ast.OpSub: 1,

	ast.OpMul: 2,
	ast.OpDiv: 2,
	ast.OpMod: 2,
}

const maxPrecedence = 3

// parseExpr parses a full expression starting at the loosest precedence
// level.
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseExprAt(0)
}

// parseExprAt implements precedence climbing: it parses an operand one
// level tighter, then folds in any operators at exactly this level,
// left-associatively.
func (p *Parser) parseExprAt(level int) (ast.Expr, error) {
	if level >= maxPrecedence {
		return p.parsePrimary()
	}

	lhs, err := p.parseExprAt(level + 1)
	if err != nil {
		return ast.Expr{}, err
	}

	for {
		tok := p.lex.Peek()
		opKind, isOp := opTable[tok.Type]
		if !isOp || precedenceTable[opKind] != level {
			return lhs, nil
		}
		p.lex.Next()

		rhs, err := p.parseExprAt(level + 1)
		if err != nil {
			return ast.Expr{}, err
		}

		l, r := lhs, rhs
		lhs = ast.Expr{Kind: ast.ExprOp, OpKind: opKind, LHS: &l, RHS: &r}
	}
}

// parsePrimary parses a literal, identifier, call, or boolean literal.
func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.lex.Next()

	switch tok.Type {
	case token.NUMBER:
		var n int64
		if _, err := fmt.Sscanf(tok.Literal, "%d", &n); err != nil {
			return ast.Expr{}, fmt.Errorf("invalid integer literal %q on line %d", tok.Literal, tok.Line)
		}
		return ast.Expr{Kind: ast.ExprLiteralNumber, Number: n}, nil

	case token.STRING:
		return ast.Expr{Kind: ast.ExprLiteralString, String: tok.Literal}, nil

	case token.IDENT:
		switch tok.Literal {
		case "true":
			return ast.Expr{Kind: ast.ExprLiteralBool, Bool: true}, nil
		case "false":
			return ast.Expr{Kind: ast.ExprLiteralBool, Bool: false}, nil
		}

		if p.lex.Peek().Type == token.OPEN_PAREN {
			p.lex.Next() // consume the open paren
			return p.parseFuncCall(tok.Literal)
		}

		return ast.Expr{Kind: ast.ExprVarRead, Name: tok.Literal}, nil

	default:
		return ast.Expr{}, fmt.Errorf("unexpected token %q while parsing an expression, on line %d", tok.Literal, tok.Line)
	}
}
