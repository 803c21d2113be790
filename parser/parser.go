// Package parser implements the recursive-descent, precedence-climbing
// parser: tokens in, a sequence of top-level function declarations out.
package parser

import (
	"fmt"

	"github.com/skx/nasmgo/ast"
	"github.com/skx/nasmgo/lexer"
	"github.com/skx/nasmgo/token"
)

// Parser walks a token stream and builds the AST.
type Parser struct {
	lex *lexer.Lexer
}

// New creates a Parser over an already-tokenized Lexer.
func New(lex *lexer.Lexer) *Parser {
	return &Parser{lex: lex}
}

// ParseProgram consumes the whole token stream, returning the sequence
// of top-level function declarations.
func (p *Parser) ParseProgram() ([]ast.Statement, error) {
	var funcs []ast.Statement

	for !p.lex.IsParsed() {
		tok := p.lex.Next()
		if tok.Type != token.FUNCTION {
			return nil, fmt.Errorf("expected %q at top level, got %q on line %d", token.FUNCTION, tok.Literal, tok.Line)
		}
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		funcs = append(funcs, fn)
	}

	return funcs, nil
}

// parseFunction parses: NAME '(' params? ')' '>' NAME '{' block
func (p *Parser) parseFunction() (ast.Statement, error) {
	name, err := p.lex.Expect(token.IDENT, "expected a name after the fnc keyword")
	if err != nil {
		return ast.Statement{}, err
	}

	if _, err := p.lex.Expect(token.OPEN_PAREN, "expected an open paren after the function name"); err != nil {
		return ast.Statement{}, err
	}

	var params []ast.Param
	if p.lex.Peek().Type != token.CLOSE_PAREN {
		params, err = p.parseParams()
		if err != nil {
			return ast.Statement{}, err
		}
	} else {
		p.lex.Next() // consume close paren
	}

	if _, err := p.lex.Expect(token.GT, "expected '>' and a return type after function parameters"); err != nil {
		return ast.Statement{}, err
	}
	retTypeTok, err := p.lex.Expect(token.IDENT, "untyped functions are not allowed")
	if err != nil {
		return ast.Statement{}, err
	}
	retType, err := ast.VarTypeFromName(retTypeTok.Literal)
	if err != nil {
		return ast.Statement{}, err
	}

	if _, err := p.lex.Expect(token.OPEN_CURLY, "expected an open curly brace after function declaration"); err != nil {
		return ast.Statement{}, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return ast.Statement{}, err
	}

	if len(params) > 6 {
		return ast.Statement{}, fmt.Errorf("no more than 6 parameters are allowed on function %q", name.Literal)
	}

	return ast.Statement{
		Kind:       ast.StmtFunctionDecl,
		Name:       name.Literal,
		Params:     params,
		ReturnType: retType,
		Body:       body,
	}, nil
}

// parseParams parses: NAME ':' type (',' NAME ':' type)*
func (p *Parser) parseParams() ([]ast.Param, error) {
	var params []ast.Param

	for {
		nameTok, err := p.lex.Expect(token.IDENT, "untyped function parameters are not allowed")
		if err != nil {
			return nil, err
		}
		if _, err := p.lex.Expect(token.COLON, "untyped function parameters are not allowed"); err != nil {
			return nil, err
		}
		typeTok, err := p.lex.Expect(token.IDENT, "untyped function parameters are not allowed")
		if err != nil {
			return nil, err
		}
		t, err := ast.VarTypeFromName(typeTok.Literal)
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: nameTok.Literal, Type: t})

		next := p.lex.Next()
		if next.Type == token.CLOSE_PAREN {
			break
		}
		if next.Type != token.COMMA {
			return nil, fmt.Errorf("expected ',' between function parameters, got %q on line %d", next.Literal, next.Line)
		}
	}

	return params, nil
}

// parseBlock parses stmt* '}', consuming the closing curly brace.
func (p *Parser) parseBlock() ([]ast.Statement, error) {
	var stmts []ast.Statement

	for {
		tok := p.lex.Next()

		var (
			stmt ast.Statement
			err  error
			// selfTerminating statements (if/while) consume their
			// own closing '}' and never need a trailing ';'.
			selfTerminating bool
		)

		switch tok.Type {
		case token.CLOSE_CURLY:
			return stmts, nil
		case token.IDENT:
			stmt, err = p.parseNameStatement(tok)
		case token.RETURN:
			stmt, err = p.parseReturn()
		case token.VAR:
			stmt, err = p.parseVarDecl()
		case token.IF:
			stmt, err = p.parseIf()
			selfTerminating = true
		case token.WHILE:
			stmt, err = p.parseWhile()
			selfTerminating = true
		default:
			return nil, fmt.Errorf("unrecognized top-level statement %q on line %d", tok.Literal, tok.Line)
		}
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)

		if selfTerminating {
			// Trailing ';' after if/while is tolerated if present.
			if p.lex.Peek().Type == token.SEMICOLON {
				p.lex.Next()
			}
			continue
		}

		next := p.lex.Peek()
		if next.Type != token.CLOSE_CURLY && next.Type != token.SEMICOLON {
			return nil, fmt.Errorf("expected ';' at the end of a statement, got %q on line %d", next.Literal, next.Line)
		}
		if next.Type == token.SEMICOLON {
			p.lex.Next()
		}
	}
}

func (p *Parser) parseWhile() (ast.Statement, error) {
	cond, err := p.parseExpr()
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.lex.Expect(token.OPEN_CURLY, "expected an open curly brace after the while condition"); err != nil {
		return ast.Statement{}, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{Kind: ast.StmtWhile, Cond: cond, Then: body}, nil
}

func (p *Parser) parseIf() (ast.Statement, error) {
	cond, err := p.parseExpr()
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.lex.Expect(token.OPEN_CURLY, "expected an open curly brace after the if condition"); err != nil {
		return ast.Statement{}, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return ast.Statement{}, err
	}

	var elseBlock []ast.Statement
	if p.lex.Peek().Type == token.ELSE {
		p.lex.Next()
		if _, err := p.lex.Expect(token.OPEN_CURLY, "expected an open curly brace after the else keyword"); err != nil {
			return ast.Statement{}, err
		}
		elseBlock, err = p.parseBlock()
		if err != nil {
			return ast.Statement{}, err
		}
	}

	return ast.Statement{Kind: ast.StmtIf, Cond: cond, Then: then, Else: elseBlock}, nil
}

func (p *Parser) parseReturn() (ast.Statement, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{Kind: ast.StmtReturn, Expr: &expr}, nil
}

func (p *Parser) parseVarDecl() (ast.Statement, error) {
	nameTok, err := p.lex.Expect(token.IDENT, "expected a name after the var keyword")
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.lex.Expect(token.COLON, "untyped variables are not allowed"); err != nil {
		return ast.Statement{}, err
	}
	typeTok, err := p.lex.Expect(token.IDENT, "untyped variables are not allowed")
	if err != nil {
		return ast.Statement{}, err
	}
	t, err := ast.VarTypeFromName(typeTok.Literal)
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.lex.Expect(token.EQUALS, "expected an expression after the variable declaration"); err != nil {
		return ast.Statement{}, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{Kind: ast.StmtVarDecl, Name: nameTok.Literal, VarType: t, Expr: &value}, nil
}

// parseNameStatement disambiguates a reassignment from a call-as-statement:
//
//	NAME '=' expr
//	NAME '(' args? ')'
func (p *Parser) parseNameStatement(name token.Token) (ast.Statement, error) {
	next := p.lex.Next()
	switch next.Type {
	case token.EQUALS:
		value, err := p.parseExpr()
		if err != nil {
			return ast.Statement{}, err
		}
		return ast.Statement{Kind: ast.StmtVarReassign, Name: name.Literal, Expr: &value}, nil
	case token.OPEN_PAREN:
		call, err := p.parseFuncCall(name.Literal)
		if err != nil {
			return ast.Statement{}, err
		}
		return ast.Statement{Kind: ast.StmtExpr, Expr: &call}, nil
	default:
		return ast.Statement{}, fmt.Errorf("couldn't parse statement starting with %q on line %d", name.Literal, name.Line)
	}
}

// parseFuncCall parses the argument list of a call whose name and open
// paren have already been consumed.
func (p *Parser) parseFuncCall(name string) (ast.Expr, error) {
	call := ast.Expr{Kind: ast.ExprFuncCall, Name: name}

	if p.lex.Peek().Type == token.CLOSE_PAREN {
		p.lex.Next()
		return call, nil
	}

	for {
		arg, err := p.parseExpr()
		if err != nil {
			return ast.Expr{}, err
		}
		call.Args = append(call.Args, arg)

		next := p.lex.Next()
		if next.Type == token.CLOSE_PAREN {
			break
		}
		if next.Type != token.COMMA {
			return ast.Expr{}, fmt.Errorf("expected ',' as a function-call argument separator, got %q on line %d", next.Literal, next.Line)
		}
	}

	return call, nil
}
