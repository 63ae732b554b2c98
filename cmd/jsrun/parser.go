package main

// A small hand-rolled tokenizer and precedence-climbing expression parser.
// The core's own parser is an external collaborator (SPEC_FULL.md §1) —
// this one exists only to feed the REPL's :bytecode/:step/eval commands a
// real ast.Stmt slice and is deliberately scoped to what a debugging aid
// needs: expression statements, var/let/const declarations, and a handful
// of control-flow forms. It does not attempt full ECMAScript grammar
// (template literals, regex literals, classes, generators, and ASI are all
// out of scope here, matching the "not a production JS CLI" note in
// SPEC_FULL.md §4.9).

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wippyai/jsvm/ast"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokNumber
	tokString
	tokIdent
	tokPunct
	tokKeyword
)

type token struct {
	kind tokKind
	text string
	num  float64
}

var keywords = map[string]bool{
	"var": true, "let": true, "const": true, "function": true, "return": true,
	"if": true, "else": true, "true": true, "false": true, "null": true,
	"undefined": true, "typeof": true, "void": true, "delete": true,
	"new": true, "this": true, "in": true, "instanceof": true,
}

type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer { return &lexer{src: []rune(src)} }

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
}

// next scans and returns the next token, classifying keywords as tokKeyword
// so the parser can switch on them without re-comparing strings everywhere.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF}, nil
	}
	c := l.src[l.pos]

	if unicode.IsDigit(c) {
		start := l.pos
		for l.pos < len(l.src) && (unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
			l.pos++
		}
		text := string(l.src[start:l.pos])
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, fmt.Errorf("bad number literal %q", text)
		}
		return token{kind: tokNumber, text: text, num: f}, nil
	}

	if unicode.IsLetter(c) || c == '_' || c == '$' {
		start := l.pos
		for l.pos < len(l.src) && (unicode.IsLetter(l.src[l.pos]) || unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '_' || l.src[l.pos] == '$') {
			l.pos++
		}
		text := string(l.src[start:l.pos])
		if keywords[text] {
			return token{kind: tokKeyword, text: text}, nil
		}
		return token{kind: tokIdent, text: text}, nil
	}

	if c == '"' || c == '\'' {
		quote := c
		l.pos++
		var b strings.Builder
		for l.pos < len(l.src) && l.src[l.pos] != quote {
			if l.src[l.pos] == '\\' && l.pos+1 < len(l.src) {
				l.pos++
				b.WriteRune(unescape(l.src[l.pos]))
				l.pos++
				continue
			}
			b.WriteRune(l.src[l.pos])
			l.pos++
		}
		if l.pos >= len(l.src) {
			return token{}, fmt.Errorf("unterminated string literal")
		}
		l.pos++ // closing quote
		return token{kind: tokString, text: b.String()}, nil
	}

	// Punctuation, longest match first.
	for _, p := range []string{"...", "===", "!==", "**", ">>>", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "??", "?.", "=>"} {
		if strings.HasPrefix(string(l.src[l.pos:]), p) {
			l.pos += utf8.RuneCountInString(p)
			return token{kind: tokPunct, text: p}, nil
		}
	}
	l.pos++
	return token{kind: tokPunct, text: string(c)}, nil
}

func unescape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return r
	}
}

// parser drives the lexer with a single token of lookahead.
type parser struct {
	lex *lexer
	cur token
}

func newParser(src string) (*parser, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parser) isPunct(s string) bool  { return p.cur.kind == tokPunct && p.cur.text == s }
func (p *parser) isKeyword(s string) bool { return p.cur.kind == tokKeyword && p.cur.text == s }

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return fmt.Errorf("expected %q, got %q", s, p.cur.text)
	}
	return p.advance()
}

// ParseProgram parses src into a top-level statement list, stopping at EOF.
// A trailing semicolon between statements is optional, matching a REPL's
// typical one-line-at-a-time input.
func ParseProgram(src string) ([]ast.Stmt, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for p.cur.kind != tokEOF {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
		for p.isPunct(";") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return stmts, nil
}

func (p *parser) parseStmt() (ast.Stmt, error) {
	switch {
	case p.isKeyword("var"), p.isKeyword("let"), p.isKeyword("const"):
		return p.parseVarDecl()
	case p.isKeyword("if"):
		return p.parseIf()
	case p.isKeyword("return"):
		return p.parseReturn()
	case p.isPunct("{"):
		return p.parseBlock()
	default:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Expr: e}, nil
	}
}

func (p *parser) parseVarDecl() (ast.Stmt, error) {
	kind := ast.DeclKind(p.cur.text)
	if err := p.advance(); err != nil {
		return nil, err
	}
	decl := &ast.VarDecl{Kind: kind}
	for {
		if p.cur.kind != tokIdent {
			return nil, fmt.Errorf("expected binding name, got %q", p.cur.text)
		}
		name := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		var init ast.Expr
		if p.isPunct("=") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			init = e
		}
		decl.Declarations = append(decl.Declarations, ast.VarDeclarator{
			Target: &ast.Identifier{Name: name},
			Init:   init,
		})
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return decl, nil
}

func (p *parser) parseIf() (ast.Stmt, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	then, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Test: test, Consequent: then}
	if p.isKeyword("else") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		alt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmt.Alternate = alt
	}
	return stmt, nil
}

func (p *parser) parseReturn() (ast.Stmt, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.isPunct(";") || p.isPunct("}") || p.cur.kind == tokEOF {
		return &ast.ReturnStmt{}, nil
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Argument: e}, nil
}

func (p *parser) parseBlock() (ast.Stmt, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	var body []ast.Stmt
	for !p.isPunct("}") {
		if p.cur.kind == tokEOF {
			return nil, fmt.Errorf("unterminated block")
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		body = append(body, s)
		for p.isPunct(";") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &ast.BlockStmt{Body: body}, nil
}

// ---- Expressions, precedence-climbing. ----

func (p *parser) parseExpr() (ast.Expr, error) {
	first, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if !p.isPunct(",") {
		return first, nil
	}
	exprs := []ast.Expr{first}
	for p.isPunct(",") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return &ast.SequenceExpr{Exprs: exprs}, nil
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&&=": true, "||=": true, "??=": true,
}

func (p *parser) parseAssign() (ast.Expr, error) {
	left, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if p.cur.kind == tokPunct && assignOps[p.cur.text] {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		target, ok := left.(ast.Pattern)
		if !ok {
			return nil, fmt.Errorf("invalid assignment target")
		}
		value, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &ast.AssignExpr{Op: op, Target: target, Value: value}, nil
	}
	return left, nil
}

func (p *parser) parseConditional() (ast.Expr, error) {
	test, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if !p.isPunct("?") {
		return test, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	then, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	els, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &ast.ConditionalExpr{Test: test, Then: then, Else: els}, nil
}

// binOps is ordered from lowest to highest precedence; parseBinary recurses
// by precedence level the same way a textbook Pratt parser's table drives
// it, just spelled as nested levels instead of a binding-power map.
var binOps = [][]string{
	{"??"},
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!=", "===", "!=="},
	{"<", ">", "<=", ">=", "instanceof", "in"},
	{"<<", ">>", ">>>"},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) parseBinary(level int) (ast.Expr, error) {
	if level >= len(binOps) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for p.matchesAny(binOps[level]) {
		opTok := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		op := ast.BinaryOp(opTok)
		if op == ast.OpLogAnd || op == ast.OpLogOr || op == ast.OpNullish {
			left = &ast.LogicalExpr{Op: op, Left: left, Right: right}
		} else {
			left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
		}
	}
	return left, nil
}

func (p *parser) matchesAny(ops []string) bool {
	if p.cur.kind != tokPunct && p.cur.kind != tokKeyword {
		return false
	}
	for _, op := range ops {
		if p.cur.text == op {
			return true
		}
	}
	return false
}

func (p *parser) parseUnary() (ast.Expr, error) {
	switch {
	case p.isPunct("-"), p.isPunct("+"), p.isPunct("!"), p.isPunct("~"):
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.UnaryOp(op), Operand: operand}, nil
	case p.isKeyword("typeof"), p.isKeyword("void"), p.isKeyword("delete"):
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.UnaryOp(op), Operand: operand}, nil
	default:
		return p.parseCallOrMember()
	}
}

func (p *parser) parseCallOrMember() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isPunct("."):
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.kind != tokIdent && p.cur.kind != tokKeyword {
				return nil, fmt.Errorf("expected property name, got %q", p.cur.text)
			}
			prop := &ast.Identifier{Name: p.cur.text}
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpr{Object: expr, Property: prop}
		case p.isPunct("["):
			if err := p.advance(); err != nil {
				return nil, err
			}
			key, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpr{Object: expr, Property: key, Computed: true}
		case p.isPunct("("):
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			expr = &ast.CallExpr{Callee: expr, Args: args}
		default:
			return expr, nil
		}
	}
}

func (p *parser) parseArgs() ([]ast.Argument, error) {
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	var args []ast.Argument
	for !p.isPunct(")") {
		spread := false
		if p.isPunct("...") {
			spread = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		e, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		args = append(args, ast.Argument{Value: e, Spread: spread})
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	switch {
	case p.cur.kind == tokNumber:
		v := p.cur.num
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.NumberLiteral{Value: v}, nil
	case p.cur.kind == tokString:
		v := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.StringLiteral{Value: v}, nil
	case p.isKeyword("true"), p.isKeyword("false"):
		v := p.cur.text == "true"
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.BoolLiteral{Value: v}, nil
	case p.isKeyword("null"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.NullLiteral{}, nil
	case p.isKeyword("undefined"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.UndefinedLiteral{}, nil
	case p.isKeyword("this"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.ThisExpr{}, nil
	case p.isKeyword("new"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		callee, err := p.parseCallOrMember()
		if err != nil {
			return nil, err
		}
		if ce, ok := callee.(*ast.CallExpr); ok {
			return &ast.NewExpr{Callee: ce.Callee, Args: ce.Args}, nil
		}
		return &ast.NewExpr{Callee: callee}, nil
	case p.cur.kind == tokIdent:
		name := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Identifier{Name: name}, nil
	case p.isPunct("("):
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	case p.isPunct("["):
		return p.parseArrayLiteral()
	case p.isPunct("{"):
		return p.parseObjectLiteral()
	default:
		return nil, fmt.Errorf("unexpected token %q", p.cur.text)
	}
}

func (p *parser) parseArrayLiteral() (ast.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	lit := &ast.ArrayLiteral{}
	for !p.isPunct("]") {
		if p.isPunct(",") {
			lit.Elements = append(lit.Elements, ast.ArrayElement{})
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		spread := false
		if p.isPunct("...") {
			spread = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		e, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		lit.Elements = append(lit.Elements, ast.ArrayElement{Value: e, Spread: spread})
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *parser) parseObjectLiteral() (ast.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	lit := &ast.ObjectLiteral{}
	for !p.isPunct("}") {
		if p.isPunct("...") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			lit.Properties = append(lit.Properties, ast.Property{Kind: ast.PropSpread, Value: e})
		} else {
			var key ast.Expr
			computed := false
			if p.isPunct("[") {
				computed = true
				if err := p.advance(); err != nil {
					return nil, err
				}
				k, err := p.parseAssign()
				if err != nil {
					return nil, err
				}
				if err := p.expectPunct("]"); err != nil {
					return nil, err
				}
				key = k
			} else if p.cur.kind == tokIdent || p.cur.kind == tokKeyword {
				key = &ast.Identifier{Name: p.cur.text}
				if err := p.advance(); err != nil {
					return nil, err
				}
			} else if p.cur.kind == tokString {
				key = &ast.StringLiteral{Value: p.cur.text}
				if err := p.advance(); err != nil {
					return nil, err
				}
			} else if p.cur.kind == tokNumber {
				key = &ast.NumberLiteral{Value: p.cur.num}
				if err := p.advance(); err != nil {
					return nil, err
				}
			} else {
				return nil, fmt.Errorf("unexpected property key %q", p.cur.text)
			}

			if p.isPunct(":") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				v, err := p.parseAssign()
				if err != nil {
					return nil, err
				}
				lit.Properties = append(lit.Properties, ast.Property{Key: key, Computed: computed, Kind: ast.PropInit, Value: v})
			} else if id, ok := key.(*ast.Identifier); ok {
				// shorthand `{ x }`
				lit.Properties = append(lit.Properties, ast.Property{Key: key, Kind: ast.PropInit, Value: &ast.Identifier{Name: id.Name}})
			} else {
				return nil, fmt.Errorf("expected ':' after property key")
			}
		}
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return lit, nil
}
