package interp_test

import (
	"strings"
	"testing"

	"github.com/wippyai/jsvm/ast"
	"github.com/wippyai/jsvm/builder"
	"github.com/wippyai/jsvm/interp"
	"github.com/wippyai/jsvm/runtime"
	"github.com/wippyai/jsvm/value"
)

// runScriptV is runScript's sibling for scenarios that need the raw
// result value (booleans, strings) or want to inspect a run-time error
// instead of asserting a clean float64 result.
func runScriptV(t *testing.T, stmts []ast.Stmt) (*runtime.Runtime, value.Value, error) {
	t.Helper()
	rt := runtime.New()
	id, err := builder.BuildScript(rt, stmts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	desc, ok := rt.GetFunction(id)
	if !ok {
		t.Fatalf("function %d not registered", id)
	}
	v, err := interp.New(rt).RunScript(desc)
	return rt, v, err
}

func str(s string) *ast.StringLiteral { return &ast.StringLiteral{Value: s} }

func bigint(raw string) *ast.BigIntLiteral { return &ast.BigIntLiteral{Raw: raw} }

// TestClosureCapturesByReference exercises §8's closure scenario:
//
//	function makeCounter() {
//	  let count = 0;
//	  function inc() { count = count + 1; return count; }
//	  return inc;
//	}
//	const c = makeCounter();
//	c(); c();
//	return c(); // 3 — each call observes the same captured `count`.
func TestClosureCapturesByReference(t *testing.T) {
	inc := &ast.FunctionExpr{
		Name: "inc",
		Body: []ast.Stmt{
			&ast.ExprStmt{Expr: &ast.AssignExpr{Op: "=", Target: ident("count"),
				Value: &ast.BinaryExpr{Op: ast.OpAdd, Left: ident("count"), Right: num(1)}}},
			&ast.ReturnStmt{Argument: ident("count")},
		},
	}
	makeCounter := &ast.FunctionExpr{
		Name: "makeCounter",
		Body: []ast.Stmt{
			&ast.VarDecl{Kind: ast.DeclLet, Declarations: []ast.VarDeclarator{
				{Target: ident("count"), Init: num(0)},
			}},
			&ast.FunctionDecl{Fn: inc},
			&ast.ReturnStmt{Argument: ident("inc")},
		},
	}

	stmts := []ast.Stmt{
		&ast.FunctionDecl{Fn: makeCounter},
		&ast.VarDecl{Kind: ast.DeclConst, Declarations: []ast.VarDeclarator{
			{Target: ident("c"), Init: &ast.CallExpr{Callee: ident("makeCounter")}},
		}},
		&ast.ExprStmt{Expr: &ast.CallExpr{Callee: ident("c")}},
		&ast.ExprStmt{Expr: &ast.CallExpr{Callee: ident("c")}},
		&ast.ReturnStmt{Argument: &ast.CallExpr{Callee: ident("c")}},
	}

	if got := runScript(t, stmts); got != 3 {
		t.Fatalf("counter after 3 calls = %v, want 3", got)
	}
}

// TestStrictVsLooseEquality checks §8's equality matrix: NaN !== NaN and
// NaN != NaN (strict and loose both false), while null == undefined
// (loose true) yet null !== undefined (strict false).
func TestStrictVsLooseEquality(t *testing.T) {
	nanVal := &ast.BinaryExpr{Op: ast.OpDiv, Left: num(0), Right: num(0)}

	cases := []struct {
		name string
		expr ast.Expr
		want bool
	}{
		{"nan strict self-equal", &ast.BinaryExpr{Op: ast.OpEqEqEq, Left: nanVal, Right: nanVal}, false},
		{"nan loose self-equal", &ast.BinaryExpr{Op: ast.OpEqEq, Left: nanVal, Right: nanVal}, false},
		{"null loose undefined", &ast.BinaryExpr{Op: ast.OpEqEq, Left: &ast.NullLiteral{}, Right: &ast.UndefinedLiteral{}}, true},
		{"null strict undefined", &ast.BinaryExpr{Op: ast.OpEqEqEq, Left: &ast.NullLiteral{}, Right: &ast.UndefinedLiteral{}}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			stmts := []ast.Stmt{&ast.ReturnStmt{Argument: &ast.ConditionalExpr{
				Test: c.expr,
				Then: num(1),
				Else: num(0),
			}}}
			got := runScript(t, stmts) != 0
			if got != c.want {
				t.Fatalf("%s = %v, want %v", c.name, got, c.want)
			}
		})
	}
}

// TestForOfBreakOverArray is §8 scenario 3 over a plain array source: the
// loop must stop at the break and must not visit later elements.
func TestForOfBreakOverArray(t *testing.T) {
	arr := &ast.ArrayLiteral{Elements: []ast.ArrayElement{
		{Value: num(1)}, {Value: num(2)}, {Value: num(3)}, {Value: num(4)},
	}}

	stmts := []ast.Stmt{
		&ast.VarDecl{Kind: ast.DeclLet, Declarations: []ast.VarDeclarator{
			{Target: ident("s"), Init: num(0)},
		}},
		&ast.ForInStmt{
			Decl: ast.VarDecl{Kind: ast.DeclConst, Declarations: []ast.VarDeclarator{
				{Target: ident("x")},
			}},
			Right: arr,
			Of:    true,
			Body: &ast.BlockStmt{Body: []ast.Stmt{
				&ast.IfStmt{
					Test:       &ast.BinaryExpr{Op: ast.OpEqEqEq, Left: ident("x"), Right: num(3)},
					Consequent: &ast.BreakStmt{},
				},
				&ast.ExprStmt{Expr: &ast.AssignExpr{Op: "+=", Target: ident("s"), Value: ident("x")}},
			}},
		},
		&ast.ReturnStmt{Argument: ident("s")},
	}

	if got := runScript(t, stmts); got != 3 {
		t.Fatalf("sum before break = %v, want 3", got)
	}
}

// TestTryCatchFinallyOrdering checks §8's try/catch/finally ordering: the
// catch block runs before finally, and finally runs after a catch block
// that completes normally.
func TestTryCatchFinallyOrdering(t *testing.T) {
	logFn := &ast.FunctionExpr{
		Name: "logOrder",
		Body: []ast.Stmt{
			&ast.VarDecl{Kind: ast.DeclLet, Declarations: []ast.VarDeclarator{
				{Target: ident("log"), Init: str("")},
			}},
			&ast.TryStmt{
				Block: []ast.Stmt{
					&ast.ExprStmt{Expr: &ast.AssignExpr{Op: "+=", Target: ident("log"), Value: str("T")}},
					&ast.ThrowStmt{Argument: str("boom")},
				},
				Catch: &ast.CatchClause{
					Param: ident("e"),
					Body: []ast.Stmt{
						&ast.ExprStmt{Expr: &ast.AssignExpr{Op: "+=", Target: ident("log"), Value: str("C")}},
					},
				},
				Finally: []ast.Stmt{
					&ast.ExprStmt{Expr: &ast.AssignExpr{Op: "+=", Target: ident("log"), Value: str("F")}},
				},
			},
			&ast.ReturnStmt{Argument: ident("log")},
		},
	}

	stmts := []ast.Stmt{
		&ast.FunctionDecl{Fn: logFn},
		&ast.ReturnStmt{Argument: &ast.CallExpr{Callee: ident("logOrder")}},
	}

	rt, v, err := runScriptV(t, stmts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !v.IsString() {
		t.Fatalf("result is not a string")
	}
	if got := rt.String(v); got != "TCF" {
		t.Fatalf("log order = %q, want %q (try, catch, finally)", got, "TCF")
	}
}

// TestDestructuringDefaultsAndRest covers §8's destructuring scenario: an
// array pattern with a default on a missing element and a trailing rest
// element; it checks a and the defaulted b.
func TestDestructuringDefaultsAndRest(t *testing.T) {
	// const [a, b = 10, ...rest] = [1];  -> a=1, b=10, rest=[]
	arrPattern := &ast.ArrayPattern{Elements: []ast.Pattern{
		ident("a"),
		&ast.AssignPattern{Target: ident("b"), Default: num(10)},
		&ast.RestElement{Target: ident("rest")},
	}}

	stmts := []ast.Stmt{
		&ast.VarDecl{Kind: ast.DeclConst, Declarations: []ast.VarDeclarator{
			{Target: arrPattern, Init: &ast.ArrayLiteral{Elements: []ast.ArrayElement{{Value: num(1)}}}},
		}},
		&ast.ReturnStmt{Argument: &ast.BinaryExpr{Op: ast.OpAdd, Left: ident("a"), Right: ident("b")}},
	}

	if got := runScript(t, stmts); got != 11 {
		t.Fatalf("a+b = %v, want 11 (a=1, b defaulted to 10)", got)
	}
}

// TestBigIntNumberMixThrowsTypeError checks §7: mixing a BigInt and a
// Number operand in an arithmetic operator is a TypeError, not an
// implicit coercion in either direction.
func TestBigIntNumberMixThrowsTypeError(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.ReturnStmt{Argument: &ast.BinaryExpr{Op: ast.OpAdd, Left: bigint("1"), Right: num(1)}},
	}

	_, _, err := runScriptV(t, stmts)
	if err == nil {
		t.Fatalf("expected a TypeError mixing BigInt and Number, got nil")
	}
	if !strings.Contains(err.Error(), "type_error") {
		t.Fatalf("error = %v, want a type_error", err)
	}
}
