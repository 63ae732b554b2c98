package interp_test

import (
	"strings"
	"testing"

	"github.com/wippyai/jsvm/ast"
)

// This file covers the exit paths a maintainer review found missing
// finally/IterDrop execution on: a throw from inside a catch body with
// no outer handler, a return from inside a protected region, a
// break/continue crossing a try/finally boundary, and a throw from
// inside a for-of body (including over a generator source, to also
// confirm the driver goroutine is closed rather than left parked).

// TestFinallyRunsOnUncaughtThrowFromCatch checks that a throw from
// inside a catch body, with no catch around it and nothing to swallow
// it, still runs finally before propagating, and that the error the
// caller observes is the new value thrown from the catch body, not the
// original one caught.
func TestFinallyRunsOnUncaughtThrowFromCatch(t *testing.T) {
	logFn := &ast.FunctionExpr{
		Name: "run",
		Body: []ast.Stmt{
			&ast.VarDecl{Kind: ast.DeclLet, Declarations: []ast.VarDeclarator{
				{Target: ident("log"), Init: str("")},
			}},
			&ast.TryStmt{
				Block: []ast.Stmt{
					&ast.ThrowStmt{Argument: str("first")},
				},
				Catch: &ast.CatchClause{
					Param: ident("e"),
					Body: []ast.Stmt{
						&ast.ExprStmt{Expr: &ast.AssignExpr{Op: "+=", Target: ident("log"), Value: str("C")}},
						&ast.ThrowStmt{Argument: str("second")},
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
		&ast.ReturnStmt{Argument: &ast.CallExpr{Callee: ident("run")}},
	}

	_, _, err := runScriptV(t, stmts)
	if err == nil {
		t.Fatalf("expected the catch body's own throw to propagate, got nil")
	}
	if !strings.Contains(err.Error(), "second") {
		t.Fatalf("error = %v, want it to carry the catch body's thrown value %q", err, "second")
	}
}

// TestFinallyRunsOnReturnFromTry checks that a `return` inside a
// protected try block still runs finally before the function actually
// returns, and that finally can't see or clobber the returned value.
func TestFinallyRunsOnReturnFromTry(t *testing.T) {
	fn := &ast.FunctionExpr{
		Name: "run",
		Body: []ast.Stmt{
			&ast.VarDecl{Kind: ast.DeclLet, Declarations: []ast.VarDeclarator{
				{Target: ident("log"), Init: str("")},
			}},
			&ast.TryStmt{
				Block: []ast.Stmt{
					&ast.ExprStmt{Expr: &ast.AssignExpr{Op: "+=", Target: ident("log"), Value: str("T")}},
					&ast.ReturnStmt{Argument: str("returned")},
				},
				Finally: []ast.Stmt{
					&ast.ExprStmt{Expr: &ast.AssignExpr{Op: "+=", Target: ident("log"), Value: str("F")}},
				},
			},
			&ast.ReturnStmt{Argument: ident("log")},
		},
	}

	stmts := []ast.Stmt{
		&ast.FunctionDecl{Fn: fn},
		&ast.ReturnStmt{Argument: &ast.CallExpr{Callee: ident("run")}},
	}

	rt, v, err := runScriptV(t, stmts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !v.IsString() {
		t.Fatalf("result is not a string")
	}
	if got := rt.String(v); got != "returned" {
		t.Fatalf("return value = %q, want %q (finally must not clobber it)", got, "returned")
	}
}

// TestFinallyRunsOnBreakAcrossTry checks that a `break` from inside a
// loop body's try block, targeting the enclosing loop, still runs
// finally before jumping out.
func TestFinallyRunsOnBreakAcrossTry(t *testing.T) {
	fn := &ast.FunctionExpr{
		Name: "run",
		Body: []ast.Stmt{
			&ast.VarDecl{Kind: ast.DeclLet, Declarations: []ast.VarDeclarator{
				{Target: ident("log"), Init: str("")},
			}},
			&ast.WhileStmt{
				Test: &ast.BoolLiteral{Value: true},
				Body: &ast.BlockStmt{Body: []ast.Stmt{
					&ast.TryStmt{
						Block: []ast.Stmt{
							&ast.ExprStmt{Expr: &ast.AssignExpr{Op: "+=", Target: ident("log"), Value: str("T")}},
							&ast.BreakStmt{},
						},
						Finally: []ast.Stmt{
							&ast.ExprStmt{Expr: &ast.AssignExpr{Op: "+=", Target: ident("log"), Value: str("F")}},
						},
					},
				}},
			},
			&ast.ReturnStmt{Argument: ident("log")},
		},
	}

	stmts := []ast.Stmt{
		&ast.FunctionDecl{Fn: fn},
		&ast.ReturnStmt{Argument: &ast.CallExpr{Callee: ident("run")}},
	}

	rt, v, err := runScriptV(t, stmts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := rt.String(v); got != "TF" {
		t.Fatalf("log order = %q, want %q (finally runs before break leaves the loop)", got, "TF")
	}
}

// TestIterDropOnThrowFromForOfBody checks that a throw from inside a
// for-of body over a plain array source reaches the enclosing catch and
// execution continues after it. The generator-source case is
// TestIterDropOnThrowFromGeneratorForOfBody below.
func TestIterDropOnThrowFromForOfBody(t *testing.T) {
	arr := &ast.ArrayLiteral{Elements: []ast.ArrayElement{{Value: num(1)}, {Value: num(2)}}}

	stmts := []ast.Stmt{
		&ast.TryStmt{
			Block: []ast.Stmt{
				&ast.ForInStmt{
					Decl: ast.VarDecl{Kind: ast.DeclConst, Declarations: []ast.VarDeclarator{
						{Target: ident("x")},
					}},
					Right: arr,
					Of:    true,
					Body: &ast.BlockStmt{Body: []ast.Stmt{
						&ast.ThrowStmt{Argument: str("boom")},
					}},
				},
			},
			Catch: &ast.CatchClause{
				Param: ident("e"),
				Body:  []ast.Stmt{},
			},
		},
		&ast.ReturnStmt{Argument: num(1)},
	}

	if got := runScript(t, stmts); got != 1 {
		t.Fatalf("result after caught throw from for-of body = %v, want 1", got)
	}
}

// TestIterDropOnThrowFromGeneratorForOfBody mirrors the array case above
// over a generator source, so a throw mid-iteration must reach IterDrop's
// GeneratorReturn path instead of leaving the driver goroutine parked.
func TestIterDropOnThrowFromGeneratorForOfBody(t *testing.T) {
	gen := &ast.FunctionExpr{
		Name:        "gen",
		IsGenerator: true,
		Body: []ast.Stmt{
			&ast.ExprStmt{Expr: &ast.YieldExpr{Arg: num(1)}},
			&ast.ExprStmt{Expr: &ast.YieldExpr{Arg: num(2)}},
			&ast.ExprStmt{Expr: &ast.YieldExpr{Arg: num(3)}},
		},
	}

	stmts := []ast.Stmt{
		&ast.FunctionDecl{Fn: gen},
		&ast.TryStmt{
			Block: []ast.Stmt{
				&ast.ForInStmt{
					Decl: ast.VarDecl{Kind: ast.DeclConst, Declarations: []ast.VarDeclarator{
						{Target: ident("x")},
					}},
					Right: &ast.CallExpr{Callee: ident("gen")},
					Of:    true,
					Body: &ast.BlockStmt{Body: []ast.Stmt{
						&ast.IfStmt{
							Test:       &ast.BinaryExpr{Op: ast.OpEqEqEq, Left: ident("x"), Right: num(2)},
							Consequent: &ast.ThrowStmt{Argument: str("boom")},
						},
					}},
				},
			},
			Catch: &ast.CatchClause{
				Param: ident("e"),
				Body:  []ast.Stmt{},
			},
		},
		&ast.ReturnStmt{Argument: num(1)},
	}

	if got := runScript(t, stmts); got != 1 {
		t.Fatalf("result after caught throw from generator for-of body = %v, want 1", got)
	}
}
