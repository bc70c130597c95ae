// Package expr implements a restricted arithmetic expression language used by
// expression targets.
//
// The grammar is deliberately tiny: integer literals, names bound by the
// substitution scope, the four operators + - * /, unary minus, and
// parentheses. Expressions are parsed into a tagged AST and evaluated
// recursively; there is no escape hatch into a general-purpose interpreter.
//
//	expr    := term (('+' | '-') term)*
//	term    := unary (('*' | '/') unary)*
//	unary   := '-' unary | primary
//	primary := INT | NAME | '(' expr ')'
package expr

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrDivisionByZero indicates an expression divided by zero at evaluation time.
	ErrDivisionByZero = errors.New("expr: division by zero")
	// ErrUnknownName indicates an expression referenced a name absent from the scope.
	ErrUnknownName = errors.New("expr: unknown name")
	// ErrNotInteger indicates a scope value could not be interpreted as an integer.
	ErrNotInteger = errors.New("expr: value is not an integer")
)

// ParseError describes a syntax error in an expression.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("expr: parse %q at offset %d: %s", e.Input, e.Pos, e.Msg)
}

// Scope supplies values for names referenced by an expression. Values are
// strings (target substitutions are always strings) and must parse as
// base-10 integers when referenced.
type Scope map[string]string

// Expr is a parsed expression ready for evaluation.
type Expr struct {
	src  string
	root node
}

// String returns the original expression source.
func (e *Expr) String() string { return e.src }

// Names returns every name referenced by the expression, in first-use order.
func (e *Expr) Names() []string {
	seen := make(map[string]struct{})
	var names []string
	e.root.walk(func(n node) {
		v, ok := n.(*variable)
		if !ok {
			return
		}
		if _, dup := seen[v.name]; dup {
			return
		}
		seen[v.name] = struct{}{}
		names = append(names, v.name)
	})
	return names
}

// Eval evaluates the expression against the provided scope.
func (e *Expr) Eval(scope Scope) (int64, error) {
	return e.root.eval(scope)
}

// node is the tagged-variant AST. Every variant evaluates to an integer.
type node interface {
	eval(scope Scope) (int64, error)
	walk(fn func(node))
}

type literal struct {
	value int64
}

func (l *literal) eval(Scope) (int64, error) { return l.value, nil }
func (l *literal) walk(fn func(node))        { fn(l) }

type variable struct {
	name string
}

func (v *variable) eval(scope Scope) (int64, error) {
	raw, ok := scope[v.name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownName, v.name)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrNotInteger, v.name, raw)
	}
	return value, nil
}

func (v *variable) walk(fn func(node)) { fn(v) }

type unary struct {
	operand node
}

func (u *unary) eval(scope Scope) (int64, error) {
	value, err := u.operand.eval(scope)
	if err != nil {
		return 0, err
	}
	return -value, nil
}

func (u *unary) walk(fn func(node)) {
	fn(u)
	u.operand.walk(fn)
}

type binary struct {
	op          byte
	left, right node
}

func (b *binary) eval(scope Scope) (int64, error) {
	left, err := b.left.eval(scope)
	if err != nil {
		return 0, err
	}
	right, err := b.right.eval(scope)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case '+':
		return left + right, nil
	case '-':
		return left - right, nil
	case '*':
		return left * right, nil
	case '/':
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		return left / right, nil
	}
	return 0, fmt.Errorf("expr: unknown operator %q", string(b.op))
}

func (b *binary) walk(fn func(node)) {
	fn(b)
	b.left.walk(fn)
	b.right.walk(fn)
}
