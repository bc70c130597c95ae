package target

import (
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/taskmill/internal/expr"
)

// ExpressionTarget is a template whose placeholders hold arithmetic
// expressions over a substitution scope instead of bare names. It renders
// only; matching candidates is the plain Target's job.
//
//	sum, _ := target.ParseExpression("sum-{a + b + c}")
//	out, _ := sum.Render(map[string]string{"a": "1", "b": "2", "c": "3"})
//	// out == "sum-6"
type ExpressionTarget struct {
	raw     string
	literal bool
	exprs   []*expr.Expr
	spans   []span
}

// ParseExpression compiles an expression template. Placeholder bodies must be
// valid expressions in the restricted arithmetic grammar; delimiter balance
// rules match Parse.
func ParseExpression(data string) (*ExpressionTarget, error) {
	if IsLiteral(data) {
		return &ExpressionTarget{raw: data, literal: true}, nil
	}

	keys, spans, err := scanPlaceholders(data)
	if err != nil {
		return nil, err
	}

	exprs := make([]*expr.Expr, len(keys))
	for i, key := range keys {
		parsed, err := expr.Parse(key)
		if err != nil {
			return nil, &SyntaxError{Template: data, Reason: err.Error()}
		}
		exprs[i] = parsed
	}

	return &ExpressionTarget{raw: data, exprs: exprs, spans: spans}, nil
}

// String returns the original template.
func (t *ExpressionTarget) String() string { return t.raw }

// Literal reports whether this template contains no expressions.
func (t *ExpressionTarget) Literal() bool { return t.literal }

// Render evaluates every placeholder expression against the substitution
// scope and splices the results into the template.
func (t *ExpressionTarget) Render(substitutions map[string]string) (string, error) {
	if t.literal {
		return t.raw, nil
	}

	var out strings.Builder
	prev := 0
	for i, sp := range t.spans {
		value, err := t.exprs[i].Eval(expr.Scope(substitutions))
		if err != nil {
			return "", err
		}
		out.WriteString(t.raw[prev:sp.start])
		out.WriteString(strconv.FormatInt(value, 10))
		prev = sp.end + 1
	}
	out.WriteString(t.raw[prev:])
	return out.String(), nil
}

// RenderMatch matches a candidate token against a plain target and, on
// success, renders this expression template with the extracted substitutions.
// The second return reports whether the candidate matched at all.
func (t *ExpressionTarget) RenderMatch(source *Target, candidate string) (string, bool, error) {
	match := source.Match(candidate)
	if !match.Matched {
		return "", false, nil
	}
	rendered, err := t.Render(match.Substitutions)
	if err != nil {
		return "", true, err
	}
	return rendered, true, nil
}
