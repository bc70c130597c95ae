package target

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	dynamicStart = '{'
	dynamicEnd   = '}'

	// capturePattern constrains the characters a placeholder may match in a
	// candidate token.
	capturePattern = `[a-zA-Z0-9-_.]+`
)

// namePattern restricts placeholder names to identifiers.
var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// span records the absolute offsets of a placeholder's delimiters in the
// original template: [start] is the index of '{' and [end] the index of '}'.
type span struct {
	start, end int
}

// Match is the result of evaluating a candidate token against a target.
// Substitutions is nil when the match failed or the target is literal.
type Match struct {
	Matched       bool
	Substitutions map[string]string
}

// LiteralMatch is the successful match of a literal target.
var LiteralMatch = Match{Matched: true}

// NoMatch is the unsuccessful match.
var NoMatch = Match{}

// Evaluator is a compiled dynamic template: an anchored matcher, the ordered
// placeholder keys, and the placeholder spans used for rendering.
type Evaluator struct {
	pattern *regexp.Regexp
	keys    []string
	spans   []span
}

// Keys returns the placeholder names in declaration order.
func (e *Evaluator) Keys() []string {
	return append([]string(nil), e.keys...)
}

// Target is a literal or dynamic target template. Targets are compiled once
// by Parse and immutable afterward.
type Target struct {
	raw       string
	literal   bool
	evaluator *Evaluator
}

// IsLiteral reports whether data contains no placeholder syntax at all.
func IsLiteral(data string) bool {
	return !strings.ContainsRune(data, dynamicStart) && !strings.ContainsRune(data, dynamicEnd)
}

// Parse compiles a template string. Templates without placeholder delimiters
// are literal; anything else must have balanced, non-nested delimiter pairs
// with identifier placeholder names.
func Parse(data string) (*Target, error) {
	if IsLiteral(data) {
		return &Target{raw: data, literal: true}, nil
	}

	keys, spans, err := scanPlaceholders(data)
	if err != nil {
		return nil, err
	}

	var pattern strings.Builder
	pattern.WriteByte('^')
	prev := 0
	for i, sp := range spans {
		key := keys[i]
		if !namePattern.MatchString(key) {
			return nil, &SyntaxError{Template: data, Reason: fmt.Sprintf("invalid placeholder name %q", key)}
		}
		pattern.WriteString(regexp.QuoteMeta(data[prev:sp.start]))
		pattern.WriteString("(" + capturePattern + ")")
		prev = sp.end + 1
	}
	pattern.WriteString(regexp.QuoteMeta(data[prev:]))
	pattern.WriteByte('$')

	compiled, err := regexp.Compile(pattern.String())
	if err != nil {
		// QuoteMeta escapes everything outside placeholders, so this is
		// unreachable for well-formed spans.
		return nil, &SyntaxError{Template: data, Reason: err.Error()}
	}

	return &Target{
		raw: data,
		evaluator: &Evaluator{
			pattern: compiled,
			keys:    keys,
			spans:   spans,
		},
	}, nil
}

// MustParse is Parse that panics on error, for statically known templates.
func MustParse(data string) *Target {
	t, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return t
}

// scanPlaceholders walks data left to right collecting placeholder bodies and
// their delimiter spans. Unbalanced, nested, or empty placeholders are syntax
// errors.
func scanPlaceholders(data string) ([]string, []span, error) {
	var keys []string
	var spans []span

	open := -1
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case byte(dynamicStart):
			if open >= 0 {
				return nil, nil, &SyntaxError{Template: data, Reason: "nested placeholder"}
			}
			open = i
		case byte(dynamicEnd):
			if open < 0 {
				return nil, nil, &SyntaxError{Template: data, Reason: "unbalanced placeholder delimiters"}
			}
			if i == open+1 {
				return nil, nil, &SyntaxError{Template: data, Reason: "empty placeholder"}
			}
			keys = append(keys, data[open+1:i])
			spans = append(spans, span{start: open, end: i})
			open = -1
		}
	}
	if open >= 0 {
		return nil, nil, &SyntaxError{Template: data, Reason: "unbalanced placeholder delimiters"}
	}
	return keys, spans, nil
}

// String returns the original template.
func (t *Target) String() string { return t.raw }

// Literal reports whether this target matches exactly one token.
func (t *Target) Literal() bool { return t.literal }

// Keys returns the placeholder names of a dynamic target, nil for literals.
func (t *Target) Keys() []string {
	if t.evaluator == nil {
		return nil
	}
	return t.evaluator.Keys()
}

// Match evaluates a candidate token against this target. Literal targets
// compare by exact equality; dynamic targets require a full anchored match.
func (t *Target) Match(candidate string) Match {
	if t.literal {
		if t.raw == candidate {
			return LiteralMatch
		}
		return NoMatch
	}

	groups := t.evaluator.pattern.FindStringSubmatch(candidate)
	if groups == nil {
		return NoMatch
	}

	subs := make(map[string]string, len(t.evaluator.keys))
	for i, key := range t.evaluator.keys {
		subs[key] = groups[i+1]
	}
	return Match{Matched: true, Substitutions: subs}
}

// Render reconstructs a concrete token by splicing each placeholder span with
// its bound value. Literal targets render as themselves. A dynamic target
// with a missing binding is an UnresolvedError.
func (t *Target) Render(substitutions map[string]string) (string, error) {
	if t.literal {
		return t.raw, nil
	}

	var out strings.Builder
	prev := 0
	for i, sp := range t.evaluator.spans {
		key := t.evaluator.keys[i]
		value, ok := substitutions[key]
		if !ok {
			return "", &UnresolvedError{Template: t.raw, Key: key}
		}
		out.WriteString(t.raw[prev:sp.start])
		out.WriteString(value)
		prev = sp.end + 1
	}
	out.WriteString(t.raw[prev:])
	return out.String(), nil
}
