// Package target implements string target templates and their resolution.
//
// A target is a pattern describing acceptable input tokens. It is either
// literal ("build") or dynamic ("build-{variant}"): dynamic targets contain
// named placeholders that are extracted when a candidate token matches.
//
// Parsing a template yields an anchored matcher plus the placeholder spans
// needed to render the template back into a concrete token:
//
//	t, _ := target.Parse("build-{variant}")
//	m := t.Match("build-arm64")        // m.Substitutions["variant"] == "arm64"
//	s, _ := t.Render(m.Substitutions)  // "build-arm64"
//
// ExpressionTarget is a variant whose placeholders hold small arithmetic
// expressions over the substitution scope (see package expr) instead of bare
// names.
//
// A Resolver holds many registered targets and maps an incoming token to at
// most one of them: literal targets are checked first by exact string lookup,
// then dynamic targets are scanned linearly. A token matching more than one
// dynamic target is an AmbiguousError; registration collisions of that kind
// are a configuration bug the caller must fix.
package target
