package target

import (
	"fmt"
	"strings"
)

// SyntaxError indicates a template that could not be compiled, such as
// unbalanced placeholder delimiters.
type SyntaxError struct {
	Template string
	Reason   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("target: invalid template %q: %s", e.Template, e.Reason)
}

// UnresolvedError indicates a render attempt missing a required placeholder
// value.
type UnresolvedError struct {
	Template string
	Key      string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("target: cannot render %q: no value for %q", e.Template, e.Key)
}

// AmbiguousError indicates a candidate token matched more than one registered
// dynamic target. All colliding templates are named to aid registration
// debugging.
type AmbiguousError struct {
	Candidate string
	Templates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("target: %q matches %d targets: %s",
		e.Candidate, len(e.Templates), strings.Join(e.Templates, ", "))
}

// UnmatchedError indicates a candidate token matched no registered target
// when the caller required a match.
type UnmatchedError struct {
	Candidate string
}

func (e *UnmatchedError) Error() string {
	return fmt.Sprintf("target: %q matches no registered target", e.Candidate)
}
