package target

// Resolution pairs a candidate token with the target it matched and the
// handle supplied at registration. Handle is nil and Match unmatched when the
// token resolved to nothing.
type Resolution struct {
	Token  string
	Match  Match
	Handle any
}

// Resolver maps incoming tokens to registered targets. Literal targets live
// in a set keyed by exact string; dynamic targets are scanned in registration
// order. Resolvers are not safe for concurrent registration.
type Resolver struct {
	literals map[string]any
	dynamic  []dynamicEntry
}

type dynamicEntry struct {
	target *Target
	handle any
}

// NewResolver constructs an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{literals: make(map[string]any)}
}

// Register compiles a template and stores it with a handle to return on
// match. Re-registering a literal template replaces its handle; dynamic
// templates with the same string are replaced rather than duplicated.
func (r *Resolver) Register(template string, handle any) error {
	t, err := Parse(template)
	if err != nil {
		return err
	}
	if t.Literal() {
		r.literals[template] = handle
		return nil
	}
	for i, entry := range r.dynamic {
		if entry.target.String() == template {
			r.dynamic[i].handle = handle
			return nil
		}
	}
	r.dynamic = append(r.dynamic, dynamicEntry{target: t, handle: handle})
	return nil
}

// Evaluate finds the registration matching a candidate token. The literal
// set is consulted first; otherwise every dynamic target is tested and
// exactly one may accept the candidate. More than one accepting target is an
// AmbiguousError.
func (r *Resolver) Evaluate(candidate string) (Resolution, error) {
	if handle, ok := r.literals[candidate]; ok {
		return Resolution{Token: candidate, Match: LiteralMatch, Handle: handle}, nil
	}

	var matches []Resolution
	var templates []string
	for _, entry := range r.dynamic {
		if m := entry.target.Match(candidate); m.Matched {
			matches = append(matches, Resolution{Token: candidate, Match: m, Handle: entry.handle})
			templates = append(templates, entry.target.String())
		}
	}

	switch len(matches) {
	case 0:
		return Resolution{Token: candidate}, nil
	case 1:
		return matches[0], nil
	}
	return Resolution{Token: candidate}, &AmbiguousError{Candidate: candidate, Templates: templates}
}

// EvaluateAll evaluates a batch of candidate tokens. An ambiguous candidate
// aborts the batch. When requireMatch is set, an unmatched candidate aborts
// the batch as well; otherwise unmatched candidates are returned with an
// unmatched Resolution so the caller can apply its own policy.
func (r *Resolver) EvaluateAll(candidates []string, requireMatch bool) ([]Resolution, error) {
	resolutions := make([]Resolution, 0, len(candidates))
	for _, candidate := range candidates {
		resolution, err := r.Evaluate(candidate)
		if err != nil {
			return nil, err
		}
		if requireMatch && !resolution.Match.Matched {
			return nil, &UnmatchedError{Candidate: candidate}
		}
		resolutions = append(resolutions, resolution)
	}
	return resolutions, nil
}

// Templates returns every registered template string, literals first.
func (r *Resolver) Templates() []string {
	out := make([]string, 0, len(r.literals)+len(r.dynamic))
	for template := range r.literals {
		out = append(out, template)
	}
	for _, entry := range r.dynamic {
		out = append(out, entry.target.String())
	}
	return out
}
