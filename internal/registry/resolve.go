package registry

import (
	"iter"
	"slices"

	atlaserrors "atlas/internal/errors"
	"atlas/internal/paths"
)

// MatchKind ranks how a candidate path relates to the resolved path.
type MatchKind int

const (
	NoMatch MatchKind = iota
	Ancestor
	Exact
)

func (k MatchKind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Ancestor:
		return "ancestor"
	default:
		return "none"
	}
}

// Match is the winning project for a path.
type Match struct {
	Slug      string    `json:"slug"`
	Candidate string    `json:"candidate"`
	Kind      MatchKind `json:"-"`
}

// Source is anything that can enumerate registered projects.
type Source interface {
	All() iter.Seq[ProjectEntry]
}

// Resolver maps filesystem paths to the registered project that contains them.
type Resolver struct {
	src Source
}

// NewResolver creates a resolver over src. The registry is re-enumerated on
// every call, so later mutations are visible immediately.
func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// Classify compares normalized paths. Ancestor requires a separator boundary,
// so /work/proj is not an ancestor of /work/project.
func Classify(candidate, target string) MatchKind {
	if candidate == target {
		return Exact
	}
	if paths.IsWithin(candidate, target) {
		return Ancestor
	}
	return NoMatch
}

type scored struct {
	slug      string
	candidate string
	kind      MatchKind
}

// Resolve returns the project whose candidate path most specifically contains
// path, or nil when nothing does. Exact matches beat ancestors; among
// ancestors the longest candidate wins. Equally strong matches from different
// slugs are an AMBIGUOUS_MATCH error.
func (r *Resolver) Resolve(path string) (*Match, error) {
	target, err := paths.Normalize(path)
	if err != nil {
		return nil, atlaserrors.NewValidationError("path", err.Error())
	}

	var exact, ancestors []scored
	for entry := range r.src.All() {
		for _, c := range entry.Candidates() {
			norm, err := paths.Normalize(c)
			if err != nil {
				continue
			}
			switch Classify(norm, target) {
			case Exact:
				exact = append(exact, scored{entry.Slug, norm, Exact})
			case Ancestor:
				ancestors = append(ancestors, scored{entry.Slug, norm, Ancestor})
			}
		}
	}

	if len(exact) > 0 {
		return pick(target, exact)
	}
	if len(ancestors) == 0 {
		return nil, nil
	}

	longest := 0
	for _, s := range ancestors {
		longest = max(longest, len(s.candidate))
	}
	best := slices.DeleteFunc(ancestors, func(s scored) bool { return len(s.candidate) != longest })
	return pick(target, best)
}

// pick returns the sole slug among equally ranked matches.
func pick(target string, best []scored) (*Match, error) {
	var slugs []string
	for _, s := range best {
		if !slices.Contains(slugs, s.slug) {
			slugs = append(slugs, s.slug)
		}
	}
	if len(slugs) > 1 {
		slices.Sort(slugs)
		return nil, atlaserrors.NewAmbiguousMatchError(target, best[0].candidate, slugs)
	}
	w := best[0]
	return &Match{Slug: w.slug, Candidate: w.candidate, Kind: w.kind}, nil
}

// ResolutionSource records how the active project was chosen.
type ResolutionSource string

const (
	ResolvedFromFlag ResolutionSource = "flag"
	ResolvedFromEnv  ResolutionSource = "env"
	ResolvedFromCWD  ResolutionSource = "cwd"
)

// ProjectEnvVar names a project explicitly, below --project in precedence.
const ProjectEnvVar = "ATLAS_PROJECT"
