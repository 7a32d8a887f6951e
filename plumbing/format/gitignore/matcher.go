package gitignore

// Matcher decides whether a path should be ignored, evaluating a set of
// Patterns in precedence order.
type Matcher interface {
	// Match reports whether path should be ignored. isDir reports
	// whether path names a directory.
	Match(path []string, isDir bool) bool
}

type matcher struct {
	patterns []Pattern
}

// NewMatcher returns a Matcher that evaluates ps in order, the same
// way git does: the last Pattern that matches a path wins, so a
// later "!"-prefixed Pattern can re-include something an earlier one
// excluded.
func NewMatcher(ps []Pattern) Matcher {
	return &matcher{patterns: ps}
}

func (m *matcher) Match(path []string, isDir bool) bool {
	result := false
	for _, p := range m.patterns {
		switch p.Match(path, isDir) {
		case Exclude:
			result = true
		case Include:
			result = false
		}
	}
	return result
}
