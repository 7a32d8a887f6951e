package gitattributes

// Matcher resolves the attributes that apply to a path, expanding any
// [attr] macros along the way.
type Matcher interface {
	// Match returns the resolved state of attrNames for path, along with
	// whether any pattern matched the path at all. A nil or empty
	// attrNames returns every attribute any matching pattern mentioned.
	Match(path []string, attrNames []string) (map[string]Attribute, bool)
}

type matcher struct {
	mas    []MatchAttribute
	macros map[string][]Attribute
}

// NewMatcher returns a Matcher built from mas, the entries returned by
// ReadAttributes (or several such calls concatenated, ascending in
// priority). Macro definitions (entries with a nil Pattern) are pulled out
// and expanded wherever their name is later used as an attribute.
func NewMatcher(mas []MatchAttribute) Matcher {
	m := &matcher{macros: map[string][]Attribute{}}
	for _, ma := range mas {
		if ma.Pattern == nil {
			m.macros[ma.Name] = ma.Attributes
		} else {
			m.mas = append(m.mas, ma)
		}
	}
	return m
}

func (m *matcher) Match(path []string, attrNames []string) (map[string]Attribute, bool) {
	results := map[string]Attribute{}
	matched := false

	for _, ma := range m.mas {
		if !ma.Pattern.Match(path) {
			continue
		}
		matched = true

		for _, a := range ma.Attributes {
			m.apply(results, a)
		}
	}

	if len(attrNames) == 0 {
		return results, matched
	}

	filtered := make(map[string]Attribute, len(attrNames))
	for _, name := range attrNames {
		if a, ok := results[name]; ok {
			filtered[name] = a
		} else {
			filtered[name] = Attribute{Name: name, state: Unspecified}
		}
	}
	return filtered, matched
}

// apply records a, expanding it first if its name is a known macro. Later
// calls (later attributes in a line, or later matching lines) overwrite
// earlier ones for the same attribute name: the last-mentioned rule wins.
func (m *matcher) apply(results map[string]Attribute, a Attribute) {
	if expansion, ok := m.macros[a.Name]; ok {
		for _, sub := range expansion {
			m.apply(results, sub)
		}
	}
	results[a.Name] = a
}
