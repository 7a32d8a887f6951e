package gitattributes

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrMacroNotAllowed is returned by ReadAttributes when a [attr]... macro
// definition line is found but allowMacro is false.
var ErrMacroNotAllowed = errors.New("macro not allowed")

// ErrInvalidAttributeName is returned when an attribute name contains
// characters git does not allow in attribute names.
var ErrInvalidAttributeName = errors.New("invalid attribute name")

const macroPrefix = "[attr]"

var attributeNameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// State is the state of a single attribute, as resolved against a path.
type State int

const (
	// Unspecified means no pattern set an opinion on the attribute.
	Unspecified State = iota
	// Set means the attribute is set, without an explicit value.
	Set
	// Unset means the attribute is explicitly unset (a "-name" entry).
	Unset
	// ValueSet means the attribute is set to a specific value ("name=value").
	ValueSet
)

// Attribute is a single attribute assignment found on a gitattributes line,
// e.g. "text", "-binary" or "eol=crlf".
type Attribute struct {
	Name  string
	state State
	value string
}

// IsSet reports whether the attribute is set, with or without a value.
func (a Attribute) IsSet() bool {
	return a.state == Set || a.state == ValueSet
}

// IsUnset reports whether the attribute is explicitly unset.
func (a Attribute) IsUnset() bool {
	return a.state == Unset
}

// IsUnspecified reports whether no rule has an opinion on the attribute.
func (a Attribute) IsUnspecified() bool {
	return a.state == Unspecified
}

// IsValueSet reports whether the attribute carries an explicit value.
func (a Attribute) IsValueSet() bool {
	return a.state == ValueSet
}

// Value returns the attribute's value, or the empty string if it has none.
func (a Attribute) Value() string {
	return a.value
}

func (a Attribute) String() string {
	switch a.state {
	case Set:
		return fmt.Sprintf("%s: set", a.Name)
	case Unset:
		return fmt.Sprintf("%s: unset", a.Name)
	case ValueSet:
		return fmt.Sprintf("%s: %s", a.Name, a.value)
	default:
		return fmt.Sprintf("%s: unspecified", a.Name)
	}
}

// MatchAttribute is a single parsed line of a gitattributes file: either a
// macro definition ("[attr]name attr...") or a pattern line
// ("pattern attr...").
type MatchAttribute struct {
	// Name is the macro name for a macro definition, or the raw pattern
	// text for a pattern line.
	Name       string
	Pattern    Pattern
	Attributes []Attribute
}

// ReadAttributes reads a .gitattributes-style file from r. domain is the
// repository-rooted directory the file lives in, split on "/"; pass nil for
// a root .gitattributes. If allowMacro is false, a macro definition line
// returns ErrMacroNotAllowed.
func ReadAttributes(r io.Reader, domain []string, allowMacro bool) ([]MatchAttribute, error) {
	var mas []MatchAttribute

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ma, err := parseAttributesLine(line, domain, allowMacro)
		if err != nil {
			return nil, err
		}

		mas = append(mas, ma)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return mas, nil
}

func parseAttributesLine(line string, domain []string, allowMacro bool) (MatchAttribute, error) {
	if strings.HasPrefix(line, macroPrefix) {
		if !allowMacro {
			return MatchAttribute{}, ErrMacroNotAllowed
		}

		fields := strings.Fields(line[len(macroPrefix):])
		if len(fields) == 0 {
			return MatchAttribute{}, ErrInvalidAttributeName
		}

		name := fields[0]
		if !attributeNameRe.MatchString(name) {
			return MatchAttribute{}, ErrInvalidAttributeName
		}

		return MatchAttribute{
			Name:       name,
			Attributes: parseAttributes(fields[1:]),
		}, nil
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return MatchAttribute{}, ErrInvalidAttributeName
	}

	return MatchAttribute{
		Name:       fields[0],
		Pattern:    ParsePattern(fields[0], domain),
		Attributes: parseAttributes(fields[1:]),
	}, nil
}

func parseAttributes(fields []string) []Attribute {
	attrs := make([]Attribute, 0, len(fields))
	for _, f := range fields {
		switch {
		case strings.HasPrefix(f, "-"):
			attrs = append(attrs, Attribute{Name: f[1:], state: Unset})
		case strings.HasPrefix(f, "!"):
			attrs = append(attrs, Attribute{Name: f[1:], state: Unspecified})
		default:
			if i := strings.IndexByte(f, '='); i >= 0 {
				attrs = append(attrs, Attribute{Name: f[:i], state: ValueSet, value: f[i+1:]})
			} else {
				attrs = append(attrs, Attribute{Name: f, state: Set})
			}
		}
	}
	return attrs
}
