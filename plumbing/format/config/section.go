package config

import (
	"fmt"
	"strings"
)

// Sections is an ordered list of Section.
type Sections []*Section

// Section holds the options and subsections that appear under a
// "[name]" or "[name \"subsection\"]" heading in a config file.
type Section struct {
	Name        string
	Options     Options
	Subsections Subsections
}

// Subsections is an ordered list of Subsection.
type Subsections []*Subsection

// Subsection holds the options that appear under a
// "[section \"name\"]" heading. Unlike Section names, subsection names
// are matched case-sensitively, matching git's own behaviour.
type Subsection struct {
	Name    string
	Options Options
}

// GoString implements fmt.GoStringer.
func (s Sections) GoString() string {
	var strs []string
	for _, sect := range s {
		strs = append(strs, sect.GoString())
	}
	return strings.Join(strs, ", ")
}

// GoString implements fmt.GoStringer.
func (s *Section) GoString() string {
	return fmt.Sprintf("&config.Section{Name:%q, Options:%s, Subsections:%s}",
		s.Name, s.Options.GoString(), s.Subsections.GoString())
}

// GoString implements fmt.GoStringer.
func (s Subsections) GoString() string {
	var strs []string
	for _, sect := range s {
		strs = append(strs, sect.GoString())
	}
	return strings.Join(strs, ", ")
}

// GoString implements fmt.GoStringer.
func (s *Subsection) GoString() string {
	return fmt.Sprintf("&config.Subsection{Name:%q, Options:%s}", s.Name, s.Options.GoString())
}

// IsName reports whether name matches s.Name, case-insensitively.
func (s *Section) IsName(name string) bool {
	return strings.EqualFold(s.Name, name)
}

// Subsection returns the subsection with the given name, creating and
// appending an empty one if it does not yet exist.
func (s *Section) Subsection(name string) *Subsection {
	for i := len(s.Subsections) - 1; i >= 0; i-- {
		ss := s.Subsections[i]
		if ss.IsName(name) {
			return ss
		}
	}

	ss := &Subsection{Name: name}
	s.Subsections = append(s.Subsections, ss)
	return ss
}

// HasSubsection reports whether s has a subsection with the given name.
func (s *Section) HasSubsection(name string) bool {
	for _, ss := range s.Subsections {
		if ss.IsName(name) {
			return true
		}
	}
	return false
}

// RemoveSubsection removes the named subsection, if present.
func (s *Section) RemoveSubsection(name string) *Section {
	result := Subsections{}
	for _, ss := range s.Subsections {
		if !ss.IsName(name) {
			result = append(result, ss)
		}
	}
	s.Subsections = result
	return s
}

// Option returns the value of the last matching option, or "" if unset.
func (s *Section) Option(key string) string {
	return s.Options.Get(key)
}

// GetOption is an alias of Option, kept for callers that address the
// section directly rather than through Config.
func (s *Section) GetOption(key string) string {
	return s.Option(key)
}

// OptionAll returns the values of every matching option, in file order.
func (s *Section) OptionAll(key string) []string {
	return s.Options.GetAll(key)
}

// GetAllOptions is an alias of OptionAll.
func (s *Section) GetAllOptions(key string) []string {
	return s.OptionAll(key)
}

// HasOption reports whether s has an option with the given key.
func (s *Section) HasOption(key string) bool {
	return s.Options.Has(key)
}

// AddOption appends a new option, leaving any existing one with the
// same key untouched.
func (s *Section) AddOption(key string, value string) *Section {
	s.Options = append(s.Options, &Option{Key: key, Value: value})
	return s
}

// SetOption replaces every option with the given key with one fresh
// option per value, appended in the order given.
func (s *Section) SetOption(key string, value ...string) *Section {
	s.Options = s.Options.withoutOption(key)
	for _, v := range value {
		s.Options = append(s.Options, &Option{Key: key, Value: v})
	}
	return s
}

// RemoveOption removes every option with the given key.
func (s *Section) RemoveOption(key string) *Section {
	s.Options = s.Options.withoutOption(key)
	return s
}

// IsName reports whether name matches s.Name, case-sensitively.
func (s *Subsection) IsName(name string) bool {
	return s.Name == name
}

// Option returns the value of the last matching option, or "" if unset.
func (s *Subsection) Option(key string) string {
	return s.Options.Get(key)
}

// GetOption is an alias of Option.
func (s *Subsection) GetOption(key string) string {
	return s.Option(key)
}

// OptionAll returns the values of every matching option, in file order.
func (s *Subsection) OptionAll(key string) []string {
	return s.Options.GetAll(key)
}

// GetAllOptions is an alias of OptionAll.
func (s *Subsection) GetAllOptions(key string) []string {
	return s.OptionAll(key)
}

// HasOption reports whether s has an option with the given key.
func (s *Subsection) HasOption(key string) bool {
	return s.Options.Has(key)
}

// AddOption appends a new option, leaving any existing one with the
// same key untouched.
func (s *Subsection) AddOption(key string, value string) *Subsection {
	s.Options = append(s.Options, &Option{Key: key, Value: value})
	return s
}

// SetOption updates, in place, the value of each existing occurrence of
// key with the corresponding value, dropping any occurrence beyond
// len(value) and appending the rest at the end. Position is preserved
// so that unrelated options interleaved with repeated keys stay put.
func (s *Subsection) SetOption(key string, value ...string) *Subsection {
	result := make(Options, 0, len(s.Options))
	idx := 0
	for _, o := range s.Options {
		if !o.IsKey(key) {
			result = append(result, o)
			continue
		}
		if idx < len(value) {
			o.Value = value[idx]
			result = append(result, o)
			idx++
		}
	}
	for ; idx < len(value); idx++ {
		result = append(result, &Option{Key: key, Value: value[idx]})
	}
	s.Options = result
	return s
}

// RemoveOption removes every option with the given key.
func (s *Subsection) RemoveOption(key string) *Subsection {
	s.Options = s.Options.withoutOption(key)
	return s
}
