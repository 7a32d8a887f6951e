package config

import (
	"fmt"
	"io"
	"strings"
)

// Encoder writes a Config in git's config file text format.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes cfg to the underlying writer. A section with no options
// of its own gets no "[section]" header line; its subsections are still
// written.
func (e *Encoder) Encode(cfg *Config) error {
	for _, s := range cfg.Sections {
		if err := e.encodeSection(s); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeSection(s *Section) error {
	if len(s.Options) > 0 {
		if err := e.printf("[%s]\n", s.Name); err != nil {
			return err
		}

		if err := e.encodeOptions(s.Options); err != nil {
			return err
		}
	}

	for _, ss := range s.Subsections {
		if err := e.encodeSubsection(s.Name, ss); err != nil {
			return err
		}
	}

	return nil
}

func (e *Encoder) encodeSubsection(section string, s *Subsection) error {
	if err := e.printf("[%s \"%s\"]\n", section, escapeSubsectionName(s.Name)); err != nil {
		return err
	}
	return e.encodeOptions(s.Options)
}

func (e *Encoder) encodeOptions(opts Options) error {
	for _, o := range opts {
		if err := e.printf("\t%s = %s\n", o.Key, encodeValue(o.Value)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) printf(format string, args ...interface{}) error {
	_, err := fmt.Fprintf(e.w, format, args...)
	return err
}

func escapeSubsectionName(name string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return r.Replace(name)
}

// encodeValue quotes a value when leaving it bare would change its
// meaning: a leading or trailing space, or an embedded comment
// character, would otherwise be lost or misread on the next parse.
func encodeValue(value string) string {
	if !needsQuote(value) {
		return value
	}

	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(value) + `"`
}

func needsQuote(value string) bool {
	if value == "" {
		return false
	}
	if strings.HasPrefix(value, " ") || strings.HasSuffix(value, " ") {
		return true
	}
	return strings.ContainsAny(value, "#;\"\\")
}
