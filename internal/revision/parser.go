// Package revision implements the simplified "ref~n^m@{k}" revision
// grammar: a base reference name, optionally followed by either a run
// of first-parent-walk operators (`~`/`^`, both meaning "first parent"
// here) or a single reflog selector (`@{n}`). Time-based reflog
// selectors (`@{1.day.ago}`) and the n-th-parent form of `^n` are not
// supported; see the package's Parse documentation.
package revision

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRevision is returned when the input does not match any
// supported revision form.
var ErrInvalidRevision = errors.New("invalid revision")

// ErrUnsupported is returned for syntactically valid forms this
// package deliberately does not implement (time-based reflog
// selectors).
var ErrUnsupported = errors.New("unsupported revision syntax")

// Revision is the parsed form of a revision parameter.
type Revision struct {
	// Ref is the base reference or revision name to resolve first.
	Ref string
	// Reflog, when non-nil, selects the n-th (0 = newest) reflog entry
	// for Ref instead of walking parents.
	Reflog *int
	// Parents is the number of first-parent hops to walk from Ref.
	Parents int
}

type tokenLit struct {
	tok token
	lit string
}

// Parse parses rev according to the grammar documented on the package.
func Parse(rev string) (*Revision, error) {
	if rev == "" {
		return nil, ErrInvalidRevision
	}

	seq, err := tokenize(rev)
	if err != nil {
		return nil, err
	}

	if len(seq) == 0 {
		return nil, ErrInvalidRevision
	}

	if atIdx := indexReflogAt(seq); atIdx >= 0 {
		return parseReflog(rev, seq, atIdx)
	}

	return parseParentWalk(rev, seq), nil
}

func tokenize(rev string) ([]tokenLit, error) {
	sc := newScanner(strings.NewReader(rev))

	var seq []tokenLit
	for {
		tok, lit, err := sc.scan()
		if err != nil {
			return nil, err
		}

		if tok == eof {
			return seq, nil
		}

		if tok == tokenError {
			return nil, fmt.Errorf("%w: unexpected character %q in %q", ErrInvalidRevision, lit, rev)
		}

		seq = append(seq, tokenLit{tok: tok, lit: lit})
	}
}

// indexReflogAt returns the index of an `@` token immediately followed
// by `{` and with the sequence ending in `}`, or -1 if the input is not
// in `ref@{...}` form.
func indexReflogAt(seq []tokenLit) int {
	if len(seq) < 3 || seq[len(seq)-1].tok != cbrace {
		return -1
	}

	for i := 0; i < len(seq)-1; i++ {
		if seq[i].tok == at && seq[i+1].tok == obrace {
			return i
		}
	}

	return -1
}

func parseReflog(rev string, seq []tokenLit, atIdx int) (*Revision, error) {
	base := joinLits(seq[:atIdx])
	if base == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRevision, rev)
	}

	selector := seq[atIdx+2 : len(seq)-1]
	if len(selector) == 1 && selector[0].tok == number {
		n, err := strconv.Atoi(selector[0].lit)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRevision, rev)
		}

		return &Revision{Ref: base, Reflog: &n}, nil
	}

	return nil, fmt.Errorf("%w: time-based reflog selector %q", ErrUnsupported, joinLits(selector))
}

func parseParentWalk(rev string, seq []tokenLit) *Revision {
	end := len(seq)

	hops := 0
	hasDigit := false
	if seq[end-1].tok == number {
		hasDigit = true
		hops, _ = strconv.Atoi(seq[end-1].lit)
		end--
	}

	opStart := end
	for opStart > 0 && (seq[opStart-1].tok == tilde || seq[opStart-1].tok == caret) {
		opStart--
	}

	if opStart == end {
		// No ~/^ run: this is a plain ref, even if it contains digits
		// (e.g. a branch literally named "release-2").
		return &Revision{Ref: rev}
	}

	base := joinLits(seq[:opStart])
	if !hasDigit {
		hops = end - opStart
	}

	return &Revision{Ref: base, Parents: hops}
}

func joinLits(seq []tokenLit) string {
	var sb strings.Builder
	for _, t := range seq {
		sb.WriteString(t.lit)
	}

	return sb.String()
}
