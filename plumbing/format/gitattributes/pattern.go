// Package gitattributes implements matching against gitattributes-style
// patterns: https://git-scm.com/docs/gitattributes.
package gitattributes

import (
	"path/filepath"
	"strings"
)

// Pattern is a single parsed pattern from a gitattributes file, the
// part before any attribute assignments.
type Pattern interface {
	// Match reports whether path, an absolute repository-rooted path
	// split on "/", is covered by the pattern.
	Match(path []string) bool
}

type pattern struct {
	domain []string
	segs   []string
	isGlob bool
}

// ParsePattern parses the pattern portion of a single gitattributes
// line. domain is the repository-rooted directory the file lives in,
// split on "/"; a root .gitattributes has a nil domain.
func ParsePattern(p string, domain []string) Pattern {
	res := pattern{domain: domain}

	if strings.HasPrefix(p, "/") {
		p = p[1:]
	}

	if strings.Contains(p, "/") {
		res.isGlob = true
	}

	res.segs = strings.Split(p, "/")

	return &res
}

func (p *pattern) Match(path []string) bool {
	if len(path) < len(p.domain) {
		return false
	}
	for i, d := range p.domain {
		if path[i] != d {
			return false
		}
	}

	rel := path[len(p.domain):]
	if p.isGlob {
		return p.matchGlob(rel)
	}
	return p.matchSimple(rel)
}

// matchSimple matches a pattern with no path separator against the
// last component of rel only: attribute patterns with no slash match
// a file's basename anywhere it occurs, not any ancestor directory.
func (p *pattern) matchSimple(rel []string) bool {
	if len(p.segs) != 1 || len(rel) == 0 {
		return false
	}
	return matchName(p.segs[0], rel[len(rel)-1])
}

// matchGlob matches a pattern containing a path separator, anchored to
// the start of rel unless it begins with a bare "**". Unlike gitignore,
// a glob pattern must consume rel in full; nothing is left unmatched.
func (p *pattern) matchGlob(rel []string) bool {
	segs := p.segs
	if len(segs) > 0 && segs[0] == "**" {
		for start := 0; start <= len(rel); start++ {
			if matchSegs(segs[1:], rel, start) {
				return true
			}
		}
		return false
	}

	return matchSegs(segs, rel, 0)
}

func matchSegs(segs []string, rel []string, pos int) bool {
	if len(segs) == 0 {
		return pos == len(rel)
	}

	seg := segs[0]
	if seg == "**" {
		if len(segs) == 1 {
			// A trailing "**" matches everything inside, not the directory itself.
			return pos < len(rel)
		}
		for n := pos; n <= len(rel); n++ {
			if matchSegs(segs[1:], rel, n) {
				return true
			}
		}
		return false
	}

	if pos >= len(rel) {
		return false
	}
	if !matchName(seg, rel[pos]) {
		return false
	}
	return matchSegs(segs[1:], rel, pos+1)
}

// matchName matches a single path component against a single glob
// segment. A "**" embedded in a longer segment has no special meaning
// and never matches.
func matchName(pattern, name string) bool {
	if pattern != "**" && strings.Contains(pattern, "**") {
		return false
	}

	ok, err := filepath.Match(pattern, name)
	if err != nil {
		return false
	}
	return ok
}
