// Package gitignore implements matching against gitignore-style
// exclude/include patterns: https://git-scm.com/docs/gitignore.
package gitignore

import (
	"path/filepath"
	"strings"
)

// MatchResult is the outcome of testing a path against a Pattern.
type MatchResult int

const (
	// NoMatch means the pattern had no opinion on the path.
	NoMatch MatchResult = iota
	// Exclude means the pattern says the path should be ignored.
	Exclude
	// Include means the pattern (a "!"-negated one) says the path
	// should be un-ignored.
	Include
)

// Pattern is a single parsed line of a gitignore-style file.
type Pattern interface {
	// Match reports how the pattern applies to path, which is an
	// absolute, repository-rooted path split on "/". isDir reports
	// whether the path names a directory.
	Match(path []string, isDir bool) MatchResult
}

// pattern is the only implementation of Pattern.
type pattern struct {
	domain    []string
	segs      []string
	inclusion bool
	dirOnly   bool
	isGlob    bool
}

// ParsePattern parses a single pattern line found in a gitignore-style
// file. domain is the repository-rooted directory the file lives in,
// split on "/"; a root .gitignore has a nil domain.
func ParsePattern(p string, domain []string) Pattern {
	res := pattern{domain: domain}

	if strings.HasPrefix(p, "!") {
		res.inclusion = true
		p = p[1:]
	}

	if strings.HasSuffix(p, "/") {
		res.dirOnly = true
		p = p[:len(p)-1]
	}

	if strings.HasPrefix(p, "/") {
		p = p[1:]
	}

	if strings.Contains(p, "/") {
		res.isGlob = true
	}

	res.segs = strings.Split(p, "/")

	return &res
}

func (p *pattern) Match(path []string, isDir bool) MatchResult {
	if len(path) < len(p.domain) {
		return NoMatch
	}
	for i, d := range p.domain {
		if path[i] != d {
			return NoMatch
		}
	}

	rel := path[len(p.domain):]

	var matched bool
	if p.isGlob {
		matched = p.matchGlob(rel, isDir)
	} else {
		matched = p.matchSimple(rel, isDir)
	}

	if !matched {
		return NoMatch
	}
	if p.inclusion {
		return Include
	}
	return Exclude
}

// matchSimple matches a pattern with no path separator against any
// single component of rel, honouring dirOnly only at the end of rel.
func (p *pattern) matchSimple(rel []string, isDir bool) bool {
	if len(p.segs) != 1 {
		return false
	}

	for i, seg := range rel {
		if !matchName(p.segs[0], seg) {
			continue
		}

		isLast := i == len(rel)-1
		if p.dirOnly && isLast && !isDir {
			continue
		}
		return true
	}
	return false
}

// matchGlob matches a pattern containing a path separator. It is
// anchored to the start of rel unless it begins with a bare "**",
// which may consume any number of leading components.
func (p *pattern) matchGlob(rel []string, isDir bool) bool {
	segs := p.segs
	if len(segs) > 0 && segs[0] == "**" {
		for start := 0; start <= len(rel); start++ {
			if matchSegs(segs[1:], rel, start, p.dirOnly, isDir) {
				return true
			}
		}
		return false
	}

	return matchSegs(segs, rel, 0, p.dirOnly, isDir)
}

// matchSegs walks segs against rel starting at pos, letting a bare
// "**" component consume any number of rel components.
func matchSegs(segs []string, rel []string, pos int, dirOnly, isDir bool) bool {
	if len(segs) == 0 {
		isLast := pos == len(rel)
		if dirOnly && isLast && !isDir {
			return false
		}
		return true
	}

	seg := segs[0]
	if seg == "**" {
		for n := pos; n <= len(rel); n++ {
			if matchSegs(segs[1:], rel, n, dirOnly, isDir) {
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
	return matchSegs(segs[1:], rel, pos+1, dirOnly, isDir)
}

// matchName matches a single path component against a single glob
// segment. A "**" embedded in a longer segment has no special meaning
// in gitignore and never matches.
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
