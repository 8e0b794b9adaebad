package manifest

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed package version: dotted release segments plus an
// optional pre-release tag (a/b/rc). Post/dev segments are not modelled;
// manifests in this codebase never pin them.
type Version struct {
	Release []int
	Pre     string // "", "a", "b", "rc"
	PreNum  int
	raw     string
}

func (v Version) String() string { return v.raw }

// ParseVersion parses a version string like "2.0.0.dev0"-free forms:
// "1", "1.2.3", "2.0.0rc1", "3.1b2".
func ParseVersion(s string) (Version, error) {
	v := Version{raw: s}
	rest := strings.TrimSpace(s)
	if rest == "" {
		return v, fmt.Errorf("empty version")
	}

	// Split off a pre-release suffix if present.
	for _, tag := range []string{"rc", "a", "b"} {
		if i := indexPreTag(rest, tag); i >= 0 {
			numPart := rest[i+len(tag):]
			n := 0
			if numPart != "" {
				parsed, err := strconv.Atoi(numPart)
				if err != nil {
					return v, fmt.Errorf("invalid pre-release in %q", s)
				}
				n = parsed
			}
			v.Pre = tag
			v.PreNum = n
			rest = strings.TrimSuffix(rest[:i], ".")
			break
		}
	}

	for _, part := range strings.Split(rest, ".") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return v, fmt.Errorf("invalid version %q", s)
		}
		v.Release = append(v.Release, n)
	}
	return v, nil
}

// indexPreTag finds a pre-release tag that starts after the numeric release,
// e.g. "2.0.0rc1" -> position of "rc". Returns -1 if absent.
func indexPreTag(s, tag string) int {
	i := strings.Index(s, tag)
	if i <= 0 {
		return -1
	}
	prev := s[i-1]
	if (prev < '0' || prev > '9') && prev != '.' {
		return -1
	}
	for _, r := range s[i+len(tag):] {
		if r < '0' || r > '9' {
			return -1
		}
	}
	return i
}

// Compare returns -1, 0 or 1. A pre-release orders before its final release.
func (v Version) Compare(o Version) int {
	n := len(v.Release)
	if len(o.Release) > n {
		n = len(o.Release)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(v.Release) {
			a = v.Release[i]
		}
		if i < len(o.Release) {
			b = o.Release[i]
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	// Equal releases: pre-release < final.
	if v.Pre == o.Pre {
		switch {
		case v.PreNum < o.PreNum:
			return -1
		case v.PreNum > o.PreNum:
			return 1
		}
		return 0
	}
	if v.Pre == "" {
		return 1
	}
	if o.Pre == "" {
		return -1
	}
	// a < b < rc
	order := map[string]int{"a": 0, "b": 1, "rc": 2}
	if order[v.Pre] < order[o.Pre] {
		return -1
	}
	return 1
}

// Satisfies reports whether the version matches a single specifier.
func (v Version) Satisfies(spec Specifier) (bool, error) {
	sv, err := ParseVersion(spec.Version)
	if err != nil {
		return false, err
	}
	cmp := v.Compare(sv)
	switch spec.Op {
	case "==":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case "<":
		return cmp < 0, nil
	case "~=":
		// Compatible release: >= V and == V with the final segment floated.
		if cmp < 0 {
			return false, nil
		}
		if len(sv.Release) < 2 {
			return false, fmt.Errorf("~= requires at least two release segments, got %q", spec.Version)
		}
		prefix := sv.Release[:len(sv.Release)-1]
		for i, seg := range prefix {
			var got int
			if i < len(v.Release) {
				got = v.Release[i]
			}
			if got != seg {
				return false, nil
			}
		}
		return true, nil
	}
	return false, fmt.Errorf("unknown specifier operator %q", spec.Op)
}

// SatisfiesAll reports whether the version matches every specifier.
func (v Version) SatisfiesAll(specs []Specifier) (bool, error) {
	for _, s := range specs {
		ok, err := v.Satisfies(s)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
