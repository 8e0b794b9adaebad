// Package manifest parses requirement manifests: one dependency per line with
// optional extras, version specifiers, environment marker and comment, plus
// "-r other-file" includes. Lock compilation pins every requirement against a
// version index.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Specifier is a single version constraint, e.g. ">=1.2".
type Specifier struct {
	Op      string // ==, !=, >=, <=, >, <, ~=
	Version string
}

func (s Specifier) String() string { return s.Op + s.Version }

// Requirement is one parsed manifest line.
type Requirement struct {
	Name       string // normalized package name
	RawName    string // name as written
	Extras     []string
	Specifiers []Specifier
	Marker     string // environment marker after ';'
	Source     string // manifest file the line came from
	Line       int
}

// Pinned reports whether the requirement is locked to exactly one version.
func (r Requirement) Pinned() bool {
	return len(r.Specifiers) == 1 && r.Specifiers[0].Op == "=="
}

func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.RawName)
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	for i, s := range r.Specifiers {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(s.String())
	}
	if r.Marker != "" {
		b.WriteString(" ; " + r.Marker)
	}
	return b.String()
}

// Manifest is a parsed requirement file, includes already flattened.
type Manifest struct {
	Path         string
	Requirements []Requirement
}

// ParseError carries the offending file position.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

var specifierOps = []string{"==", "!=", ">=", "<=", "~=", ">", "<"}

// ParseFile parses a manifest file, following "-r" includes relative to it.
// Include cycles are an error.
func ParseFile(path string) (*Manifest, error) {
	return parseFile(path, map[string]bool{})
}

func parseFile(path string, visiting map[string]bool) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if visiting[abs] {
		return nil, fmt.Errorf("include cycle detected at %s", path)
	}
	visiting[abs] = true
	defer delete(visiting, abs)

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	m := &Manifest{Path: path}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "-r "); ok {
			included := filepath.Join(filepath.Dir(path), strings.TrimSpace(rest))
			sub, err := parseFile(included, visiting)
			if err != nil {
				return nil, err
			}
			m.Requirements = append(m.Requirements, sub.Requirements...)
			continue
		}
		req, err := ParseLine(line)
		if err != nil {
			return nil, &ParseError{Path: path, Line: lineNo, Msg: err.Error()}
		}
		req.Source = path
		req.Line = lineNo
		m.Requirements = append(m.Requirements, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return m, nil
}

// Parse reads manifest content from r. Includes are not supported here since
// there is no directory to resolve them against.
func Parse(r io.Reader, name string) (*Manifest, error) {
	m := &Manifest{Path: name}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "-r ") {
			return nil, &ParseError{Path: name, Line: lineNo, Msg: "includes are not supported in stream parsing"}
		}
		req, err := ParseLine(line)
		if err != nil {
			return nil, &ParseError{Path: name, Line: lineNo, Msg: err.Error()}
		}
		req.Source = name
		req.Line = lineNo
		m.Requirements = append(m.Requirements, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseLine parses a single requirement line (comment already allowed inline).
func ParseLine(line string) (Requirement, error) {
	var req Requirement

	// Strip trailing comment.
	if i := strings.Index(line, "#"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" {
		return req, fmt.Errorf("empty requirement")
	}

	// Environment marker.
	if i := strings.Index(line, ";"); i >= 0 {
		req.Marker = strings.TrimSpace(line[i+1:])
		line = strings.TrimSpace(line[:i])
	}

	// Name and optional extras.
	nameEnd := strings.IndexAny(line, "[=!><~ ")
	if nameEnd == 0 {
		return req, fmt.Errorf("requirement has no package name: %q", line)
	}
	if nameEnd < 0 {
		nameEnd = len(line)
	}
	req.RawName = line[:nameEnd]
	if !validName(req.RawName) {
		return req, fmt.Errorf("invalid package name %q", req.RawName)
	}
	req.Name = NormalizeName(req.RawName)
	rest := strings.TrimSpace(line[nameEnd:])

	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return req, fmt.Errorf("unterminated extras in %q", line)
		}
		for _, e := range strings.Split(rest[1:end], ",") {
			e = strings.TrimSpace(e)
			if e != "" {
				req.Extras = append(req.Extras, NormalizeName(e))
			}
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	if rest == "" {
		return req, nil
	}

	for _, part := range strings.Split(rest, ",") {
		part = strings.TrimSpace(part)
		spec, err := parseSpecifier(part)
		if err != nil {
			return req, err
		}
		req.Specifiers = append(req.Specifiers, spec)
	}
	return req, nil
}

func parseSpecifier(s string) (Specifier, error) {
	for _, op := range specifierOps {
		if v, ok := strings.CutPrefix(s, op); ok {
			v = strings.TrimSpace(v)
			if v == "" {
				return Specifier{}, fmt.Errorf("specifier %q has no version", s)
			}
			if _, err := ParseVersion(v); err != nil {
				return Specifier{}, fmt.Errorf("specifier %q: %w", s, err)
			}
			return Specifier{Op: op, Version: v}, nil
		}
	}
	return Specifier{}, fmt.Errorf("invalid version specifier %q", s)
}

// NormalizeName applies the canonical package-name normalization: lowercase
// with runs of '-', '_' and '.' collapsed to a single '-'.
func NormalizeName(name string) string {
	var b strings.Builder
	prevSep := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			if !prevSep {
				b.WriteByte('-')
			}
			prevSep = true
			continue
		}
		prevSep = false
		b.WriteRune(r)
	}
	return b.String()
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
			if i == 0 || i == len(name)-1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
