package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PinnedRequirement is one line of a compiled lock file.
type PinnedRequirement struct {
	Name    string
	Version Version
	Extras  []string
	Via     []string // manifest files that contributed constraints
}

// Compile merges the requirements of one or more manifests and pins each
// package to the highest indexed version satisfying all collected specifiers.
// Requirements already pinned with == are kept as written even when the index
// does not know the package; conflicting pins are an error.
func Compile(manifests []*Manifest, idx VersionIndex) ([]PinnedRequirement, error) {
	type merged struct {
		specs  []Specifier
		extras map[string]bool
		via    map[string]bool
	}
	byName := map[string]*merged{}
	var order []string

	for _, m := range manifests {
		for _, req := range m.Requirements {
			entry, ok := byName[req.Name]
			if !ok {
				entry = &merged{extras: map[string]bool{}, via: map[string]bool{}}
				byName[req.Name] = entry
				order = append(order, req.Name)
			}
			entry.specs = append(entry.specs, req.Specifiers...)
			for _, e := range req.Extras {
				entry.extras[e] = true
			}
			entry.via[req.Source] = true
		}
	}

	sort.Strings(order)
	pinned := make([]PinnedRequirement, 0, len(order))
	for _, name := range order {
		entry := byName[name]
		version, err := resolve(name, entry.specs, idx)
		if err != nil {
			return nil, err
		}
		pr := PinnedRequirement{Name: name, Version: version}
		for e := range entry.extras {
			pr.Extras = append(pr.Extras, e)
		}
		sort.Strings(pr.Extras)
		for v := range entry.via {
			pr.Via = append(pr.Via, v)
		}
		sort.Strings(pr.Via)
		pinned = append(pinned, pr)
	}
	return pinned, nil
}

func resolve(name string, specs []Specifier, idx VersionIndex) (Version, error) {
	// Exact pins short-circuit the index, but all pins must agree.
	var exact *Version
	for _, s := range specs {
		if s.Op != "==" {
			continue
		}
		v, err := ParseVersion(s.Version)
		if err != nil {
			return Version{}, err
		}
		if exact != nil && exact.Compare(v) != 0 {
			return Version{}, fmt.Errorf("conflicting pins for %s: %s and %s", name, exact, v)
		}
		exact = &v
	}
	if exact != nil {
		ok, err := exact.SatisfiesAll(specs)
		if err != nil {
			return Version{}, err
		}
		if !ok {
			return Version{}, fmt.Errorf("pinned version %s of %s violates its other specifiers", exact, name)
		}
		return *exact, nil
	}
	if idx == nil {
		return Version{}, fmt.Errorf("cannot resolve floating requirement %s without a version index", name)
	}
	return idx.Highest(name, specs)
}

// WriteLock renders pinned requirements in manifest syntax, annotated with
// the manifests that contributed each line.
func WriteLock(path string, pinned []PinnedRequirement) error {
	var b strings.Builder
	b.WriteString("# Generated by docship lock. Do not edit by hand.\n")
	for _, p := range pinned {
		b.WriteString(p.Name)
		if len(p.Extras) > 0 {
			b.WriteString("[" + strings.Join(p.Extras, ",") + "]")
		}
		b.WriteString("==" + p.Version.String())
		if len(p.Via) > 0 {
			vias := make([]string, len(p.Via))
			for i, v := range p.Via {
				vias[i] = filepath.Base(v)
			}
			b.WriteString("  # via " + strings.Join(vias, ", "))
		}
		b.WriteString("\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
