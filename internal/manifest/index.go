package manifest

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// VersionIndex lists the versions available per (normalized) package name.
// Lock compilation resolves floating constraints against it.
type VersionIndex map[string][]Version

// LoadIndex reads a YAML version index: package -> list of version strings.
func LoadIndex(path string) (VersionIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read version index: %w", err)
	}
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal version index: %w", err)
	}
	idx := make(VersionIndex, len(raw))
	for name, versions := range raw {
		parsed := make([]Version, 0, len(versions))
		for _, vs := range versions {
			v, err := ParseVersion(vs)
			if err != nil {
				return nil, fmt.Errorf("version index entry %s: %w", name, err)
			}
			parsed = append(parsed, v)
		}
		sort.Slice(parsed, func(i, j int) bool { return parsed[i].Compare(parsed[j]) < 0 })
		idx[NormalizeName(name)] = parsed
	}
	return idx, nil
}

// Highest returns the highest indexed version of pkg satisfying all specs.
// Pre-releases are skipped unless a specifier mentions one explicitly.
func (idx VersionIndex) Highest(pkg string, specs []Specifier) (Version, error) {
	versions, ok := idx[NormalizeName(pkg)]
	if !ok {
		return Version{}, fmt.Errorf("package %s not present in version index", pkg)
	}
	allowPre := false
	for _, s := range specs {
		if v, err := ParseVersion(s.Version); err == nil && v.Pre != "" {
			allowPre = true
			break
		}
	}
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].Pre != "" && !allowPre {
			continue
		}
		ok, err := versions[i].SatisfiesAll(specs)
		if err != nil {
			return Version{}, err
		}
		if ok {
			return versions[i], nil
		}
	}
	return Version{}, fmt.Errorf("no version of %s satisfies %v", pkg, specs)
}
