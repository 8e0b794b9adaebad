package emoji

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf16"
)

// Issue is one mapping verification finding.
type Issue struct {
	Name string
	Msg  string
}

func (i Issue) String() string {
	if i.Name == "" {
		return i.Msg
	}
	return fmt.Sprintf("%s: %s", i.Name, i.Msg)
}

// Verify checks the whole mapping. assetsDir may be empty, in which case
// asset existence is not checked. It returns all findings rather than
// stopping at the first.
func (m *Mapping) Verify(assetsDir string) []Issue {
	var issues []Issue
	seenName := map[string]bool{}
	seenSeq := map[string]string{}

	for _, e := range m.Entries {
		if !validEmojiName(e.Name) {
			issues = append(issues, Issue{Name: e.Name, Msg: "invalid name (want lowercase [a-z0-9_]+)"})
		}
		if seenName[e.Name] {
			issues = append(issues, Issue{Name: e.Name, Msg: "duplicate name"})
		}
		seenName[e.Name] = true

		if len(e.Codepoints) == 0 {
			issues = append(issues, Issue{Name: e.Name, Msg: "no codepoints"})
			continue
		}
		ok := true
		for _, cp := range e.Codepoints {
			if msg := checkCodepoint(cp); msg != "" {
				issues = append(issues, Issue{Name: e.Name, Msg: msg})
				ok = false
			}
		}
		if !ok {
			continue
		}

		seq, err := e.Sequence()
		if err == nil {
			if prev, dup := seenSeq[seq]; dup {
				issues = append(issues, Issue{Name: e.Name, Msg: "duplicate codepoint sequence, already mapped by " + prev})
			} else {
				seenSeq[seq] = e.Name
			}
		}

		if e.Asset != "" {
			if assetBaseOf(e.Asset) != e.AssetBase() {
				issues = append(issues, Issue{Name: e.Name,
					Msg: fmt.Sprintf("asset %s does not match codepoints (want base %s)", e.Asset, e.AssetBase())})
			}
			if assetsDir != "" {
				if _, err := os.Stat(filepath.Join(assetsDir, e.Asset)); err != nil {
					issues = append(issues, Issue{Name: e.Name, Msg: "asset file missing: " + e.Asset})
				}
			}
		}
	}
	return issues
}

func checkCodepoint(cp string) string {
	n, err := strconv.ParseUint(cp, 16, 32)
	if err != nil {
		return fmt.Sprintf("codepoint %q is not valid hex", cp)
	}
	r := rune(n)
	if r > '\U0010FFFF' {
		return fmt.Sprintf("codepoint %s is outside the unicode range", cp)
	}
	if utf16.IsSurrogate(r) {
		return fmt.Sprintf("codepoint %s is a surrogate", cp)
	}
	return ""
}

func validEmojiName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}
