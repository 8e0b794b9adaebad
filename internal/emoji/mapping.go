// Package emoji verifies the project's custom emoji mapping: the JSON file
// that maps emoji names to unicode codepoint sequences and their rendered
// asset files.
package emoji

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Entry is one emoji in the mapping file.
type Entry struct {
	Name       string   `json:"name"`
	Codepoints []string `json:"codepoints"`      // uppercase hex, e.g. ["1F62E", "200D", "1F4A8"]
	Asset      string   `json:"asset,omitempty"` // image file relative to the assets dir
}

// Mapping is the parsed emoji mapping file.
type Mapping struct {
	Path    string
	Entries []Entry
}

// Load parses the mapping JSON.
func Load(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read emoji mapping: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal emoji mapping: %w", err)
	}
	return &Mapping{Path: path, Entries: entries}, nil
}

// Sequence renders the entry's codepoints as the actual emoji string.
func (e Entry) Sequence() (string, error) {
	var b strings.Builder
	for _, cp := range e.Codepoints {
		n, err := strconv.ParseUint(cp, 16, 32)
		if err != nil {
			return "", fmt.Errorf("codepoint %q of %s is not hex", cp, e.Name)
		}
		b.WriteRune(rune(n))
	}
	return b.String(), nil
}

// AssetBase is the twemoji-style file base name for the entry: lowercase
// codepoints joined with '-'.
func (e Entry) AssetBase() string {
	parts := make([]string, len(e.Codepoints))
	for i, cp := range e.Codepoints {
		parts[i] = strings.ToLower(cp)
	}
	return strings.Join(parts, "-")
}

// assetBaseOf strips the extension from an asset file name.
func assetBaseOf(asset string) string {
	base := filepath.Base(asset)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
