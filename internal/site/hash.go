package site

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// siteHash accumulates a deterministic content hash over rendered pages so
// callers can detect no-op rebuilds.
type siteHash struct {
	entries map[string][32]byte
}

func newSiteHash() *siteHash {
	return &siteHash{entries: map[string][32]byte{}}
}

func (h *siteHash) add(path string, content []byte) {
	h.entries[path] = sha256.Sum256(content)
}

func (h *siteHash) sum() string {
	paths := make([]string, 0, len(h.entries))
	for p := range h.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	acc := sha256.New()
	for _, p := range paths {
		acc.Write([]byte(p))
		sum := h.entries[p]
		acc.Write(sum[:])
	}
	return hex.EncodeToString(acc.Sum(nil))
}
