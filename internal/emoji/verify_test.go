package emoji

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadMapping(t *testing.T, content string) *Mapping {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emoji_mapping.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	m, err := Load(path)
	require.NoError(t, err)
	return m
}

func TestVerifyCleanMapping(t *testing.T) {
	assets := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(assets, "1f44d.png"), []byte("x"), 0o644))

	m := loadMapping(t, `[
		{"name": "thumbsup", "codepoints": ["1F44D"], "asset": "1f44d.png"},
		{"name": "dash_face", "codepoints": ["1F62E", "200D", "1F4A8"]}
	]`)
	issues := m.Verify(assets)
	assert.Empty(t, issues)
}

func TestVerifyDuplicateName(t *testing.T) {
	m := loadMapping(t, `[
		{"name": "smile", "codepoints": ["1F600"]},
		{"name": "smile", "codepoints": ["1F601"]}
	]`)
	issues := m.Verify("")
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Msg, "duplicate name")
}

func TestVerifyDuplicateSequence(t *testing.T) {
	m := loadMapping(t, `[
		{"name": "smile", "codepoints": ["1F600"]},
		{"name": "grin", "codepoints": ["1F600"]}
	]`)
	issues := m.Verify("")
	require.Len(t, issues, 1)
	assert.Equal(t, "grin", issues[0].Name)
	assert.Contains(t, issues[0].Msg, "already mapped by smile")
}

func TestVerifyBadCodepoints(t *testing.T) {
	m := loadMapping(t, `[
		{"name": "bad_hex", "codepoints": ["XYZ"]},
		{"name": "surrogate", "codepoints": ["D800"]},
		{"name": "too_big", "codepoints": ["110000"]},
		{"name": "empty", "codepoints": []}
	]`)
	issues := m.Verify("")
	require.Len(t, issues, 4)
}

func TestVerifyInvalidName(t *testing.T) {
	m := loadMapping(t, `[{"name": "Bad-Name", "codepoints": ["1F600"]}]`)
	issues := m.Verify("")
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Msg, "invalid name")
}

func TestVerifyAssetChecks(t *testing.T) {
	assets := t.TempDir()
	m := loadMapping(t, `[
		{"name": "missing", "codepoints": ["1F600"], "asset": "1f600.png"},
		{"name": "mismatch", "codepoints": ["1F601"], "asset": "wrong.png"}
	]`)
	issues := m.Verify(assets)
	require.Len(t, issues, 3)

	msgs := make([]string, len(issues))
	for i, is := range issues {
		msgs[i] = is.String()
	}
	assert.Contains(t, msgs[0], "asset file missing")
	assert.Contains(t, msgs[1], "does not match codepoints")
}

func TestSequence(t *testing.T) {
	e := Entry{Name: "dash_face", Codepoints: []string{"1F62E", "200D", "1F4A8"}}
	seq, err := e.Sequence()
	require.NoError(t, err)
	assert.Equal(t, "\U0001F62E\u200D\U0001F4A8", seq)
	assert.Equal(t, "1f62e-200d-1f4a8", e.AssetBase())
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emoji_mapping.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "a list"}`), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
