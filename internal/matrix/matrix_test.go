package matrix

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMatrix = `
stages: [test, lint, deploy]
env:
  CI: "1"
jobs:
  - name: lint
    stage: lint
    script: [ruff check .]
  - name: deploy-pages
    stage: deploy
    script: [docship deploy]
    gate:
      tag: '^v\d+\.\d+\.\d+$'
      event: push
axes:
  - name_format: test-{os}-py{interpreter}
    template:
      stage: test
      arch: amd64
      script: [pytest]
    os: [linux, macos, windows]
    interpreter: ["3.10", "3.11"]
    exclude:
      - os: windows
        interpreter: "3.10"
`

func writeMatrix(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ci.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndExpand(t *testing.T) {
	m, err := Load(writeMatrix(t, sampleMatrix))
	require.NoError(t, err)

	jobs, err := m.Expand()
	require.NoError(t, err)
	// 3 os * 2 interpreters - 1 exclude + lint + deploy
	require.Len(t, jobs, 7)

	// Stage ordering: all test lanes first, lint next, deploy last.
	assert.Equal(t, "test", jobs[0].Stage)
	assert.Equal(t, "lint", jobs[5].Name)
	assert.Equal(t, "deploy-pages", jobs[6].Name)

	names := map[string]Job{}
	for _, j := range jobs {
		names[j.Name] = j
	}
	assert.Contains(t, names, "test-linux-py3.11")
	assert.NotContains(t, names, "test-windows-py3.10")
	assert.Equal(t, "amd64", names["test-macos-py3.10"].Arch)
	assert.Equal(t, "1", names["lint"].Env["CI"], "global env merged into every lane")
}

func TestExpandRejectsDuplicateNames(t *testing.T) {
	m, err := Load(writeMatrix(t, `
stages: [test]
jobs:
  - name: test-linux-py3.11
    stage: test
    script: [pytest]
axes:
  - name_format: test-{os}-py{interpreter}
    template:
      stage: test
      script: [pytest]
    os: [linux]
    interpreter: ["3.11"]
`))
	require.NoError(t, err)

	_, err = m.Expand()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate job name")
}

func TestValidateRejections(t *testing.T) {
	cases := map[string]string{
		"no stages":      "jobs:\n  - name: a\n    stage: test\n    script: [x]\n",
		"unknown stage":  "stages: [test]\njobs:\n  - name: a\n    stage: deploy\n    script: [x]\n",
		"empty script":   "stages: [test]\njobs:\n  - name: a\n    stage: test\n",
		"nameless job":   "stages: [test]\njobs:\n  - stage: test\n    script: [x]\n",
		"bad gate regex": "stages: [test]\njobs:\n  - name: a\n    stage: test\n    script: [x]\n    gate:\n      tag: '('\n",
	}
	for label, content := range cases {
		_, err := Load(writeMatrix(t, content))
		assert.Error(t, err, label)
	}
}

func TestGateMatching(t *testing.T) {
	tagGate := &Gate{Tag: `^v\d+`}
	assert.True(t, tagGate.Matches("v1.2.3", "push"))
	assert.False(t, tagGate.Matches("", "push"), "tag gate requires a tag")
	assert.False(t, tagGate.Matches("nightly", "push"))

	eventGate := &Gate{Event: "cron"}
	assert.True(t, eventGate.Matches("", "cron"))
	assert.False(t, eventGate.Matches("v1.0.0", "push"))

	var nilGate *Gate
	assert.True(t, nilGate.Matches("", ""))

	both := &Gate{Tag: `^v`, Event: "push"}
	assert.True(t, both.Matches("v2.0.0", "push"))
	assert.False(t, both.Matches("v2.0.0", "cron"))
}
