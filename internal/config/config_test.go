package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
site:
  title: "Test Docs"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Test Docs", cfg.Site.Title)
	assert.Equal(t, "./docs", cfg.Site.DocsDir)
	assert.Equal(t, "/", cfg.Site.BaseURL)
	assert.Equal(t, "./public", cfg.Output.Directory)
	assert.Equal(t, "ci.yaml", cfg.Matrix.File)
	assert.Equal(t, 4, cfg.Matrix.MaxParallel)
	assert.Equal(t, "docs", cfg.Deploy.Branch)
	assert.Equal(t, cfg.Deploy.Branch, cfg.Deploy.Ref)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_DOCS_DIR", "/srv/docs")
	path := writeConfig(t, `
site:
  docs_dir: ${TEST_DOCS_DIR}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/docs", cfg.Site.DocsDir)
}

func TestLoadDaemonDefaults(t *testing.T) {
	path := writeConfig(t, `
daemon:
  interval: 30m
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Daemon)
	assert.Equal(t, 30*time.Minute, cfg.Daemon.IntervalDuration())
	assert.Equal(t, ":9180", cfg.Daemon.ListenAddr)
	assert.Equal(t, "/metrics", cfg.Daemon.MetricsPath)
	assert.Equal(t, "docship-history.db", cfg.Daemon.HistoryDB)
}

func TestLoadRejectsBadInterval(t *testing.T) {
	path := writeConfig(t, `
daemon:
  interval: sometimes
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadRetryDurations(t *testing.T) {
	path := writeConfig(t, `
deploy:
  retry:
    max_retries: 2
    initial: fast
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadRepository(t *testing.T) {
	cases := []string{"noslash", "too/many/slashes", "/leading", "trailing/"}
	for _, repo := range cases {
		path := writeConfig(t, "deploy:\n  repository: "+repo+"\n")
		_, err := Load(path)
		assert.Error(t, err, repo)
	}

	path := writeConfig(t, "deploy:\n  repository: owner/name\n")
	_, err := Load(path)
	assert.NoError(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Init(path, false))

	// Refuses to overwrite without force.
	assert.Error(t, Init(path, false))
	assert.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Project Documentation", cfg.Site.Title)
	assert.Equal(t, "example-org/example-pages", cfg.Deploy.Repository)
}
