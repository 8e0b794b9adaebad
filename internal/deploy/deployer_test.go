package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docship/internal/retry"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	calls int
	fail  int // number of leading calls that fail
	last  map[string]string
}

func (f *fakeDispatcher) DispatchWorkflow(_ context.Context, _, _, _, _ string, inputs map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = inputs
	if f.calls <= f.fail {
		return errors.New("simulated dispatch failure")
	}
	return nil
}

func newBareRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainInit(dir, true)
	require.NoError(t, err)
	return dir
}

func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for p, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

func testOptions(remote, siteDir string) Options {
	return Options{
		Repository:  "example-org/example-pages",
		Remote:      remote,
		Branch:      "docs",
		Workflow:    "publish.yml",
		Ref:         "docs",
		Version:     "2.1.0",
		SiteDir:     siteDir,
		AuthorName:  "docship",
		AuthorEmail: "docship@localhost",
		Retry:       retry.NonePolicy(),
	}
}

func headCommit(t *testing.T, bare string) *object.Commit {
	t.Helper()
	repo, err := git.PlainOpen(bare)
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName("docs"), true)
	require.NoError(t, err)
	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	return commit
}

func TestDeployToEmptyRepository(t *testing.T) {
	bare := newBareRepo(t)
	site := writeSite(t, map[string]string{"index.html": "<p>v1</p>", "assets/site.css": "body{}"})
	dispatcher := &fakeDispatcher{}

	result, err := New(testOptions(bare, site), dispatcher).Deploy(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Committed)
	assert.True(t, result.Dispatched)
	assert.Equal(t, "docs", result.Branch)

	commit := headCommit(t, bare)
	assert.Contains(t, commit.Message, "2.1.0")
	assert.Equal(t, "docship", commit.Author.Name)

	tree, err := commit.Tree()
	require.NoError(t, err)
	_, err = tree.File("index.html")
	assert.NoError(t, err)
	_, err = tree.File("assets/site.css")
	assert.NoError(t, err)

	assert.Equal(t, map[string]string{"version": "2.1.0"}, dispatcher.last)
}

func TestDeployUnchangedSiteSkipsCommit(t *testing.T) {
	bare := newBareRepo(t)
	site := writeSite(t, map[string]string{"index.html": "<p>v1</p>"})
	dispatcher := &fakeDispatcher{}

	first, err := New(testOptions(bare, site), dispatcher).Deploy(context.Background())
	require.NoError(t, err)
	require.True(t, first.Committed)

	second, err := New(testOptions(bare, site), dispatcher).Deploy(context.Background())
	require.NoError(t, err)
	assert.False(t, second.Committed)
	assert.True(t, second.Dispatched, "dispatch still happens for unchanged content")
	assert.Equal(t, first.Commit, second.Commit)
}

func TestDeployRemovesStalePages(t *testing.T) {
	bare := newBareRepo(t)
	dispatcher := &fakeDispatcher{}

	v1 := writeSite(t, map[string]string{"index.html": "v1", "old.html": "obsolete"})
	_, err := New(testOptions(bare, v1), dispatcher).Deploy(context.Background())
	require.NoError(t, err)

	v2 := writeSite(t, map[string]string{"index.html": "v2"})
	_, err = New(testOptions(bare, v2), dispatcher).Deploy(context.Background())
	require.NoError(t, err)

	tree, err := headCommit(t, bare).Tree()
	require.NoError(t, err)
	_, err = tree.File("old.html")
	assert.ErrorIs(t, err, object.ErrFileNotFound)
}

func TestDeployDispatchFailureAfterPush(t *testing.T) {
	bare := newBareRepo(t)
	site := writeSite(t, map[string]string{"index.html": "v1"})
	dispatcher := &fakeDispatcher{fail: 99}

	result, err := New(testOptions(bare, site), dispatcher).Deploy(context.Background())
	require.Error(t, err)

	var dispatchErr *DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, "docs", dispatchErr.Branch)
	assert.NotEmpty(t, dispatchErr.Commit)

	// The push happened regardless: the branch exists in the remote.
	commit := headCommit(t, bare)
	assert.Contains(t, commit.Message, "2.1.0")
	require.NotNil(t, result)
	assert.True(t, result.Committed)
	assert.False(t, result.Dispatched)
}

func TestDeployDispatchRetry(t *testing.T) {
	bare := newBareRepo(t)
	site := writeSite(t, map[string]string{"index.html": "v1"})
	dispatcher := &fakeDispatcher{fail: 1}

	opts := testOptions(bare, site)
	opts.Retry = retry.NewPolicy("fixed", 1, 1, 2)

	result, err := New(opts, dispatcher).Deploy(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Dispatched)
	assert.Equal(t, 2, dispatcher.calls)
}

func TestDeployWithoutWorkflowSkipsDispatch(t *testing.T) {
	bare := newBareRepo(t)
	site := writeSite(t, map[string]string{"index.html": "v1"})

	opts := testOptions(bare, site)
	opts.Workflow = ""

	result, err := New(opts, nil).Deploy(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Committed)
	assert.False(t, result.Dispatched)
}

func TestDeployValidation(t *testing.T) {
	site := writeSite(t, map[string]string{"index.html": "x"})

	noVersion := testOptions(newBareRepo(t), site)
	noVersion.Version = ""
	_, err := New(noVersion, &fakeDispatcher{}).Deploy(context.Background())
	assert.ErrorContains(t, err, "version")

	noSite := testOptions(newBareRepo(t), filepath.Join(t.TempDir(), "missing"))
	_, err = New(noSite, &fakeDispatcher{}).Deploy(context.Background())
	assert.ErrorContains(t, err, "site directory")

	httpNoToken := testOptions("", site)
	httpNoToken.Remote = ""
	_, err = New(httpNoToken, &fakeDispatcher{}).Deploy(context.Background())
	assert.ErrorContains(t, err, "token")
}
