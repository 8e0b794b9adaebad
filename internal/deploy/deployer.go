// Package deploy publishes the generated site: clone the pages repository,
// replace its content with the fresh build, commit, push, then dispatch the
// downstream publish workflow. The sequence is linear and blocking; there is
// no rollback once a step has succeeded.
package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/docship/internal/logfields"
	"git.home.luguber.info/inful/docship/internal/retry"
)

// Dispatcher triggers the downstream publish workflow after the push.
type Dispatcher interface {
	DispatchWorkflow(ctx context.Context, owner, repo, workflow, ref string, inputs map[string]string) error
}

// Options configures one deployment.
type Options struct {
	Repository  string // owner/name of the pages repository
	Remote      string // remote URL override; derived from Repository when empty
	Branch      string // branch the site is committed to
	Workflow    string // workflow file to dispatch, empty disables dispatch
	Ref         string // ref the dispatched workflow runs against
	Version     string
	Token       string
	SiteDir     string
	WorkDir     string // checkout location; a temp dir when empty
	AuthorName  string
	AuthorEmail string
	Retry       retry.Policy // applied to the dispatch call only
}

// Result reports what the deployment did.
type Result struct {
	Commit     string
	Branch     string
	Committed  bool // false when the site was already up to date
	Dispatched bool
}

// Deployer runs deployments.
type Deployer struct {
	opts       Options
	dispatcher Dispatcher
}

// New creates a deployer. dispatcher may be nil when Options.Workflow is empty.
func New(opts Options, dispatcher Dispatcher) *Deployer {
	return &Deployer{opts: opts, dispatcher: dispatcher}
}

// Deploy runs the whole sequence. A *DispatchError return means the push
// succeeded and only the workflow dispatch failed.
func (d *Deployer) Deploy(ctx context.Context) (*Result, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	workDir := d.opts.WorkDir
	if workDir == "" {
		tmp, err := os.MkdirTemp("", "docship-deploy-*")
		if err != nil {
			return nil, fmt.Errorf("create deploy workspace: %w", err)
		}
		workDir = tmp
		defer func() {
			if err := os.RemoveAll(tmp); err != nil {
				slog.Warn("Failed to clean deploy workspace", logfields.Error(err))
			}
		}()
	}

	repo, err := d.checkout(ctx, workDir)
	if err != nil {
		return nil, err
	}

	result := &Result{Branch: d.opts.Branch}
	commit, committed, err := d.commitSite(repo, workDir)
	if err != nil {
		return nil, err
	}
	result.Commit = commit
	result.Committed = committed

	if committed {
		if err := d.push(ctx, repo); err != nil {
			return nil, err
		}
		slog.Info("Site pushed",
			logfields.Branch(d.opts.Branch),
			logfields.Version(d.opts.Version),
			slog.String("commit", shortHash(commit)))
	} else {
		slog.Info("Site unchanged, nothing to push", logfields.Branch(d.opts.Branch))
	}

	if d.opts.Workflow != "" {
		if err := d.dispatch(ctx); err != nil {
			return result, &DispatchError{Commit: shortHash(commit), Branch: d.opts.Branch, Err: err}
		}
		result.Dispatched = true
		slog.Info("Publish workflow dispatched",
			slog.String("workflow", d.opts.Workflow), logfields.Version(d.opts.Version))
	}
	return result, nil
}

func (d *Deployer) validate() error {
	if d.opts.Version == "" {
		return fmt.Errorf("deployment requires a version (set VERSION)")
	}
	if d.opts.Repository == "" && d.opts.Remote == "" {
		return fmt.Errorf("deployment requires a pages repository")
	}
	if d.opts.Branch == "" {
		return fmt.Errorf("deployment requires a target branch")
	}
	if info, err := os.Stat(d.opts.SiteDir); err != nil || !info.IsDir() {
		return fmt.Errorf("site directory does not exist: %s", d.opts.SiteDir)
	}
	if d.remoteURL() == "" {
		return fmt.Errorf("cannot derive remote URL for %q", d.opts.Repository)
	}
	if strings.HasPrefix(d.remoteURL(), "http") && d.opts.Token == "" {
		return fmt.Errorf("deployment over HTTP requires a token (set GITHUB_TOKEN)")
	}
	if d.opts.Workflow != "" && d.dispatcher == nil {
		return fmt.Errorf("workflow %q configured but no dispatcher available", d.opts.Workflow)
	}
	return nil
}

func (d *Deployer) remoteURL() string {
	if d.opts.Remote != "" {
		return d.opts.Remote
	}
	if d.opts.Repository == "" {
		return ""
	}
	return "https://github.com/" + d.opts.Repository + ".git"
}

func (d *Deployer) auth() transport.AuthMethod {
	if strings.HasPrefix(d.remoteURL(), "http") && d.opts.Token != "" {
		return &githttp.BasicAuth{Username: "x-access-token", Password: d.opts.Token}
	}
	return nil
}

// checkout clones the pages repository at the target branch. Empty remote
// repositories and missing branches both fall back to a fresh local branch.
func (d *Deployer) checkout(ctx context.Context, workDir string) (*git.Repository, error) {
	url := d.remoteURL()
	slog.Debug("Cloning pages repository", logfields.URL(url), logfields.Branch(d.opts.Branch), logfields.Path(workDir))

	repo, err := git.PlainCloneContext(ctx, workDir, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(d.opts.Branch),
		SingleBranch:  true,
		Auth:          d.auth(),
	})
	if err == nil {
		return repo, nil
	}
	if err == transport.ErrEmptyRemoteRepository {
		return d.initEmpty(workDir, url)
	}
	if strings.Contains(strings.ToLower(err.Error()), "couldn't find remote ref") {
		// Branch does not exist yet: clone the default branch and start ours.
		return d.cloneNewBranch(ctx, workDir, url)
	}
	return nil, fmt.Errorf("failed to clone pages repository %s: %w", url, err)
}

func (d *Deployer) initEmpty(workDir, url string) (*git.Repository, error) {
	repo, err := git.PlainInit(workDir, false)
	if err != nil {
		return nil, fmt.Errorf("init pages repository: %w", err)
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{url}}); err != nil {
		return nil, fmt.Errorf("add origin remote: %w", err)
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(d.opts.Branch))
	if err := repo.Storer.SetReference(head); err != nil {
		return nil, fmt.Errorf("set HEAD to %s: %w", d.opts.Branch, err)
	}
	return repo, nil
}

func (d *Deployer) cloneNewBranch(ctx context.Context, workDir, url string) (*git.Repository, error) {
	if err := os.RemoveAll(workDir); err != nil {
		return nil, fmt.Errorf("reset deploy workspace: %w", err)
	}
	repo, err := git.PlainCloneContext(ctx, workDir, false, &git.CloneOptions{URL: url, Auth: d.auth()})
	if err != nil {
		return nil, fmt.Errorf("failed to clone pages repository %s: %w", url, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	err = worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(d.opts.Branch),
		Create: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create branch %s: %w", d.opts.Branch, err)
	}
	return repo, nil
}

// commitSite replaces the checkout content with the generated site and
// commits. Returns the head commit hash and whether a new commit was made.
func (d *Deployer) commitSite(repo *git.Repository, workDir string) (string, bool, error) {
	if err := clearWorktree(workDir); err != nil {
		return "", false, err
	}
	if err := copyTree(d.opts.SiteDir, workDir); err != nil {
		return "", false, fmt.Errorf("stage site into checkout: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", false, err
	}
	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", false, fmt.Errorf("git add: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return "", false, err
	}
	if status.IsClean() {
		head, err := repo.Head()
		if err != nil {
			return "", false, fmt.Errorf("site is empty and repository has no history")
		}
		return head.Hash().String(), false, nil
	}

	hash, err := worktree.Commit(fmt.Sprintf("Deploy documentation for %s", d.opts.Version), &git.CommitOptions{
		Author: &object.Signature{
			Name:  d.opts.AuthorName,
			Email: d.opts.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("git commit: %w", err)
	}
	return hash.String(), true, nil
}

func (d *Deployer) push(ctx context.Context, repo *git.Repository) error {
	refspec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", d.opts.Branch, d.opts.Branch))
	err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refspec},
		Auth:       d.auth(),
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("git push: %w", err)
	}
	return nil
}

func (d *Deployer) dispatch(ctx context.Context) error {
	owner, repo, ok := strings.Cut(d.opts.Repository, "/")
	if !ok {
		return fmt.Errorf("repository %q is not in owner/name form", d.opts.Repository)
	}
	inputs := map[string]string{"version": d.opts.Version}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(d.opts.Retry.Delay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
			slog.Warn("Retrying workflow dispatch", slog.Int("attempt", attempt), logfields.Error(lastErr))
		}
		lastErr = d.dispatcher.DispatchWorkflow(ctx, owner, repo, d.opts.Workflow, d.opts.Ref, inputs)
		if lastErr == nil {
			return nil
		}
		if attempt >= d.opts.Retry.MaxRetries {
			return lastErr
		}
	}
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
