// Package runner executes an expanded CI matrix locally: lanes within a stage
// run concurrently under a bounded worker pool, each lane is strictly
// sequential internally, and a failed stage skips the stages after it.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docship/internal/logfields"
	"git.home.luguber.info/inful/docship/internal/matrix"
)

// Status is the terminal state of a lane.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result records one lane's outcome.
type Result struct {
	Job        matrix.Job
	Status     Status
	SkipReason string
	Err        error
	Duration   time.Duration
	StepsRun   int
}

// Failed reports whether the lane counts against the run. Lanes marked
// allow_failure never fail the run.
func (r Result) Failed() bool {
	return r.Status == StatusFailed && !r.Job.AllowFailure
}

// Report aggregates a whole run.
type Report struct {
	RunID    string
	Results  []Result
	Duration time.Duration
}

// Failed reports whether any lane failed the run.
func (rep *Report) Failed() bool {
	for _, r := range rep.Results {
		if r.Failed() {
			return true
		}
	}
	return false
}

// Options configures a run.
type Options struct {
	Tag         string // release tag of this run, empty for untagged
	Event       string // event type: push, cron, ...
	MaxParallel int    // concurrent lanes per stage, min 1
	Dir         string // working directory for steps
	Output      io.Writer
	Observers   []Observer
}

// Runner executes a matrix.
type Runner struct {
	matrix *matrix.Matrix
	opts   Options
}

// New creates a runner. MaxParallel below 1 is clamped to 1.
func New(m *matrix.Matrix, opts Options) *Runner {
	if opts.MaxParallel < 1 {
		opts.MaxParallel = 1
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{matrix: m, opts: opts}
}

// Run expands the matrix and executes it stage by stage. The returned report
// is complete even when lanes failed; the error is reserved for conditions
// that prevented the run itself (expansion failure, cancellation).
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	jobs, err := r.matrix.Expand()
	if err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString()}
	start := time.Now()
	r.notify(func(o Observer) { o.RunStarted(report.RunID, len(jobs)) })
	slog.Info("Starting matrix run", logfields.RunID(report.RunID), slog.Int("lanes", len(jobs)))

	byStage := map[string][]matrix.Job{}
	for _, j := range jobs {
		byStage[j.Stage] = append(byStage[j.Stage], j)
	}

	stageFailed := false
	for _, stage := range r.matrix.Stages {
		lanes := byStage[stage]
		if len(lanes) == 0 {
			continue
		}
		if stageFailed {
			for _, j := range lanes {
				report.Results = append(report.Results, r.skip(report.RunID, j, "earlier stage failed"))
			}
			continue
		}
		results, err := r.runStage(ctx, report.RunID, stage, lanes)
		report.Results = append(report.Results, results...)
		if err != nil {
			report.Duration = time.Since(start)
			return report, err
		}
		for _, res := range results {
			if res.Failed() {
				stageFailed = true
			}
		}
	}

	report.Duration = time.Since(start)
	r.notify(func(o Observer) { o.RunFinished(report) })
	slog.Info("Matrix run finished",
		logfields.RunID(report.RunID),
		slog.Bool("failed", report.Failed()),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

func (r *Runner) runStage(ctx context.Context, runID, stage string, lanes []matrix.Job) ([]Result, error) {
	slog.Info("Running stage", logfields.RunID(runID), logfields.Stage(stage), slog.Int("lanes", len(lanes)))

	sem := make(chan struct{}, r.opts.MaxParallel)
	results := make([]Result, len(lanes))
	var group WorkerGroup

	for i, job := range lanes {
		i, job := i, job
		group.Go(func() {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = r.skip(runID, job, "run cancelled")
				return
			}
			results[i] = r.runLane(ctx, runID, job)
		})
	}

	// Wait for every lane even on cancellation: runStep kills in-flight
	// commands when ctx ends, so lanes terminate promptly, and waiting
	// guarantees the report never carries half-written results.
	group.Wait()

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("stage %s interrupted: %w", stage, err)
	}
	return results, nil
}

func (r *Runner) runLane(ctx context.Context, runID string, job matrix.Job) Result {
	if !job.Gate.Matches(r.opts.Tag, r.opts.Event) {
		return r.skip(runID, job, "gate does not match")
	}
	if job.OS != "" && job.OS != hostOS() {
		return r.skip(runID, job, fmt.Sprintf("requires os %s, host is %s", job.OS, hostOS()))
	}

	r.notify(func(o Observer) { o.LaneStarted(runID, job) })
	slog.Info("Lane started", logfields.RunID(runID), logfields.Lane(job.Name), logfields.Stage(job.Stage))

	res := Result{Job: job, Status: StatusPassed}
	start := time.Now()
	for _, step := range job.Script {
		if err := r.runStep(ctx, job, step); err != nil {
			res.Status = StatusFailed
			res.Err = fmt.Errorf("step %q: %w", step, err)
			break
		}
		res.StepsRun++
	}
	res.Duration = time.Since(start)

	r.notify(func(o Observer) { o.LaneFinished(runID, res) })
	if res.Status == StatusFailed {
		slog.Error("Lane failed",
			logfields.RunID(runID), logfields.Lane(job.Name),
			slog.Bool("allow_failure", job.AllowFailure), logfields.Error(res.Err))
	} else {
		slog.Info("Lane passed",
			logfields.RunID(runID), logfields.Lane(job.Name),
			logfields.DurationMS(float64(res.Duration.Milliseconds())))
	}
	return res
}

func (r *Runner) runStep(ctx context.Context, job matrix.Job, step string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", step)
	cmd.Dir = r.opts.Dir
	cmd.Stdout = r.opts.Output
	cmd.Stderr = r.opts.Output
	cmd.Env = laneEnv(job)
	return cmd.Run()
}

// laneEnv builds the step environment: process env, then the lane's identity
// variables, then the job env on top.
func laneEnv(job matrix.Job) []string {
	env := os.Environ()
	env = append(env,
		"DOCSHIP_JOB="+job.Name,
		"DOCSHIP_STAGE="+job.Stage,
	)
	if job.OS != "" {
		env = append(env, "DOCSHIP_OS="+job.OS)
	}
	if job.Arch != "" {
		env = append(env, "DOCSHIP_ARCH="+job.Arch)
	}
	if job.Interpreter != "" {
		// The project's CI scripts key on PYTHON_VERSION.
		env = append(env, "PYTHON_VERSION="+job.Interpreter)
	}
	for k, v := range job.Env {
		env = append(env, k+"="+v)
	}
	return env
}

func (r *Runner) skip(runID string, job matrix.Job, reason string) Result {
	slog.Info("Lane skipped", logfields.RunID(runID), logfields.Lane(job.Name), slog.String("reason", reason))
	res := Result{Job: job, Status: StatusSkipped, SkipReason: reason}
	r.notify(func(o Observer) { o.LaneFinished(runID, res) })
	return res
}

func (r *Runner) notify(fn func(Observer)) {
	for _, o := range r.opts.Observers {
		fn(o)
	}
}

func hostOS() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	default:
		return runtime.GOOS
	}
}
