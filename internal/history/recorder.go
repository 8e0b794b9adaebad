package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docship/internal/logfields"
	"git.home.luguber.info/inful/docship/internal/runner"
)

// LanePayload is the persisted form of a finished lane.
type LanePayload struct {
	Lane       string        `json:"lane"`
	Stage      string        `json:"stage"`
	Status     runner.Status `json:"status"`
	SkipReason string        `json:"skip_reason,omitempty"`
	Error      string        `json:"error,omitempty"`
	DurationMS int64         `json:"duration_ms"`
}

// RunPayload is the persisted summary of a finished run.
type RunPayload struct {
	Failed     bool  `json:"failed"`
	Lanes      int   `json:"lanes"`
	DurationMS int64 `json:"duration_ms"`
}

// Recorder persists run lifecycle events. Store errors are logged, not
// propagated; history must never fail a run.
type Recorder struct {
	runner.NopObserver
	store Store
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) RunStarted(runID string, lanes int) {
	payload, _ := json.Marshal(RunPayload{Lanes: lanes})
	r.append(runID, EventRunStarted, payload)
}

func (r *Recorder) LaneFinished(runID string, result runner.Result) {
	p := LanePayload{
		Lane:       result.Job.Name,
		Stage:      result.Job.Stage,
		Status:     result.Status,
		SkipReason: result.SkipReason,
		DurationMS: result.Duration.Milliseconds(),
	}
	if result.Err != nil {
		p.Error = result.Err.Error()
	}
	payload, _ := json.Marshal(p)
	r.append(runID, EventLaneFinished, payload)
}

func (r *Recorder) RunFinished(report *runner.Report) {
	payload, _ := json.Marshal(RunPayload{
		Failed:     report.Failed(),
		Lanes:      len(report.Results),
		DurationMS: report.Duration.Milliseconds(),
	})
	r.append(report.RunID, EventRunFinished, payload)
}

func (r *Recorder) append(runID, eventType string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.Append(ctx, runID, eventType, payload, nil); err != nil {
		slog.Warn("Failed to persist run event",
			logfields.RunID(runID), slog.String("event_type", eventType), logfields.Error(err))
	}
}

var _ runner.Observer = (*Recorder)(nil)
