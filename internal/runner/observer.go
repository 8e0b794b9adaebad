package runner

import "git.home.luguber.info/inful/docship/internal/matrix"

// Observer receives run lifecycle callbacks. Implementations must be safe for
// concurrent use; lanes finish on separate goroutines.
type Observer interface {
	RunStarted(runID string, lanes int)
	LaneStarted(runID string, job matrix.Job)
	LaneFinished(runID string, result Result)
	RunFinished(report *Report)
}

// NopObserver implements Observer with no-ops for embedding.
type NopObserver struct{}

func (NopObserver) RunStarted(string, int)         {}
func (NopObserver) LaneStarted(string, matrix.Job) {}
func (NopObserver) LaneFinished(string, Result)    {}
func (NopObserver) RunFinished(*Report)            {}
