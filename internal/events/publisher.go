// Package events publishes run lifecycle events to NATS so other systems
// (dashboards, notifiers) can follow CI activity without polling.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/docship/internal/config"
	"git.home.luguber.info/inful/docship/internal/logfields"
	"git.home.luguber.info/inful/docship/internal/runner"
)

// RunEvent is the wire format for published lifecycle events.
type RunEvent struct {
	Type      string    `json:"type"` // run.started, lane.finished, run.finished
	RunID     string    `json:"run_id"`
	Lane      string    `json:"lane,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Status    string    `json:"status,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends run events to a NATS subject.
type Publisher struct {
	runner.NopObserver
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to NATS using the events config.
func NewPublisher(cfg *config.EventsConfig) (*Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("event publishing is disabled")
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name("docship"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS publisher connected", logfields.URL(cfg.URL), slog.String("subject", cfg.Subject))
	return &Publisher{conn: conn, subject: cfg.Subject}, nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		slog.Warn("NATS drain failed", logfields.Error(err))
	}
}

func (p *Publisher) RunStarted(runID string, _ int) {
	p.publish(RunEvent{Type: "run.started", RunID: runID})
}

func (p *Publisher) LaneFinished(runID string, result runner.Result) {
	p.publish(RunEvent{
		Type:   "lane.finished",
		RunID:  runID,
		Lane:   result.Job.Name,
		Stage:  result.Job.Stage,
		Status: string(result.Status),
	})
}

func (p *Publisher) RunFinished(report *runner.Report) {
	p.publish(RunEvent{Type: "run.finished", RunID: report.RunID, Failed: report.Failed()})
}

// publish is fire-and-forget: a broker outage must not fail a run.
func (p *Publisher) publish(event RunEvent) {
	event.Timestamp = time.Now().UTC()
	data, err := json.Marshal(event)
	if err != nil {
		slog.Warn("Failed to marshal run event", logfields.Error(err))
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		slog.Warn("Failed to publish run event",
			logfields.RunID(event.RunID), slog.String("event_type", event.Type), logfields.Error(err))
	}
}

var _ runner.Observer = (*Publisher)(nil)
