package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"git.home.luguber.info/inful/docship/internal/config"
	"git.home.luguber.info/inful/docship/internal/history"
)

// HistoryCmd lists recorded run events from the daemon's history store.
type HistoryCmd struct {
	RunID string `help:"Show all events for one run"`
	Since string `default:"24h" help:"Look-back window when no run ID is given"`
	DB    string `help:"History database path (overrides config)"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbPath := h.DB
	if dbPath == "" && cfg.Daemon != nil {
		dbPath = cfg.Daemon.HistoryDB
	}
	if dbPath == "" {
		return fmt.Errorf("no history database: set --db or a daemon section in the configuration")
	}

	since, err := time.ParseDuration(h.Since)
	if err != nil {
		return fmt.Errorf("invalid --since: %w", err)
	}

	store, err := history.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer func() { _ = store.Close() }()

	return listHistory(context.Background(), os.Stdout, store, h.RunID, since)
}

// listHistory prints one line per event, oldest first.
func listHistory(ctx context.Context, w io.Writer, store history.Store, runID string, since time.Duration) error {
	var events []history.Event
	var err error
	if runID != "" {
		events, err = store.GetByRunID(ctx, runID)
	} else {
		now := time.Now()
		events, err = store.GetRange(ctx, now.Add(-since), now)
	}
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Fprintln(w, "no events recorded")
		return nil
	}
	for _, e := range events {
		fmt.Fprintf(w, "%s  %-36s  %-14s  %s\n",
			e.Timestamp.Format(time.RFC3339), e.RunID, e.EventType, e.Payload)
	}
	return nil
}
