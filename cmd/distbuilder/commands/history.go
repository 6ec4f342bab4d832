package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/distbuilder/internal/config"
	"git.home.luguber.info/inful/distbuilder/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of runs to show" default:"10"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.HistoryDB == "" {
		return fmt.Errorf("history is disabled (history_db is empty)")
	}

	store, err := history.Open(cfg.Resolve(cfg.HistoryDB))
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer store.Close()

	records, err := store.Recent(context.Background(), h.Limit)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tDURATION\tREVISION\tFAILED STAGE\tRUN")
	for _, r := range records {
		failed := r.Failed
		if failed == "" {
			failed = "-"
		}
		rev := r.Revision
		if rev == "" {
			rev = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Started.Local().Format(time.DateTime), r.Status,
			r.Duration.Round(time.Second), rev, failed, r.ID)
	}
	return w.Flush()
}
