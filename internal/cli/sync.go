package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mediahub/internal/reconcile"
)

func newSyncCommand(get func() *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile offline edits with the media API",
	}
	cmd.AddCommand(newSyncRunCommand(get), newSyncWatchCommand(get), newSyncStatusCommand(get))
	return cmd
}

func newSyncRunCommand(get func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := get()
			report, err := e.media.Reconcile(cmd.Context())
			if err != nil {
				if errors.Is(err, reconcile.ErrRemoteUnavailable) {
					return fmt.Errorf("sync skipped: %w", err)
				}
				return err
			}
			if e.jsonOut {
				return e.printJSON(report)
			}
			e.message("pushed %d, pulled %d, dropped %d, failed %d", report.Pushed, report.Pulled, report.Dropped, report.Failed)
			return nil
		},
	}
}

func newSyncWatchCommand(get func() *env) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reconcile in the background until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := get()
			if !cmd.Flags().Changed("interval") {
				interval = mustDuration(e.cfg.SyncInterval, time.Minute)
			}
			if interval <= 0 {
				return errors.New("--interval must be positive")
			}
			fmt.Fprintf(e.errOut, "syncing every %s, press Ctrl-C to stop\n", interval)
			e.media.Run(cmd.Context(), interval)
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between passes (default from config)")
	return cmd
}

type syncStatus struct {
	BreakerOpen bool              `json:"breakerOpen"`
	Pending     []reconcile.Entry `json:"pending"`
}

func newSyncStatusCommand(get func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show writes waiting to be pushed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := get()
			status := syncStatus{BreakerOpen: e.media.BreakerOpen(), Pending: e.media.Pending()}
			if status.Pending == nil {
				status.Pending = []reconcile.Entry{}
			}
			if e.jsonOut {
				return e.printJSON(status)
			}
			e.message("breaker open: %s", yesNo(status.BreakerOpen))
			e.message("pending writes: %s", strconv.Itoa(len(status.Pending)))
			if len(status.Pending) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(status.Pending))
			for _, entry := range status.Pending {
				rows = append(rows, []string{entry.MediaID, string(entry.Op), entry.At.Format(time.RFC3339)})
			}
			return e.table(status, []string{"MEDIA", "OP", "AT"}, rows)
		},
	}
}
