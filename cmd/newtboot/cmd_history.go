package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtboot/pkg/audit"
	"github.com/newtron-network/newtboot/pkg/cli"
)

var (
	historyDevice   string
	historyPhase    string
	historyRun      string
	historyLast     time.Duration
	historyLimit    int
	historyFailures bool
	historyJSON     bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the push journal",
	Long: `Show configuration pushes recorded in the journal configured by
CONFIGURATION.journal in the vars file.

Examples:
  newtboot history --device r1
  newtboot history --last 24h --failures
  newtboot history --run 6f1c... --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if app.vars.Journal == "" {
			return fmt.Errorf("no journal configured in %s", varsPath)
		}
		if _, err := os.Stat(app.vars.Journal); os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "No pushes recorded")
			return nil
		}

		journal, err := audit.NewFileLogger(app.vars.Journal, audit.RotationConfig{}, app.log)
		if err != nil {
			return err
		}
		defer journal.Close()

		filter := audit.Filter{
			Device:      historyDevice,
			Phase:       historyPhase,
			RunID:       historyRun,
			Limit:       historyLimit,
			FailureOnly: historyFailures,
		}
		if historyLast > 0 {
			filter.StartTime = time.Now().Add(-historyLast)
		}

		events, err := journal.Query(filter)
		if err != nil {
			return fmt.Errorf("querying journal: %w", err)
		}

		out := cmd.OutOrStdout()
		if historyJSON {
			return json.NewEncoder(out).Encode(events)
		}
		if len(events) == 0 {
			fmt.Fprintln(out, "No pushes recorded")
			return nil
		}

		t := cli.NewTableTo(out, "TIMESTAMP", "RUN", "DEVICE", "PHASE", "SHA256", "DURATION", "STATUS")
		for _, e := range events {
			status := cli.Green("ok")
			if !e.Success {
				status = cli.Red("failed") + " " + e.Error
			}
			t.Row(
				e.Timestamp.Format("2006-01-02 15:04:05"),
				short(e.RunID, 8),
				e.Device,
				e.Phase,
				short(e.Digest, 12),
				e.Duration.Round(time.Millisecond).String(),
				status,
			)
		}
		t.Flush()
		return nil
	},
}

func short(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func init() {
	historyCmd.Flags().StringVar(&historyDevice, "device", "", "Filter by device")
	historyCmd.Flags().StringVar(&historyPhase, "phase", "", "Filter by phase (base, bgp)")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Filter by run ID")
	historyCmd.Flags().DurationVar(&historyLast, "last", 0, "Show pushes from the last duration (e.g. 24h)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 100, "Show at most this many of the newest pushes")
	historyCmd.Flags().BoolVar(&historyFailures, "failures", false, "Show only failed pushes")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
}
