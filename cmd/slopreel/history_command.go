package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"slopreel/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		runID     string
		limit     int
		assetType string
		failed    bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs or the attempts of one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg.Paths.LedgerPath)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			runID = strings.TrimSpace(runID)
			if runID == "" {
				runs, err := store.Runs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				renderRuns(out, runs)
				return nil
			}

			run, err := store.GetRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %s not found", runID)
			}
			filter := ledger.Filter{RunID: runID, AssetType: assetType, Limit: limit}
			if failed {
				filter.Status = ledger.StatusFailed
			}
			attempts, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			summary, err := store.Summary(cmd.Context(), runID)
			if err != nil {
				return err
			}
			renderRunDetail(out, *run, attempts, summary, shouldColorize(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Show the attempts of one run")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show")
	cmd.Flags().StringVar(&assetType, "type", "", "Only attempts for this asset type (image, audio)")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only failed attempts")
	return cmd
}

func renderRuns(out io.Writer, runs []ledger.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			truncate(run.Topic, 40),
			fmt.Sprintf("%d", run.SceneCount),
			run.Status,
			formatTimestamp(run.StartedAt),
			formatElapsed(run.StartedAt, run.FinishedAt),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Topic", "Scenes", "Status", "Started", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight},
	))
}

func renderRunDetail(out io.Writer, run ledger.Run, attempts []ledger.Attempt, summary ledger.Summary, colorize bool) {
	for _, line := range renderSectionHeader("Run "+run.ID, colorize) {
		fmt.Fprintln(out, line)
	}
	topic := run.Topic
	if topic == "" {
		topic = "untitled"
	}
	fmt.Fprintln(out, renderStatusLine("Topic", statusInfo, topic, colorize))
	fmt.Fprintln(out, renderStatusLine("Status", runStatusKind(run.Status), run.Status, colorize))
	fmt.Fprintln(out, renderStatusLine("Directory", statusInfo, run.OutputDir, colorize))
	if run.VideoPath != "" {
		fmt.Fprintln(out, renderStatusLine("Video", statusOK, run.VideoPath, colorize))
	}
	attemptsKind := statusOK
	if summary.Failed > 0 {
		attemptsKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Attempts", attemptsKind, fmt.Sprintf("%d total, %d succeeded, %d failed, %d retries", summary.Attempts, summary.Succeeded, summary.Failed, summary.Retries), colorize))
	if len(summary.Outcomes) > 0 {
		fmt.Fprintln(out, renderStatusLine("Outcomes", statusInfo, formatOutcomes(summary.Outcomes), colorize))
	}

	if len(attempts) == 0 {
		return
	}
	rows := make([][]string, 0, len(attempts))
	for _, a := range attempts {
		retry := ""
		if a.Retry {
			retry = "yes"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", a.SceneIndex+1),
			a.AssetType,
			a.Provider,
			a.Status,
			retry,
			formatBytes(int(a.Bytes)),
			a.Duration.Round(10 * time.Millisecond).String(),
			truncate(a.ErrorMessage, 48),
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"Scene", "Type", "Provider", "Status", "Retry", "Size", "Took", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
}

func runStatusKind(status string) statusKind {
	switch status {
	case ledger.RunAssembled, ledger.RunCompleted:
		return statusOK
	case ledger.RunAborted:
		return statusError
	default:
		return statusWarn
	}
}

func formatOutcomes(outcomes map[string]int) string {
	keys := make([]string, 0, len(outcomes))
	for k := range outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, outcomes[k]))
	}
	return strings.Join(parts, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatElapsed(start, end time.Time) string {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return ""
	}
	return end.Sub(start).Round(time.Second).String()
}
