package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/merchctl/internal/cli"
	"github.com/Veraticus/merchctl/internal/common"
	"github.com/Veraticus/merchctl/internal/config"
	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/storage"
)

// runStore is the part of the ledger the history command reads and prunes.
type runStore interface {
	ListRuns(ctx context.Context, limit int) ([]storage.Run, error)
	GetRun(ctx context.Context, id int64) (*storage.Run, error)
	PruneRuns(ctx context.Context, cutoff time.Time) (int64, error)
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run_id]",
		Short: "List recorded exports",
		Long: `List the exports recorded in the local ledger, newest first. With a run
id the run is shown in full, including every style that failed.

--prune-days deletes runs older than the given number of days.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}

	cmd.Flags().Int("limit", 20, "runs to list, 0 for all")
	cmd.Flags().Int("prune-days", 0, "delete runs older than this many days")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return common.NewUserError("invalid configuration", err)
	}

	store, err := storage.Open(ctx, settings.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open export ledger: %w", err)
	}
	defer func() { _ = store.Close() }()

	out := cmd.OutOrStdout()
	if days, _ := cmd.Flags().GetInt("prune-days"); days > 0 {
		return pruneHistory(ctx, out, store, days, time.Now())
	}

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return common.NewUserError(fmt.Sprintf("invalid run id %q", args[0]), common.ErrInvalidInput)
		}
		return showRun(ctx, out, store, id)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	return listRuns(ctx, out, store, limit)
}

var runListColumns = []cli.Column{
	{Key: "id", Title: "ID"},
	{Key: "created", Title: "Created"},
	{Key: "kind", Title: "Kind"},
	{Key: "rows", Title: "Rows"},
	{Key: "failures", Title: "Failures"},
	{Key: "file", Title: "File"},
}

func runRow(r storage.Run) model.Row {
	file := r.Path
	if r.Skipped {
		file = "(skipped: no rows)"
	}
	return model.Row{
		"id":       strconv.FormatInt(r.ID, 10),
		"created":  r.CreatedAt.Local().Format("2006-01-02 15:04"),
		"kind":     r.Kind,
		"rows":     strconv.Itoa(r.Rows),
		"failures": strconv.Itoa(r.FailureCount),
		"file":     file,
	}
}

func listRuns(ctx context.Context, w io.Writer, store runStore, limit int) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, cli.FormatTitle("Export history"))
	if len(runs) == 0 {
		fmt.Fprintln(w, cli.FormatInfo("No exports recorded yet"))
		return nil
	}

	rows := make([]model.Row, len(runs))
	for i, r := range runs {
		rows[i] = runRow(r)
	}
	fmt.Fprintln(w, cli.RenderTable(runListColumns, rows))
	return nil
}

func showRun(ctx context.Context, w io.Writer, store runStore, id int64) error {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}

	lines := fmt.Sprintf("Kind:      %s\nWorkspace: %s\nCreated:   %s\nRows:      %d\nColumns:   %d\nDuration:  %s",
		run.Kind, run.Workspace, run.CreatedAt.Local().Format(time.RFC3339), run.Rows, run.Columns, run.Duration)
	if run.Skipped {
		lines += "\nSkipped:   no rows, nothing written"
	} else {
		lines += "\nFile:      " + run.Path
	}
	if run.XLSXPath != "" {
		lines += "\nXLSX:      " + run.XLSXPath
	}
	if run.FailuresPath != "" {
		lines += "\nFailures:  " + run.FailuresPath
	}
	fmt.Fprintln(w, cli.RenderBox(fmt.Sprintf("Run %d: %s", run.ID, run.Filename), lines))

	if len(run.Failures) == 0 {
		return nil
	}
	rows := make([]model.Row, len(run.Failures))
	for i, f := range run.Failures {
		rows[i] = model.Row{"style_key": f.StyleKey, "error": f.Err}
	}
	fmt.Fprintln(w, cli.FormatWarning(fmt.Sprintf("%d styles failed", len(run.Failures))))
	fmt.Fprintln(w, cli.RenderTable([]cli.Column{
		{Key: "style_key", Title: "Style"},
		{Key: "error", Title: "Error"},
	}, rows))
	return nil
}

func pruneHistory(ctx context.Context, w io.Writer, store runStore, days int, now time.Time) error {
	cutoff := now.AddDate(0, 0, -days)
	n, err := store.PruneRuns(ctx, cutoff)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("Deleted %d runs older than %d days", n, days)))
	return nil
}
