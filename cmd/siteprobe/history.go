package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hamed0406/siteprobe/internal/domain"
	"github.com/hamed0406/siteprobe/internal/report"
	"github.com/hamed0406/siteprobe/internal/repo"
	"github.com/hamed0406/siteprobe/internal/repo/sqlite"
)

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs or print the results of one",
		Long: `Without arguments, history lists recorded runs newest first.
With a run id, it prints that run's results as a report on stdout.

Examples:
  siteprobe history
  siteprobe history 6f1c... --format md`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}
	cmd.Flags().StringP("format", "f", string(report.FormatCSV), "Report format for a single run: csv, html, md")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabasePath == "" {
		return errors.New("history is disabled (empty database path)")
	}
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "no runs recorded in", cfg.DatabasePath)
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tVARIANT\tSTATUS\tDOMAINS\tSTARTED")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Variant, r.Status, humanize.Comma(int64(r.Total)), humanize.Time(r.CreatedAt))
		}
		return tw.Flush()
	}

	id := domain.RunID(args[0])
	run, err := st.GetRun(ctx, id)
	if errors.Is(err, repo.ErrRunNotFound) {
		return fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return err
	}
	results, err := st.Results(ctx, id)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("format")
	formats, err := report.ParseFormats([]string{name})
	if err != nil {
		return err
	}
	if len(formats) == 0 {
		formats = []report.Format{report.FormatCSV}
	}
	if formats[0] == report.FormatXLSX {
		return errors.New("xlsx cannot be written to stdout; use csv, html or md")
	}
	w, err := report.WriterFor(formats[0], ".")
	if err != nil {
		return err
	}
	return w.Write(out, run.Variant, results)
}
