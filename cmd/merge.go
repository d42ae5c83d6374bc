package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sells-group/boxoffice-cli/internal/money"
	"github.com/sells-group/boxoffice-cli/internal/sink"
)

var (
	mergeDir    string
	mergeOutput string
	mergeXLSX   string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Combine per-year CSV files into one sorted file",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := mergeDir
		if dir == "" {
			dir = cfg.Scrape.OutputDir
		}
		out := mergeOutput
		if out == "" {
			out = filepath.Join(dir, sink.MergedFileName)
		}

		report, err := sink.Merge(cmd.Context(), dir, out)
		if err != nil {
			return err
		}
		if mergeXLSX != "" {
			if err := sink.WriteXLSX(mergeXLSX, report.Rows); err != nil {
				return err
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), formatMergeReport(report, mergeXLSX))
		return nil
	},
}

func formatMergeReport(r *sink.MergeReport, xlsxPath string) string {
	out := fmt.Sprintf("Merged %d movies from %d files (%d-%d) into %s\n",
		r.Total(), len(r.Files), r.MinYear, r.MaxYear, r.Output)
	for _, s := range r.Skipped {
		out += fmt.Sprintf("Skipped %s: unexpected header\n", s)
	}
	if xlsxPath != "" {
		out += fmt.Sprintf("Wrote %s\n", xlsxPath)
	}
	if len(r.Top) == 0 {
		return out
	}

	top := newTableView("Top by worldwide gross",
		numCol("#"), textCol("Title"), numCol("Year"), numCol("Worldwide"), numCol("Share"))
	var combined money.Amount
	for _, m := range r.Top {
		combined += m.WorldwideAmount()
	}
	for i, m := range r.Top {
		top.add(strconv.Itoa(i+1), m.Title, strconv.Itoa(m.Year), m.Worldwide, share(m.WorldwideAmount(), combined))
	}
	top.setFooter("", fmt.Sprintf("%d titles", len(r.Top)), "", money.Format(combined), "")
	return out + "\n" + top.String()
}

// share renders part as a percentage of whole.
func share(part, whole money.Amount) string {
	if whole <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(part)/float64(whole))
}

func init() {
	mergeCmd.Flags().StringVar(&mergeDir, "dir", "", "directory holding boxoffice_<year>.csv files (default from config)")
	mergeCmd.Flags().StringVar(&mergeOutput, "output", "", "merged CSV path (default <dir>/all_boxoffice.csv)")
	mergeCmd.Flags().StringVar(&mergeXLSX, "xlsx", "", "also write the merged table to this XLSX file")
	rootCmd.AddCommand(mergeCmd)
}
