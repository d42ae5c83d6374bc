package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/boxoffice-cli/internal/model"
	"github.com/sells-group/boxoffice-cli/internal/store"
)

var (
	historyLimit int
	historyRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past scrape runs, or the skipped pages of one run",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("history"); err != nil {
			return err
		}
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if historyRun != "" {
			run, err := st.GetRun(ctx, historyRun)
			if err != nil {
				return err
			}
			failures, err := st.ListFailures(ctx, run.ID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatRunDetail(run, failures))
			return nil
		}

		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: historyLimit})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), formatRuns(runs))
		return nil
	},
}

func formatYears(ys []int) string {
	parts := make([]string, len(ys))
	for i, y := range ys {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ",")
}

func resultCounts(r *model.RunResult) []string {
	if r == nil {
		return []string{"-", "-", "-"}
	}
	return []string{strconv.Itoa(r.Scraped), strconv.Itoa(r.Failed), strconv.Itoa(r.Rejected)}
}

func formatRuns(runs []model.Run) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}
	view := newTableView("",
		textCol("Run"), textCol("Status"), textCol("Years"), numCol("Limit"),
		numCol("Scraped"), numCol("Failed"), numCol("Rejected"), textCol("Started"))
	for _, r := range runs {
		row := []string{r.ID, string(r.Status), formatYears(r.Years), strconv.Itoa(r.Limit)}
		row = append(row, resultCounts(r.Result)...)
		row = append(row, r.CreatedAt.Local().Format(time.DateTime))
		view.add(row...)
	}
	return view.String()
}

func formatRunDetail(run *model.Run, failures []model.Failure) string {
	counts := resultCounts(run.Result)
	out := fmt.Sprintf("Run %s: %s\nYears: %s (limit %d)\nScraped %s, failed %s, rejected %s\n",
		run.ID, run.Status, formatYears(run.Years), run.Limit, counts[0], counts[1], counts[2])
	if run.Result != nil && run.Result.Error != "" {
		out += fmt.Sprintf("Error: %s\n", run.Result.Error)
	}
	if len(failures) == 0 {
		return out
	}

	skipped := newTableView(fmt.Sprintf("Skipped pages (%d)", len(failures)),
		numCol("Year"), textCol("Type"), textCol("URL"), textCol("Error"))
	for _, f := range failures {
		skipped.add(strconv.Itoa(f.Year), f.ErrorType, f.URL, f.Error)
	}
	return out + skipped.String()
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "show one run and its skipped pages")
	rootCmd.AddCommand(historyCmd)
}
