package main

import (
	"fmt"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/boxoffice-cli/internal/imdb"
	"github.com/sells-group/boxoffice-cli/internal/sink"
)

var (
	imdbStartYear int
	imdbEndYear   int
	imdbMaxPages  int
	imdbOutput    string
	imdbTest      bool
)

var imdbCmd = &cobra.Command{
	Use:   "imdb",
	Short: "Collect IMDb feature titles and ids per release year",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, pages, output := imdbArgs(cmd, time.Now().Year())

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w, err := sink.OpenListings(output)
		if err != nil {
			return err
		}
		defer func() {
			if err := w.Close(); err != nil {
				zap.L().Warn("failed to close listing file", zap.Error(err))
			}
		}()

		f := newPageFetcher(cfg.Fetch, time.Duration(cfg.IMDb.DelayMs)*time.Millisecond, nil, true)
		client := imdb.NewClient(f, cfg.IMDb.BaseURL)

		zap.L().Info("imdb: starting",
			zap.Int("start_year", start),
			zap.Int("end_year", end),
			zap.Int("max_pages", pages),
			zap.String("output", output),
		)
		report, err := client.Range(ctx, start, end, pages, w)
		if report != nil {
			fmt.Fprint(cmd.OutOrStdout(), formatIMDbReport(report, output))
		}
		return err
	},
}

// imdbArgs applies the --test preset and the defaults that depend on other
// flags.
func imdbArgs(cmd *cobra.Command, currentYear int) (start, end, pages int, output string) {
	start, end, pages, output = imdbStartYear, imdbEndYear, imdbMaxPages, imdbOutput
	if imdbTest {
		start, end, pages = 2020, 2022, 1
		if !cmd.Flags().Changed("output") {
			output = "movies_test.csv"
		}
		return start, end, pages, output
	}
	if end == 0 {
		end = currentYear
	}
	if pages == 0 {
		pages = cfg.IMDb.MaxPages
	}
	if output == "" {
		output = fmt.Sprintf("movies_%d_%d.csv", start, end)
	}
	return start, end, pages, output
}

func formatIMDbReport(r *imdb.RangeReport, output string) string {
	out := fmt.Sprintf("Collected %d titles into %s\n", r.Total, output)

	ys := make([]int, 0, len(r.ByYear))
	for y := range r.ByYear {
		ys = append(ys, y)
	}
	sort.Ints(ys)
	if len(ys) > 0 {
		perYear := newTableView("", numCol("Year"), numCol("Titles"))
		for _, y := range ys {
			perYear.add(strconv.Itoa(y), strconv.Itoa(r.ByYear[y]))
		}
		perYear.setFooter("", strconv.Itoa(r.Total))
		out += perYear.String()
	}

	if len(r.FailedYears) > 0 {
		out += fmt.Sprintf("Failed years: %v\n", r.FailedYears)
	}
	if len(r.Sample) > 0 {
		sample := newTableView("Sample", textCol("Title"), textCol("IMDb ID"), numCol("Year"))
		for _, l := range r.Sample {
			sample.add(l.Title, l.IMDbID, strconv.Itoa(l.Year))
		}
		out += sample.String()
	}
	return out
}

func init() {
	imdbCmd.Flags().IntVar(&imdbStartYear, "start-year", 1927, "first year to collect")
	imdbCmd.Flags().IntVar(&imdbEndYear, "end-year", 0, "last year to collect (default current year)")
	imdbCmd.Flags().IntVar(&imdbMaxPages, "max-pages", 0, "result pages per year (default from config)")
	imdbCmd.Flags().StringVar(&imdbOutput, "output", "", "output CSV (default movies_<start>_<end>.csv)")
	imdbCmd.Flags().BoolVar(&imdbTest, "test", false, "quick run: 2020-2022, one page per year")
	rootCmd.AddCommand(imdbCmd)
}
