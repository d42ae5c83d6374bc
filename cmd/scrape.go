package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/boxoffice-cli/internal/config"
	"github.com/sells-group/boxoffice-cli/internal/pipeline"
	"github.com/sells-group/boxoffice-cli/internal/years"
)

const lockFileName = ".boxoffice.lock"

var (
	scrapeYear    int
	scrapeYears   string
	scrapeLimit   int
	scrapeOut     string
	scrapeNoCache bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape release grosses for one or more years",
	Example: `  boxoffice scrape --year 2019 --limit 10
  boxoffice scrape --years "2018,2020-2022"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}
		ys, limit, err := resolveScrapeArgs(scrapeYear, scrapeYears, scrapeLimit, cfg.Scrape)
		if err != nil {
			return err
		}

		outDir := scrapeOut
		if outDir == "" {
			outDir = cfg.Scrape.OutputDir
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrapf(err, "create output dir %s", outDir)
		}
		lock := flock.New(filepath.Join(outDir, lockFileName))
		ok, err := lock.TryLock()
		if err != nil {
			return eris.Wrap(err, "acquire output lock")
		}
		if !ok {
			return eris.Errorf("another scrape is writing to %s", outDir)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				zap.L().Warn("failed to release output lock", zap.Error(err))
			}
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, outDir, scrapeNoCache)
		if err != nil {
			return err
		}
		defer env.Close()

		report, runErr := env.Pipeline.Run(ctx, ys, limit)
		if report != nil {
			fmt.Fprint(cmd.OutOrStdout(), formatScrapeReport(report))
		}
		return runErr
	},
}

// resolveScrapeArgs turns the flags into a validated year list and limit.
// Nothing is fetched until this succeeds.
func resolveScrapeArgs(year int, expr string, limit int, sc config.ScrapeConfig) ([]int, int, error) {
	var ys []int
	switch {
	case expr != "" && year != 0:
		return nil, 0, eris.New("use either --year or --years, not both")
	case expr != "":
		parsed, err := years.Parse(expr)
		if err != nil {
			return nil, 0, err
		}
		ys = parsed
	case year != 0:
		ys = []int{year}
	default:
		ys = []int{sc.MaxYear}
	}
	if err := years.Validate(ys, sc.MinYear, sc.MaxYear); err != nil {
		return nil, 0, err
	}

	if limit == 0 {
		limit = sc.DefaultLimit
	}
	if err := years.ValidateLimit(limit, sc.MaxLimit); err != nil {
		return nil, 0, err
	}
	return ys, limit, nil
}

func formatScrapeReport(r *pipeline.Report) string {
	view := newTableView("",
		numCol("Year"), numCol("Listed"), numCol("Scraped"), numCol("Failed"), numCol("Rejected"), textCol("File"))
	var sparse []int
	for _, y := range r.Years {
		view.add(
			strconv.Itoa(y.Year),
			strconv.Itoa(y.Listed),
			strconv.Itoa(y.Scraped),
			strconv.Itoa(y.Failed),
			strconv.Itoa(y.Rejected),
			y.File,
		)
		if y.Sparse {
			sparse = append(sparse, y.Year)
		}
	}

	view.setFooter("", "", strconv.Itoa(r.Result.Scraped), strconv.Itoa(r.Result.Failed), strconv.Itoa(r.Result.Rejected), "")
	out := view.String()
	out += fmt.Sprintf("Run %s: %s (%d scraped, %d failed, %d rejected)\n",
		r.RunID, r.Result.Status, r.Result.Scraped, r.Result.Failed, r.Result.Rejected)
	for _, y := range sparse {
		out += fmt.Sprintf("Note: %d predates reliable chart coverage; expect few releases and missing figures.\n", y)
	}
	return out
}

func init() {
	scrapeCmd.Flags().IntVar(&scrapeYear, "year", 0, "single year to scrape (default: scrape.max_year)")
	scrapeCmd.Flags().StringVar(&scrapeYears, "years", "", `years to scrape, e.g. "2018,2020-2022"`)
	scrapeCmd.Flags().IntVar(&scrapeLimit, "limit", 0, "releases per year (default from config)")
	scrapeCmd.Flags().StringVar(&scrapeOut, "out", "", "output directory (default from config)")
	scrapeCmd.Flags().BoolVar(&scrapeNoCache, "no-cache", false, "bypass the page cache")
	rootCmd.AddCommand(scrapeCmd)
}
