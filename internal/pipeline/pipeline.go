// Package pipeline runs a scrape: chart pages to release pages to the
// per-year CSV files and the store.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/boxoffice-cli/internal/model"
	"github.com/sells-group/boxoffice-cli/internal/mojo"
	"github.com/sells-group/boxoffice-cli/internal/resilience"
	"github.com/sells-group/boxoffice-cli/internal/sink"
	"github.com/sells-group/boxoffice-cli/internal/store"
	"github.com/sells-group/boxoffice-cli/internal/years"
)

// Source lists and scrapes release pages. *mojo.Client implements it.
type Source interface {
	YearURL(year int) string
	ReleaseLinks(ctx context.Context, year int) ([]string, error)
	Release(ctx context.Context, url string, year int) (*mojo.Scraped, error)
}

// Pipeline orchestrates one scrape run.
type Pipeline struct {
	store         store.Store
	src           Source
	outDir        string
	policyVersion string
}

// New creates a Pipeline writing per-year files into outDir.
func New(st store.Store, src Source, outDir, policyVersion string) *Pipeline {
	if outDir == "" {
		outDir = "."
	}
	return &Pipeline{store: st, src: src, outDir: outDir, policyVersion: policyVersion}
}

// YearSummary counts what happened to one year of a run.
type YearSummary struct {
	Year     int    `json:"year"`
	File     string `json:"file"`
	Listed   int    `json:"listed"`
	Scraped  int    `json:"scraped"`
	Failed   int    `json:"failed"`
	Rejected int    `json:"rejected"`
	// Sparse marks years whose charts carry little summary data.
	Sparse bool `json:"sparse"`
}

// Report is the outcome of Run.
type Report struct {
	RunID  string          `json:"run_id"`
	Years  []YearSummary   `json:"years"`
	Result model.RunResult `json:"result"`
}

// Run scrapes up to limit releases for each year. A failed release is
// recorded and skipped; only sink and bookkeeping errors abort the run.
// Cancellation stops between releases and leaves every written file valid.
func (p *Pipeline) Run(ctx context.Context, ys []int, limit int) (*Report, error) {
	run, err := p.store.CreateRun(ctx, ys, limit)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	log := zap.L().With(zap.String("run_id", run.ID))
	log.Info("pipeline: starting run", zap.Ints("years", ys), zap.Int("limit", limit))

	report := &Report{RunID: run.ID}
	var runErr error
	for _, year := range ys {
		if ctx.Err() != nil {
			break
		}
		ysum, yerr := p.runYear(ctx, log, run.ID, year, limit)
		report.Years = append(report.Years, ysum)
		report.Result.Scraped += ysum.Scraped
		report.Result.Failed += ysum.Failed
		report.Result.Rejected += ysum.Rejected
		if yerr != nil {
			runErr = yerr
			break
		}
	}

	switch {
	case runErr != nil:
		report.Result.Status = model.RunStatusFailed
		report.Result.Error = runErr.Error()
	case ctx.Err() != nil:
		report.Result.Status = model.RunStatusCancelled
	default:
		report.Result.Status = model.RunStatusComplete
	}

	// Bookkeeping must land even when the run was interrupted.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.store.FinishRun(finishCtx, run.ID, &report.Result); err != nil {
		log.Error("pipeline: failed to finish run", zap.Error(err))
		if runErr == nil {
			runErr = eris.Wrap(err, "pipeline: finish run")
		}
	}

	log.Info("pipeline: run finished",
		zap.String("status", string(report.Result.Status)),
		zap.Int("scraped", report.Result.Scraped),
		zap.Int("failed", report.Result.Failed),
		zap.Int("rejected", report.Result.Rejected),
	)
	return report, runErr
}

func (p *Pipeline) runYear(ctx context.Context, log *zap.Logger, runID string, year, limit int) (sum YearSummary, err error) {
	sum = YearSummary{Year: year, Sparse: years.Sparse(year)}
	log = log.With(zap.Int("year", year))

	links, lerr := p.src.ReleaseLinks(ctx, year)
	if lerr != nil {
		if ctx.Err() == nil {
			p.recordFailure(ctx, log, runID, year, p.src.YearURL(year), lerr)
			sum.Failed++
		}
		return sum, nil
	}
	sum.Listed = len(links)
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}

	out, oerr := sink.OpenYear(p.outDir, year)
	if oerr != nil {
		return sum, eris.Wrapf(oerr, "pipeline: open sink for %d", year)
	}
	sum.File = out.Path()
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "pipeline: close sink for %d", year)
		}
	}()

	for i, url := range links {
		if ctx.Err() != nil {
			log.Warn("pipeline: cancelled", zap.Int("done", i), zap.Int("total", len(links)))
			return sum, nil
		}

		scraped, serr := p.src.Release(ctx, url, year)
		if serr != nil {
			if errors.Is(serr, context.Canceled) || ctx.Err() != nil {
				return sum, nil
			}
			p.recordFailure(ctx, log, runID, year, url, serr)
			sum.Failed++
			continue
		}

		if scraped.Result.Rejected {
			sum.Rejected++
		}
		version := scraped.Result.PolicyVersion
		if version == "" {
			version = p.policyVersion
		}
		movie := &model.StoredMovie{
			RunID:         runID,
			Record:        scraped.Record,
			Path:          scraped.Result.Path,
			Rejected:      scraped.Result.Rejected,
			Notes:         scraped.Result.Notes,
			PolicyVersion: version,
		}
		// The page is already fetched; keep the store in step with the file.
		if err := p.store.SaveMovie(context.WithoutCancel(ctx), movie); err != nil {
			log.Warn("pipeline: failed to save movie", zap.String("url", url), zap.Error(err))
		}
		if err := out.Append(scraped.Record); err != nil {
			return sum, eris.Wrapf(err, "pipeline: append %s", url)
		}
		sum.Scraped++
		log.Debug("pipeline: scraped release",
			zap.String("title", scraped.Record.Title),
			zap.String("worldwide", scraped.Record.Figures.Worldwide.String()),
		)
	}
	return sum, nil
}

func (p *Pipeline) recordFailure(ctx context.Context, log *zap.Logger, runID string, year int, url string, cause error) {
	class := resilience.ClassifyError(cause)
	log.Warn("pipeline: skipping page",
		zap.String("url", url),
		zap.String("error_type", class),
		zap.Error(cause),
	)
	f := &model.Failure{
		RunID:     runID,
		Year:      year,
		URL:       url,
		Error:     cause.Error(),
		ErrorType: class,
	}
	if err := p.store.RecordFailure(ctx, f); err != nil {
		log.Warn("pipeline: failed to record failure", zap.String("url", url), zap.Error(err))
	}
}
