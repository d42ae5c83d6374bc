// Package imdb collects feature titles and their IMDb keys from the IMDb
// advanced title search, one release year at a time.
package imdb

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/boxoffice-cli/internal/fetcher"
	"github.com/sells-group/boxoffice-cli/internal/htmldoc"
	"github.com/sells-group/boxoffice-cli/internal/model"
)

// DefaultBaseURL is the production origin.
const DefaultBaseURL = "https://www.imdb.com"

// FullPage is the number of results the search renders per page. A shorter
// page is the last one.
const FullPage = 25

// pageStride is how far the start parameter advances per page.
const pageStride = 50

var (
	rankPrefix = regexp.MustCompile(`^\d+\.\s*`)
	titleKey   = regexp.MustCompile(`/title/(tt\d+)/`)
	nextText   = regexp.MustCompile(`(?i)next`)
)

// Client scrapes the IMDb title search.
type Client struct {
	fetch fetcher.PageFetcher
	base  string
}

// NewClient creates a Client. An empty baseURL uses DefaultBaseURL.
func NewClient(f fetcher.PageFetcher, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{fetch: f, base: strings.TrimRight(baseURL, "/")}
}

// SearchURL returns the search page for year beginning at result start.
func (c *Client) SearchURL(year, start int) string {
	return fmt.Sprintf("%s/search/title/?title_type=feature&release_date=%d,%d&sort=num_votes,desc&start=%d",
		c.base, year, year, start)
}

// TitleURL returns the canonical title page for an IMDb key.
func TitleURL(id string) string {
	return DefaultBaseURL + "/title/" + id + "/"
}

// YearPage returns the titles on one search page and whether the page links
// to a next page. Both the current list layout and the older lister layout
// are understood.
func (c *Client) YearPage(ctx context.Context, year, start int) ([]model.Listing, bool, error) {
	body, err := c.fetch.Fetch(ctx, c.SearchURL(year, start))
	if err != nil {
		return nil, false, eris.Wrapf(err, "imdb: year %d start %d", year, start)
	}
	doc, err := htmldoc.ParseBytes(body)
	if err != nil {
		return nil, false, eris.Wrapf(err, "imdb: year %d start %d", year, start)
	}

	var out []model.Listing
	add := func(link *goquery.Selection, stripRank bool) {
		title := htmldoc.Text(link)
		if stripRank {
			title = rankPrefix.ReplaceAllString(title, "")
		}
		href, _ := link.Attr("href")
		m := titleKey.FindStringSubmatch(href)
		if title == "" || m == nil {
			return
		}
		out = append(out, model.Listing{Title: title, IMDbID: m[1], Year: year, URL: TitleURL(m[1])})
	}

	items := doc.FindAll("li", "ipc-metadata-list-summary-item")
	if items.Length() > 0 {
		items.Each(func(_ int, li *goquery.Selection) {
			add(li.Find("a.ipc-title-link-wrapper").First(), true)
		})
	} else {
		doc.FindAll("div", "lister-item").Each(func(_ int, div *goquery.Selection) {
			add(div.Find("h3.lister-item-header a").First(), false)
		})
	}

	return out, hasNext(doc), nil
}

func hasNext(doc *htmldoc.Document) bool {
	sel := doc.Selection()
	if sel.Find("a.lister-page-next").Length() > 0 || sel.Find(`a[aria-label="Next"]`).Length() > 0 {
		return true
	}
	found := false
	sel.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		found = nextText.MatchString(a.Text())
		return !found
	})
	return found
}

// Year pages through the search results for year until a page is empty or
// short, a page has no next-page control, or maxPages pages have been read
// (maxPages <= 0 means no limit).
func (c *Client) Year(ctx context.Context, year, maxPages int) ([]model.Listing, error) {
	var all []model.Listing
	start := 1
	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return all, eris.Wrap(err, "imdb: cancelled")
		}
		listings, next, err := c.YearPage(ctx, year, start)
		if err != nil {
			return all, err
		}
		if len(listings) == 0 {
			break
		}
		all = append(all, listings...)
		zap.L().Debug("imdb: page done",
			zap.Int("year", year), zap.Int("page", page), zap.Int("found", len(listings)), zap.Int("total", len(all)))
		if len(listings) < FullPage || !next {
			break
		}
		start += pageStride
	}
	return all, nil
}

// ListingWriter receives listings as they are collected.
type ListingWriter interface {
	Append(ls ...model.Listing) error
	Flush() error
}

// RangeReport summarizes a multi-year scrape.
type RangeReport struct {
	Total       int
	ByYear      map[int]int
	FailedYears []int
	Sample      []model.Listing
}

// Range scrapes every year in [startYear, endYear] into w. A year that fails
// is logged and skipped. Output is flushed every tenth year and at the end.
func (c *Client) Range(ctx context.Context, startYear, endYear, maxPages int, w ListingWriter) (*RangeReport, error) {
	if startYear > endYear {
		return nil, eris.Errorf("imdb: start year %d is after end year %d", startYear, endYear)
	}

	report := &RangeReport{ByYear: make(map[int]int)}
	for year := startYear; year <= endYear; year++ {
		if err := ctx.Err(); err != nil {
			_ = w.Flush()
			return report, eris.Wrap(err, "imdb: cancelled")
		}

		listings, err := c.Year(ctx, year, maxPages)
		if err != nil {
			zap.L().Error("imdb: year failed", zap.Int("year", year), zap.Error(err))
			report.FailedYears = append(report.FailedYears, year)
		}
		if len(listings) == 0 && err == nil {
			zap.L().Warn("imdb: no titles found", zap.Int("year", year))
		}
		if err := w.Append(listings...); err != nil {
			return report, err
		}
		report.ByYear[year] = len(listings)
		report.Total += len(listings)
		if n := 5 - len(report.Sample); n > 0 {
			report.Sample = append(report.Sample, listings[:min(n, len(listings))]...)
		}
		zap.L().Info("imdb: year done", zap.Int("year", year), zap.Int("titles", len(listings)))

		if year%10 == 0 || year == endYear {
			if err := w.Flush(); err != nil {
				return report, err
			}
		}
	}
	return report, nil
}
