// Package mojo scrapes Box Office Mojo: the yearly release chart and the
// per-release summary of grosses.
package mojo

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/boxoffice-cli/internal/fetcher"
	"github.com/sells-group/boxoffice-cli/internal/figures"
	"github.com/sells-group/boxoffice-cli/internal/htmldoc"
	"github.com/sells-group/boxoffice-cli/internal/model"
	"github.com/sells-group/boxoffice-cli/internal/money"
)

// DefaultBaseURL is the production origin.
const DefaultBaseURL = "https://www.boxofficemojo.com"

const releasePrefix = "/release/"

// Client scrapes chart and release pages through a PageFetcher.
type Client struct {
	fetch fetcher.PageFetcher
	base  string
	dis   *figures.Disambiguator
}

// NewClient creates a Client. An empty baseURL uses DefaultBaseURL.
func NewClient(f fetcher.PageFetcher, baseURL string, d *figures.Disambiguator) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if d == nil {
		d = figures.New(figures.DefaultPolicy())
	}
	return &Client{fetch: f, base: strings.TrimRight(baseURL, "/"), dis: d}
}

// Scraped is the outcome of one release page.
type Scraped struct {
	Record     model.MovieRecord   `json:"record" yaml:"record"`
	Result     figures.Result      `json:"result" yaml:"result"`
	Labeled    figures.Labeled     `json:"labeled" yaml:"labeled"`
	Candidates []figures.Candidate `json:"candidates" yaml:"candidates"`
}

// YearURL returns the chart page for year.
func (c *Client) YearURL(year int) string {
	return fmt.Sprintf("%s/year/%d/", c.base, year)
}

// ReleaseLinks returns the absolute release URLs listed on the year chart, in
// chart order. Only the first table is read and its header row is skipped.
func (c *Client) ReleaseLinks(ctx context.Context, year int) ([]string, error) {
	body, err := c.fetch.Fetch(ctx, c.YearURL(year))
	if err != nil {
		return nil, eris.Wrapf(err, "mojo: year %d", year)
	}
	doc, err := htmldoc.ParseBytes(body)
	if err != nil {
		return nil, eris.Wrapf(err, "mojo: year %d", year)
	}

	table := doc.First("table", "")
	if table.Length() == 0 {
		zap.L().Warn("mojo: no chart table", zap.Int("year", year))
		return nil, nil
	}

	var links []string
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		href, ok := row.Find("a").First().Attr("href")
		if !ok || !strings.HasPrefix(href, releasePrefix) {
			return
		}
		links = append(links, c.base+href)
	})
	return links, nil
}

// Release scrapes one release page. Missing or unparseable figures never fail
// the call; only fetch and parse errors do.
func (c *Client) Release(ctx context.Context, url string, year int) (*Scraped, error) {
	body, err := c.fetch.Fetch(ctx, url)
	if err != nil {
		return nil, eris.Wrap(err, "mojo: release")
	}
	doc, err := htmldoc.ParseBytes(body)
	if err != nil {
		return nil, eris.Wrap(err, "mojo: release")
	}
	return c.Parse(doc, url, year), nil
}

// Parse extracts a record from an already parsed release page.
func (c *Client) Parse(doc *htmldoc.Document, url string, year int) *Scraped {
	out := &Scraped{Labeled: labeledValues(doc)}

	if !out.Labeled.Empty() {
		out.Result = c.dis.Reconcile(out.Labeled)
	}
	if out.Labeled.Empty() || !out.Result.Figures.AnyKnown() {
		out.Candidates = c.dis.Candidates(summaryTokens(doc))
		res := c.dis.Disambiguate(out.Candidates)
		if !out.Labeled.Empty() {
			res.Notes = append([]string{"no labeled value parsed; using summary amounts"}, res.Notes...)
		}
		out.Result = res
	}

	out.Record = model.MovieRecord{
		Year:       year,
		Title:      htmldoc.Text(doc.First("h1", "")),
		Figures:    out.Result.Figures,
		ExternalID: figures.ExtractCatalogID(doc.LinksMatching(figures.CatalogLinkPattern)),
		SourceURL:  url,
	}

	if len(out.Result.Notes) > 0 {
		zap.L().Warn("mojo: figures adjusted",
			zap.String("url", url),
			zap.String("path", string(out.Result.Path)),
			zap.Bool("rejected", out.Result.Rejected),
			zap.Strings("notes", out.Result.Notes),
		)
	}
	return out
}

// summaryTokens returns the money tokens of the summary block, or of every
// money-bearing text node when the page has no summary block.
func summaryTokens(doc *htmldoc.Document) []money.Token {
	summary := doc.First("div", "mojo-summary-table")
	if summary.Length() > 0 {
		return money.Find(summary.Text())
	}
	nodes := doc.TextNodesMatching(money.Pattern())
	return money.Find(strings.Join(nodes, "\n"))
}

// labeledValues reads the label/value spans some release pages render above
// the summary table.
func labeledValues(doc *htmldoc.Document) figures.Labeled {
	var l figures.Labeled
	doc.FindAll("div", "mojo-summary-values").Find("div").Each(func(_ int, row *goquery.Selection) {
		label := row.Find("span.a-size-small").First()
		value := row.Find("span.a-size-medium").First()
		if label.Length() == 0 || value.Length() == 0 {
			return
		}
		name := strings.ToLower(htmldoc.Text(label))
		text := htmldoc.Text(value)
		switch {
		case strings.Contains(name, "domestic") && l.Domestic == "":
			l.Domestic = text
		case strings.Contains(name, "international") && l.International == "":
			l.International = text
		case strings.Contains(name, "worldwide") && l.Worldwide == "":
			l.Worldwide = text
		}
	})
	return l
}
