// Package htmldoc wraps goquery with the handful of queries the scrapers need.
package htmldoc

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

var innerWhitespace = regexp.MustCompile(`\s+`)

// Document is a parsed HTML page.
type Document struct {
	doc *goquery.Document
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "htmldoc: parse")
	}
	return &Document{doc: doc}, nil
}

// ParseBytes parses an HTML document held in memory.
func ParseBytes(b []byte) (*Document, error) {
	return Parse(bytes.NewReader(b))
}

// Selection exposes the root selection for queries not covered here.
func (d *Document) Selection() *goquery.Selection {
	return d.doc.Selection
}

// FindAll returns elements with the given tag that carry every class in
// class (space separated). Either argument may be empty.
func (d *Document) FindAll(tag, class string) *goquery.Selection {
	return d.doc.Find(selector(tag, class))
}

// First returns the first match of FindAll, which may be empty.
func (d *Document) First(tag, class string) *goquery.Selection {
	return d.FindAll(tag, class).First()
}

// Text returns the text of sel, trimmed with inner whitespace collapsed.
func Text(sel *goquery.Selection) string {
	return Normalize(sel.Text())
}

// Normalize trims s and collapses runs of whitespace to one space.
func Normalize(s string) string {
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(s, " "))
}

// TextNodesMatching returns the normalized text of every text node in the
// document that matches re, in document order.
func (d *Document) TextNodesMatching(re *regexp.Regexp) []string {
	var out []string
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				if text := Normalize(c.Text()); text != "" && re.MatchString(text) {
					out = append(out, text)
				}
				return
			}
			if name := goquery.NodeName(c); name == "script" || name == "style" {
				return
			}
			walk(c)
		})
	}
	walk(d.doc.Selection)
	return out
}

// LinksMatching returns the href of every anchor whose href matches re.
func (d *Document) LinksMatching(re *regexp.Regexp) []string {
	var out []string
	d.doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if re.MatchString(href) {
			out = append(out, href)
		}
	})
	return out
}

func selector(tag, class string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(tag))
	for _, c := range strings.Fields(class) {
		sb.WriteByte('.')
		sb.WriteString(c)
	}
	if sb.Len() == 0 {
		return "*"
	}
	return sb.String()
}
