package figures

import "regexp"

// CatalogLinkPattern matches hrefs that point at an IMDb title page and
// captures the title key (e.g. tt4154796).
var CatalogLinkPattern = regexp.MustCompile(`imdb\.com/title/(tt\d+)`)

// ExtractCatalogID returns the IMDb key from the first href that links to an
// IMDb title page, or "" when none does.
func ExtractCatalogID(hrefs []string) string {
	for _, h := range hrefs {
		if m := CatalogLinkPattern.FindStringSubmatch(h); m != nil {
			return m[1]
		}
	}
	return ""
}
