// Package money parses and formats whole-dollar amounts scraped from page text.
package money

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Amount is a non-negative whole-dollar value.
type Amount int64

var (
	// tokenRe matches a dollar sign followed by digits and thousands separators.
	tokenRe = regexp.MustCompile(`\$\d[\d,]*`)

	// groupedRe is the strict grouped-thousands form, e.g. $1,234,567.
	groupedRe = regexp.MustCompile(`^\$\d{1,3}(,\d{3})*$`)

	printer = message.NewPrinter(language.English)
)

// Token is one dollar-formatted occurrence found in a block of text.
type Token struct {
	Amount Amount `json:"amount" yaml:"amount"`
	Text   string `json:"text" yaml:"text"`
	Pos    int    `json:"pos" yaml:"pos"`
}

// Parse converts "$1,234,567" (or "1234567") into an Amount.
func Parse(s string) (Amount, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.ReplaceAll(clean, ",", "")
	if clean == "" {
		return 0, eris.Errorf("money: empty amount %q", s)
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return 0, eris.Errorf("money: invalid amount %q", s)
		}
	}
	n, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "money: parse %q", s)
	}
	return Amount(n), nil
}

// Format renders an amount as "$" plus grouped thousands.
func Format(a Amount) string {
	return printer.Sprintf("$%d", int64(a))
}

// String implements fmt.Stringer.
func (a Amount) String() string {
	return Format(a)
}

// IsGrouped reports whether s is in strict grouped-thousands form.
func IsGrouped(s string) bool {
	return groupedRe.MatchString(s)
}

// Find returns every dollar token in text in order of appearance. Tokens
// whose digits overflow int64 are skipped.
func Find(text string) []Token {
	locs := tokenRe.FindAllStringIndex(text, -1)
	tokens := make([]Token, 0, len(locs))
	for _, loc := range locs {
		raw := strings.TrimRight(text[loc[0]:loc[1]], ",")
		amt, err := Parse(raw)
		if err != nil {
			continue
		}
		tokens = append(tokens, Token{Amount: amt, Text: raw, Pos: loc[0]})
	}
	return tokens
}

// Pattern returns the token regexp for callers that search DOM text nodes.
func Pattern() *regexp.Regexp {
	return tokenRe
}
