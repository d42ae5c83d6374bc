package figures

import (
	"fmt"
	"strings"

	"github.com/sells-group/boxoffice-cli/internal/money"
)

// Labeled holds raw figure strings that the page explicitly labels. Empty
// means the label was absent.
type Labeled struct {
	Domestic      string `json:"domestic" yaml:"domestic"`
	International string `json:"international" yaml:"international"`
	Worldwide     string `json:"worldwide" yaml:"worldwide"`
}

// Empty reports whether no label was found.
func (l Labeled) Empty() bool {
	return strings.TrimSpace(l.Domestic) == "" &&
		strings.TrimSpace(l.International) == "" &&
		strings.TrimSpace(l.Worldwide) == ""
}

// Reconcile runs pre-labeled figures through the same corruption and
// arithmetic checks as Disambiguate. A missing international figure is
// derived from worldwide − domestic; a lone domestic figure is treated as a
// domestic-only release.
func (d *Disambiguator) Reconcile(l Labeled) Result {
	res := Result{Path: PathLabeled, PolicyVersion: d.policy.Version}
	fs := FigureSet{
		Domestic:      parseLabel("domestic", l.Domestic, &res),
		International: parseLabel("international", l.International, &res),
		Worldwide:     parseLabel("worldwide", l.Worldwide, &res),
	}

	if !fs.Domestic.Known && !fs.International.Known && !fs.Worldwide.Known {
		res.Figures = fs
		return res
	}

	if !fs.International.Known && fs.Domestic.Known {
		switch {
		case fs.Worldwide.Known && fs.Worldwide.Amount >= fs.Domestic.Amount:
			fs.International = Derived(fs.Worldwide.Amount - fs.Domestic.Amount)
		case fs.Worldwide.Known:
			res.note("labeled worldwide is below domestic; treating as domestic-only")
			fs.International = Zero()
		default:
			fs.International = Zero()
		}
	}

	corroborated := fs.Domestic.Known && fs.International.Known && fs.Worldwide.Known &&
		float64(absDiff(fs.Worldwide.Amount, fs.Domestic.Amount+fs.International.Amount)) <=
			d.policy.Tolerance*float64(fs.Worldwide.Amount)

	res.Figures = fs
	d.reconcile(&res, corroborated)
	return res
}

func parseLabel(name, raw string, res *Result) Figure {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Unknown()
	}
	amt, err := money.Parse(text)
	if err != nil {
		res.note(fmt.Sprintf("labeled %s %q is not an amount", name, text))
		return Unknown()
	}
	return Figure{Amount: amt, Known: true, Text: text}
}
