// Package figures decides which scraped dollar amounts are the domestic,
// international and worldwide grosses of a release, and reconciles the three
// so that worldwide = domestic + international.
package figures

import (
	"encoding/json"

	"github.com/sells-group/boxoffice-cli/internal/money"
)

// Path names the decision rule that produced a Result.
type Path string

const (
	PathNone     Path = "none"
	PathSingle   Path = "single"
	PathPair     Path = "pair"
	PathTriple   Path = "triple"
	PathFallback Path = "fallback"
	PathLabeled  Path = "labeled"
)

// NoPosition marks a candidate whose document position is unknown.
const NoPosition = -1

// Candidate is one distinct amount found on a detail page.
type Candidate struct {
	Amount money.Amount `json:"amount" yaml:"amount"`
	Pos    int          `json:"pos" yaml:"pos"`
	Text   string       `json:"text" yaml:"text"`
}

// Figure is a gross that is either known (possibly a verified zero) or unknown.
type Figure struct {
	Amount money.Amount
	Known  bool

	// Text is the source string the amount was parsed from, if any. Derived
	// figures carry their formatted value.
	Text string
}

// Unknown returns a figure that could not be determined.
func Unknown() Figure { return Figure{} }

// Zero returns a verified zero gross.
func Zero() Figure { return Figure{Known: true} }

// Derived returns a known figure computed rather than scraped.
func Derived(a money.Amount) Figure {
	return Figure{Amount: a, Known: true, Text: money.Format(a)}
}

func fromCandidate(c Candidate) Figure {
	return Figure{Amount: c.Amount, Known: true, Text: c.Text}
}

// String renders the figure for tabular output. Unknown renders as "$0", the
// same as a verified zero; use Known to tell them apart.
func (f Figure) String() string {
	return money.Format(f.Amount)
}

// MarshalJSON renders unknown figures as null.
func (f Figure) MarshalJSON() ([]byte, error) {
	if !f.Known {
		return []byte("null"), nil
	}
	return json.Marshal(int64(f.Amount))
}

// MarshalYAML renders unknown figures as null.
func (f Figure) MarshalYAML() (any, error) {
	if !f.Known {
		return nil, nil
	}
	return int64(f.Amount), nil
}

// Ptr returns the amount as *int64, nil when unknown. Used for nullable
// database columns.
func (f Figure) Ptr() *int64 {
	if !f.Known {
		return nil
	}
	v := int64(f.Amount)
	return &v
}

// FromPtr is the inverse of Ptr.
func FromPtr(v *int64) Figure {
	if v == nil {
		return Unknown()
	}
	return Derived(money.Amount(*v))
}

// FigureSet is the reconciled triple for one release.
type FigureSet struct {
	Domestic      Figure `json:"domestic" yaml:"domestic"`
	International Figure `json:"international" yaml:"international"`
	Worldwide     Figure `json:"worldwide" yaml:"worldwide"`
}

// AnyKnown reports whether at least one figure is known.
func (fs FigureSet) AnyKnown() bool {
	return fs.Domestic.Known || fs.International.Known || fs.Worldwide.Known
}

// Result is the outcome of one disambiguation.
type Result struct {
	Figures       FigureSet `json:"figures" yaml:"figures"`
	Path          Path      `json:"path" yaml:"path"`
	Notes         []string  `json:"notes,omitempty" yaml:"notes,omitempty"`
	Rejected      bool      `json:"rejected" yaml:"rejected"`
	PolicyVersion string    `json:"policy_version" yaml:"policy_version"`
}

func (r *Result) note(msg string) {
	r.Notes = append(r.Notes, msg)
}
