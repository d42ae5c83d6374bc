package figures

import (
	"fmt"
	"strings"

	"github.com/sells-group/boxoffice-cli/internal/money"
)

// Disambiguator applies one Policy to candidate sets. It holds no mutable
// state and is safe to share.
type Disambiguator struct {
	policy Policy
}

// New creates a Disambiguator. Zero-valued policy fields take their defaults.
func New(p Policy) *Disambiguator {
	return &Disambiguator{policy: applyDefaults(p)}
}

// Policy returns the effective policy.
func (d *Disambiguator) Policy() Policy {
	return d.policy
}

// Candidates turns money tokens into the candidate set: out-of-range amounts
// are dropped and repeated amounts keep their first occurrence.
func (d *Disambiguator) Candidates(tokens []money.Token) []Candidate {
	cands := make([]Candidate, 0, len(tokens))
	for _, t := range tokens {
		cands = append(cands, Candidate{Amount: t.Amount, Pos: t.Pos, Text: t.Text})
	}
	return d.normalize(cands)
}

func (d *Disambiguator) normalize(cands []Candidate) []Candidate {
	seen := make(map[money.Amount]bool, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if !d.policy.InRange(c.Amount) || seen[c.Amount] {
			continue
		}
		seen[c.Amount] = true
		out = append(out, c)
	}
	return out
}

// Disambiguate assigns domestic, international and worldwide from cands,
// given in document order. It never fails: inputs it cannot interpret yield
// unknown or domestic-only figures, and suspicious results are collapsed to
// domestic-only with a note.
func (d *Disambiguator) Disambiguate(cands []Candidate) Result {
	cs := d.normalize(cands)
	res := Result{PolicyVersion: d.policy.Version}

	switch len(cs) {
	case 0:
		res.Path = PathNone
		res.Figures = FigureSet{Domestic: Unknown(), International: Unknown(), Worldwide: Unknown()}
		return res
	case 1:
		res.Path = PathSingle
		dom := fromCandidate(cs[0])
		res.Figures = FigureSet{Domestic: dom, International: Zero(), Worldwide: dom}
		d.reconcile(&res, false)
		return res
	case 2:
		res.Path = PathPair
		res.Figures = pairFigures(cs[0], cs[1])
		d.reconcile(&res, false)
		return res
	}

	if t, ok := d.findTriple(cs); ok {
		res.Path = PathTriple
		dom, intl := splitByPosition(cs[t.j], cs[t.k])
		res.Figures = FigureSet{
			Domestic:      fromCandidate(dom),
			International: fromCandidate(intl),
			Worldwide:     fromCandidate(cs[t.i]),
		}
		d.reconcile(&res, true)
		return res
	}

	res.Path = PathFallback
	res.note(fmt.Sprintf("no reconciling triple among %d candidates", len(cs)))
	res.Figures = d.fallbackFigures(cs, &res)
	d.reconcile(&res, false)
	return res
}

// pairFigures reads the smaller of two amounts as domestic and the larger as
// worldwide.
func pairFigures(a, b Candidate) FigureSet {
	dom, ww := a, b
	if b.Amount < a.Amount {
		dom, ww = b, a
	}
	return FigureSet{
		Domestic:      fromCandidate(dom),
		International: Derived(ww.Amount - dom.Amount),
		Worldwide:     fromCandidate(ww),
	}
}

type triple struct {
	i, j, k int
	dev     money.Amount
}

// findTriple searches for cs[i] ≈ cs[j] + cs[k]. When several triples fit,
// the winner has the largest worldwide, then the smallest deviation, then
// the pair containing the larger amount; remaining ties keep enumeration
// order.
func (d *Disambiguator) findTriple(cs []Candidate) (triple, bool) {
	var best triple
	found := false
	for i := range cs {
		for j := range cs {
			for k := j + 1; k < len(cs); k++ {
				if i == j || i == k {
					continue
				}
				dev := absDiff(cs[i].Amount, cs[j].Amount+cs[k].Amount)
				if float64(dev) > d.policy.Tolerance*float64(cs[i].Amount) {
					continue
				}
				t := triple{i: i, j: j, k: k, dev: dev}
				if !found || betterTriple(cs, t, best) {
					best = t
					found = true
				}
			}
		}
	}
	return best, found
}

func betterTriple(cs []Candidate, a, b triple) bool {
	if cs[a.i].Amount != cs[b.i].Amount {
		return cs[a.i].Amount > cs[b.i].Amount
	}
	if a.dev != b.dev {
		return a.dev < b.dev
	}
	return pairMax(cs, a) > pairMax(cs, b)
}

func pairMax(cs []Candidate, t triple) money.Amount {
	return max(cs[t.j].Amount, cs[t.k].Amount)
}

// splitByPosition returns (domestic, international): the earlier candidate on
// the page is domestic. Without usable positions the smaller amount is.
func splitByPosition(a, b Candidate) (Candidate, Candidate) {
	if a.Pos >= 0 && b.Pos >= 0 && a.Pos != b.Pos {
		if a.Pos < b.Pos {
			return a, b
		}
		return b, a
	}
	if a.Amount <= b.Amount {
		return a, b
	}
	return b, a
}

// fallbackFigures assigns the two largest candidates when no triple
// reconciles. Far apart, they read as domestic and worldwide. Within
// FallbackRatio of each other, they read as domestic and international and
// worldwide is their sum.
func (d *Disambiguator) fallbackFigures(cs []Candidate, res *Result) FigureSet {
	first, second := twoLargest(cs)
	if float64(first.Amount) <= d.policy.FallbackRatio*float64(second.Amount) {
		res.note(fmt.Sprintf("two largest candidates %s and %s are within %.1fx; read as domestic and international",
			first.Text, second.Text, d.policy.FallbackRatio))
		return FigureSet{
			Domestic:      fromCandidate(first),
			International: fromCandidate(second),
			Worldwide:     Derived(first.Amount + second.Amount),
		}
	}
	return FigureSet{
		Domestic:      fromCandidate(second),
		International: Derived(first.Amount - second.Amount),
		Worldwide:     fromCandidate(first),
	}
}

func twoLargest(cs []Candidate) (Candidate, Candidate) {
	first, second := cs[0], cs[1]
	if second.Amount > first.Amount {
		first, second = second, first
	}
	for _, c := range cs[2:] {
		switch {
		case c.Amount > first.Amount:
			first, second = c, first
		case c.Amount > second.Amount:
			second = c
		}
	}
	return first, second
}

// reconcile runs the corruption checks and then enforces
// worldwide = domestic + international. corroborated is true when an
// independently scraped worldwide figure already matched the sum.
func (d *Disambiguator) reconcile(res *Result, corroborated bool) {
	fs := &res.Figures
	if reason := d.corruption(*fs, corroborated); reason != "" {
		res.Rejected = true
		res.note("international rejected: " + reason)
		fs.International = Zero()
		fs.Worldwide = fs.Domestic
		return
	}

	if !fs.Domestic.Known || !fs.International.Known {
		return
	}
	sum := fs.Domestic.Amount + fs.International.Amount
	if fs.Worldwide.Known && fs.Worldwide.Amount == sum {
		return
	}
	if fs.Worldwide.Known {
		res.note(fmt.Sprintf("worldwide %s replaced by domestic + international %s",
			money.Format(fs.Worldwide.Amount), money.Format(sum)))
	}
	fs.Worldwide = Derived(sum)
}

func (d *Disambiguator) corruption(fs FigureSet, corroborated bool) string {
	intl := fs.International
	if !intl.Known {
		return ""
	}
	if text := strings.TrimSpace(intl.Text); text != "" && !money.IsGrouped(text) {
		return fmt.Sprintf("%q is not a grouped-thousands amount", text)
	}
	if !corroborated && intl.Amount > d.policy.MaxInternational {
		return fmt.Sprintf("%s exceeds %s without a matching worldwide figure",
			money.Format(intl.Amount), money.Format(d.policy.MaxInternational))
	}
	dom := fs.Domestic
	if dom.Known && dom.Amount > 0 {
		ratio := float64(intl.Amount) / float64(dom.Amount)
		if ratio > d.policy.MaxInternationalRatio {
			return fmt.Sprintf("%s is %.1fx domestic %s (limit %.0fx)",
				money.Format(intl.Amount), ratio, money.Format(dom.Amount), d.policy.MaxInternationalRatio)
		}
	}
	return ""
}

func absDiff(a, b money.Amount) money.Amount {
	if a > b {
		return a - b
	}
	return b - a
}
