package figures

import "github.com/sells-group/boxoffice-cli/internal/money"

// PolicyVersion identifies the current disambiguation rules. Bump it whenever
// a decision rule or default threshold changes so stored results can be traced
// back to the rules that produced them.
const PolicyVersion = "2"

// Policy holds the tunable thresholds of the disambiguator.
type Policy struct {
	Version string `yaml:"version" mapstructure:"version"`

	// Tolerance is the relative error allowed when matching worldwide ≈
	// domestic + international.
	Tolerance float64 `yaml:"tolerance" mapstructure:"tolerance"`

	// MinAmount and MaxAmount bound plausible grosses. Anything outside is
	// treated as incidental (ticket prices, budgets in prose).
	MinAmount money.Amount `yaml:"min_amount" mapstructure:"min_amount"`
	MaxAmount money.Amount `yaml:"max_amount" mapstructure:"max_amount"`

	// FallbackRatio marks the two largest candidates as "close" when
	// larger/smaller is at or below it.
	FallbackRatio float64 `yaml:"fallback_ratio" mapstructure:"fallback_ratio"`

	// MaxInternational rejects an uncorroborated international figure above it.
	MaxInternational money.Amount `yaml:"max_international" mapstructure:"max_international"`

	// MaxInternationalRatio rejects international/domestic above it.
	MaxInternationalRatio float64 `yaml:"max_international_ratio" mapstructure:"max_international_ratio"`
}

// DefaultPolicy returns the thresholds used by the scrape command.
func DefaultPolicy() Policy {
	return Policy{
		Version:               PolicyVersion,
		Tolerance:             0.05,
		MinAmount:             10_000,
		MaxAmount:             10_000_000_000,
		FallbackRatio:         1.8,
		MaxInternational:      1_000_000_000,
		MaxInternationalRatio: 50,
	}
}

func applyDefaults(p Policy) Policy {
	def := DefaultPolicy()
	if p.Version == "" {
		p.Version = def.Version
	}
	if p.Tolerance <= 0 {
		p.Tolerance = def.Tolerance
	}
	if p.MinAmount <= 0 {
		p.MinAmount = def.MinAmount
	}
	if p.MaxAmount <= 0 {
		p.MaxAmount = def.MaxAmount
	}
	if p.FallbackRatio <= 0 {
		p.FallbackRatio = def.FallbackRatio
	}
	if p.MaxInternational <= 0 {
		p.MaxInternational = def.MaxInternational
	}
	if p.MaxInternationalRatio <= 0 {
		p.MaxInternationalRatio = def.MaxInternationalRatio
	}
	return p
}

// InRange reports whether a lies within [MinAmount, MaxAmount].
func (p Policy) InRange(a money.Amount) bool {
	return a >= p.MinAmount && a <= p.MaxAmount
}
