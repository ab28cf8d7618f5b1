package signals

import (
	"errors"
	"fmt"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/panel"
	"credit-signal-lab/internal/threshold"
)

// Catalog errors
var (
	ErrDuplicateSignal = errors.New("duplicate signal id")
	ErrInvalidSpec     = errors.New("invalid signal spec")
)

// Spec describes one tournament signal.
type Spec struct {
	ID          string
	Column      string
	Description string
	Polarity    domain.Polarity
	Kind        domain.SignalKind
	Methods     []threshold.Method // threshold methods the signal is scored with
	External    bool               // read from an optional regime-probability input
}

// Skipped records a signal left out of enumeration and why.
type Skipped struct {
	SignalID string
	Column   string
	Reason   string
}

// Catalog is an ordered, immutable set of signal specs.
type Catalog struct {
	specs []Spec
	byID  map[string]int
}

// NewCatalog validates specs and builds a catalog preserving their order.
func NewCatalog(specs ...Spec) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(specs))}
	for _, s := range specs {
		if s.ID == "" || s.Column == "" || len(s.Methods) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSpec, s.ID)
		}
		if s.Polarity != domain.PolarityStressHigh && s.Polarity != domain.PolarityBullishHigh {
			return nil, fmt.Errorf("%w: %s polarity %q", ErrInvalidSpec, s.ID, s.Polarity)
		}
		if _, exists := c.byID[s.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSignal, s.ID)
		}
		c.byID[s.ID] = len(c.specs)
		c.specs = append(c.specs, s)
	}
	return c, nil
}

// DefaultCatalog returns the HY-IG signal set S1..S13.
func DefaultCatalog() *Catalog {
	level := threshold.LevelMethods()
	stressProb := threshold.ConstantMethods(0.5, 0.7)
	classifier := threshold.ConstantMethods(0.5, 0.6, 0.7)

	lvl := func(id, col, desc string) Spec {
		return Spec{ID: id, Column: col, Description: desc,
			Polarity: domain.PolarityStressHigh, Kind: domain.KindLevel, Methods: level}
	}

	c, err := NewCatalog(
		lvl("S1", ColSpread, "HY-IG spread level"),
		lvl("S2a", ColZScore252, "HY-IG z-score 252d"),
		lvl("S2b", ColZScore504, "HY-IG z-score 504d"),
		lvl("S3a", ColPctRank504, "HY-IG percentile rank 504d"),
		lvl("S3b", ColPctRank1260, "HY-IG percentile rank 1260d"),
		lvl("S4a", ColROC21, "HY-IG rate of change 21d"),
		lvl("S4b", ColROC63, "HY-IG rate of change 63d"),
		lvl("S4c", ColROC126, "HY-IG rate of change 126d"),
		lvl("S5", ColCCCBBSpread, "CCC-BB quality spread"),
		Spec{ID: "S6", Column: ColHMMStressProb, Description: "HMM 2-state stress probability",
			Polarity: domain.PolarityStressHigh, Kind: domain.KindProbability, Methods: stressProb, External: true},
		Spec{ID: "S7", Column: ColMSStressProb, Description: "Markov-switching stress probability",
			Polarity: domain.PolarityStressHigh, Kind: domain.KindProbability, Methods: stressProb, External: true},
		lvl("S8", ColComposite, "Composite z-score and VIX term structure"),
		Spec{ID: "S9", Column: ColClassifier, Description: "Classifier bullish probability",
			Polarity: domain.PolarityBullishHigh, Kind: domain.KindProbability, Methods: classifier, External: true},
		lvl("S10", ColMom21, "HY-IG momentum 21d"),
		lvl("S11", ColMom63, "HY-IG momentum 63d"),
		lvl("S12", ColMom252, "HY-IG momentum 252d"),
		lvl("S13", ColAcceleration, "HY-IG spread acceleration"),
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Specs returns the specs in catalog order.
func (c *Catalog) Specs() []Spec {
	out := make([]Spec, len(c.specs))
	copy(out, c.specs)
	return out
}

// Len returns the number of specs.
func (c *Catalog) Len() int {
	return len(c.specs)
}

// Get looks up a spec by ID.
func (c *Catalog) Get(id string) (Spec, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Spec{}, false
	}
	return c.specs[i], true
}

// Resolve partitions the catalog against a panel before enumeration:
// a signal is eligible when its column exists with at least one defined value.
func (c *Catalog) Resolve(p *panel.Panel) ([]Spec, []Skipped) {
	var eligible []Spec
	var skipped []Skipped
	for _, s := range c.specs {
		if p.Has(s.Column) {
			eligible = append(eligible, s)
			continue
		}
		reason := "column missing or entirely undefined"
		if s.External {
			reason = "optional regime input not supplied"
		}
		skipped = append(skipped, Skipped{SignalID: s.ID, Column: s.Column, Reason: reason})
	}
	return eligible, skipped
}

// Combinations returns the number of configurations a spec contributes for
// the given lead and family counts.
func (s Spec) Combinations(leads, families int) int {
	return len(s.Methods) * leads * families
}
