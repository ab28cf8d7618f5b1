package domain

import "time"

// Validation table rows. Each row carries the configuration it was computed for.

// WalkForwardRow holds one calendar year of a configuration's returns.
type WalkForwardRow struct {
	RunID    string
	ConfigID string
	Configuration

	Year            int
	Sharpe          float64
	AnnReturn       float64
	AnnVol          float64
	BenchmarkSharpe float64
	ExcessSharpe    float64
	Days            int
}

// BootstrapRow holds the resampled Sharpe distribution summary.
type BootstrapRow struct {
	RunID    string
	ConfigID string
	Configuration

	ObservedSharpe float64
	BootMeanSharpe float64
	CILower        float64 // 2.5th percentile
	CIUpper        float64 // 97.5th percentile
	PValue         float64 // share of resampled Sharpe <= 0
	Significant    bool    // PValue < 0.05
	Resamples      int
	Seed           uint64
	Days           int
}

// TransactionCostRow holds net performance at one cost level.
type TransactionCostRow struct {
	RunID    string
	ConfigID string
	Configuration

	CostBps   float64
	Sharpe    float64
	AnnReturn float64
	Days      int
}

// BreakevenRow holds the per-trade cost at which gross OOS return is consumed.
type BreakevenRow struct {
	RunID    string
	ConfigID string
	Configuration

	BreakevenBps float64 // +Inf when the configuration never trades
	TradeRate    float64 // mean daily trade indicator over OOS
	GrossMean    float64 // mean daily gross OOS return
}

// DecayRow holds OOS performance with additional execution delay.
type DecayRow struct {
	RunID    string
	ConfigID string
	Configuration

	ExtraDelay int
	TotalLead  int
	Sharpe     float64
	AnnReturn  float64
	Days       int
}

// StressWindow is a named historical date range.
type StressWindow struct {
	Name  string
	Start time.Time
	End   time.Time
}

// StressRow compares strategy and benchmark inside a stress window.
type StressRow struct {
	RunID    string
	ConfigID string
	Configuration

	Window string
	Start  time.Time
	End    time.Time

	Sharpe      float64
	AnnReturn   float64
	MaxDrawdown float64

	BenchmarkSharpe      float64
	BenchmarkAnnReturn   float64
	BenchmarkMaxDrawdown float64

	ExcessSharpe float64
	Days         int
}

// Stress window names
const (
	StressGFC          = "GFC"
	StressCOVID        = "COVID"
	StressTaperTantrum = "Taper_Tantrum"
	StressRateShock    = "Rate_Shock_2022"
	StressFullOOS      = "Full_OOS"
)

// DefaultStressWindows returns the historical episodes plus the full
// out-of-sample window ending at end.
func DefaultStressWindows(oosStart, end time.Time) []StressWindow {
	return []StressWindow{
		{Name: StressGFC, Start: date(2007, 1, 1), End: date(2009, 12, 31)},
		{Name: StressCOVID, Start: date(2020, 1, 1), End: date(2020, 12, 31)},
		{Name: StressTaperTantrum, Start: date(2013, 4, 1), End: date(2013, 12, 31)},
		{Name: StressRateShock, Start: date(2022, 1, 1), End: date(2022, 12, 31)},
		{Name: StressFullOOS, Start: oosStart, End: end},
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
