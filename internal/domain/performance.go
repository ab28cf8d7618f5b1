package domain

import "math"

// PerformanceRecord holds annualized statistics of a daily return series.
// Undefined statistics are NaN; Days is 0 when the series was too short to score.
type PerformanceRecord struct {
	AnnReturn   float64 // mean daily return * 252
	AnnVol      float64 // sample std * sqrt(252)
	Sharpe      float64 // AnnReturn / AnnVol
	Sortino     float64 // AnnReturn / annualized downside std
	Calmar      float64 // AnnReturn / |MaxDrawdown|
	MaxDrawdown float64 // most negative peak-to-trough on compounded equity (<= 0)
	AvgDrawdown float64 // mean of negative drawdown observations
	WinRate     float64 // share of positive days
	Days        int     // valid observations
}

// UndefinedPerformance returns a record with every statistic undefined.
func UndefinedPerformance() PerformanceRecord {
	nan := math.NaN()
	return PerformanceRecord{
		AnnReturn:   nan,
		AnnVol:      nan,
		Sharpe:      nan,
		Sortino:     nan,
		Calmar:      nan,
		MaxDrawdown: nan,
		AvgDrawdown: nan,
		WinRate:     nan,
	}
}

// Defined reports whether the record was computed from enough observations.
func (p PerformanceRecord) Defined() bool {
	return p.Days > 0
}
