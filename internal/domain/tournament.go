package domain

// BenchmarkSignalID marks the buy-and-hold benchmark row.
const BenchmarkSignalID = "BH"

// BenchmarkThresholdID is the threshold label carried by the benchmark row.
const BenchmarkThresholdID = "none"

// FamilyBuyAndHold labels the benchmark row. It is not a tradable family.
const FamilyBuyAndHold StrategyFamily = "BUY_AND_HOLD"

// TournamentResult is one scored configuration.
// Rows are immutable once produced by a tournament run.
type TournamentResult struct {
	RunID    string
	ConfigID string // idhash.ConfigurationID of the embedded configuration
	Configuration

	SignalColumn string // panel column the signal was read from

	InSample    PerformanceRecord
	OutOfSample PerformanceRecord

	OOSTrades   int     // position changes dated in the out-of-sample window
	OOSTurnover float64 // OOSTrades per year of valid out-of-sample returns

	Valid     bool
	Benchmark bool
}
