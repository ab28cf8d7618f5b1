package domain

// Polarity states which direction of a signal indicates stress.
type Polarity string

// Polarity constants
const (
	PolarityStressHigh  Polarity = "STRESS_HIGH"  // larger values mean more stress
	PolarityBullishHigh Polarity = "BULLISH_HIGH" // larger values mean improving conditions
)

// SignalKind distinguishes unbounded level signals from probabilities in [0, 1].
type SignalKind string

// Signal kind constants
const (
	KindLevel       SignalKind = "LEVEL"
	KindProbability SignalKind = "PROBABILITY"
)
