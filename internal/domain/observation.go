package domain

import "time"

// Observation is one raw dated value of a named series as sourced.
type Observation struct {
	Series string    // panel column name, e.g. "hy_oas"
	Date   time.Time // UTC midnight
	Value  float64   // NaN when the source reported a missing value
}
