// Package series provides NaN-aware vector and rolling-window operations
// over daily business-day series. NaN marks an undefined observation.
package series

import (
	"math"
	"sort"
)

// NaNs returns a slice of n NaN values.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Fill returns a slice of n copies of v.
func Fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Clone copies x.
func Clone(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	return out
}

// AllNaN reports whether x has no defined value.
func AllNaN(x []float64) bool {
	for _, v := range x {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// DropNaN returns the defined values of x in order.
func DropNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// CountValid returns the number of defined values in x.
func CountValid(x []float64) int {
	n := 0
	for _, v := range x {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Shift lags x by h positions: out[t] = x[t-h]. Leading positions are NaN.
// h must be non-negative.
func Shift(x []float64, h int) []float64 {
	out := NaNs(len(x))
	for t := h; t < len(x); t++ {
		out[t] = x[t-h]
	}
	return out
}

// Lead moves x forward by h positions: out[t] = x[t+h]. Trailing positions are NaN.
func Lead(x []float64, h int) []float64 {
	out := NaNs(len(x))
	for t := 0; t+h < len(x); t++ {
		out[t] = x[t+h]
	}
	return out
}

// Diff returns x[t] - x[t-h].
func Diff(x []float64, h int) []float64 {
	out := NaNs(len(x))
	for t := h; t < len(x); t++ {
		out[t] = x[t] - x[t-h]
	}
	return out
}

// PctChange returns x[t]/x[t-h] - 1. A zero base yields NaN.
func PctChange(x []float64, h int) []float64 {
	out := NaNs(len(x))
	for t := h; t < len(x); t++ {
		base := x[t-h]
		if base == 0 || math.IsNaN(base) || math.IsNaN(x[t]) {
			continue
		}
		out[t] = x[t]/base - 1
	}
	return out
}

// ForwardReturn returns x[t+h]/x[t] - 1.
func ForwardReturn(x []float64, h int) []float64 {
	out := NaNs(len(x))
	for t := 0; t+h < len(x); t++ {
		base := x[t]
		if base == 0 || math.IsNaN(base) || math.IsNaN(x[t+h]) {
			continue
		}
		out[t] = x[t+h]/base - 1
	}
	return out
}

// Sub returns a - b element-wise.
func Sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// Scale returns k * x.
func Scale(x []float64, k float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = k * v
	}
	return out
}

// Clip bounds every defined value into [lo, hi].
func Clip(x []float64, lo, hi float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		switch {
		case math.IsNaN(v):
			out[i] = v
		case v < lo:
			out[i] = lo
		case v > hi:
			out[i] = hi
		default:
			out[i] = v
		}
	}
	return out
}

// Mean returns the arithmetic mean of the defined values, NaN if none.
func Mean(x []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Std returns the sample standard deviation (n-1 denominator) of the
// defined values, NaN with fewer than two.
func Std(x []float64) float64 {
	mean := Mean(x)
	sumSq, n := 0.0, 0
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		d := v - mean
		sumSq += d * d
		n++
	}
	if n < 2 {
		return math.NaN()
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// PopStd returns the population standard deviation (n denominator) of the
// defined values, NaN if none.
func PopStd(x []float64) float64 {
	mean := Mean(x)
	sumSq, n := 0.0, 0
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		d := v - mean
		sumSq += d * d
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return math.Sqrt(sumSq / float64(n))
}

// Standardize subtracts the full-sample mean and divides by the full-sample std.
// A zero or undefined std yields an all-NaN result.
func Standardize(x []float64) []float64 {
	mean, std := Mean(x), Std(x)
	if math.IsNaN(std) || std == 0 {
		return NaNs(len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - mean) / std
	}
	return out
}

// Quantile returns the q-quantile of the defined values using linear
// interpolation between closest ranks. NaN when no value is defined.
func Quantile(x []float64, q float64) float64 {
	vals := DropNaN(x)
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	return quantileSorted(vals, q)
}

// quantileSorted uses linear interpolation. sorted must be ascending and non-empty.
func quantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	idx := q * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// ForwardFill carries the last defined value forward across at most limit
// consecutive undefined positions. A negative limit means no limit.
func ForwardFill(x []float64, limit int) []float64 {
	out := Clone(x)
	last := math.NaN()
	gap := 0
	for i, v := range out {
		if !math.IsNaN(v) {
			last = v
			gap = 0
			continue
		}
		gap++
		if math.IsNaN(last) || (limit >= 0 && gap > limit) {
			continue
		}
		out[i] = last
	}
	return out
}
