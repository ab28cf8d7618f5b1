package series

import (
	"math"
	"sort"
)

// Rolling windows are row-based: the window ending at t covers x[t-window+1..t].
// NaN values inside a window are ignored; a statistic is defined only when
// at least minPeriods values are defined.

// sortedWindow keeps the defined values of a sliding window in ascending order.
type sortedWindow struct {
	vals []float64
}

func (w *sortedWindow) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	i := sort.SearchFloat64s(w.vals, v)
	w.vals = append(w.vals, 0)
	copy(w.vals[i+1:], w.vals[i:])
	w.vals[i] = v
}

func (w *sortedWindow) remove(v float64) {
	if math.IsNaN(v) {
		return
	}
	i := sort.SearchFloat64s(w.vals, v)
	if i < len(w.vals) && w.vals[i] == v {
		w.vals = append(w.vals[:i], w.vals[i+1:]...)
	}
}

// slide calls fn(t, sorted) for every t once the window has been advanced.
func slide(x []float64, window int, fn func(t int, sorted []float64)) {
	w := &sortedWindow{vals: make([]float64, 0, window)}
	for t, v := range x {
		if t >= window {
			w.remove(x[t-window])
		}
		w.add(v)
		fn(t, w.vals)
	}
}

// RollingQuantile returns the trailing q-quantile with linear interpolation.
func RollingQuantile(x []float64, window, minPeriods int, q float64) []float64 {
	out := NaNs(len(x))
	slide(x, window, func(t int, sorted []float64) {
		if len(sorted) >= minPeriods && len(sorted) > 0 {
			out[t] = quantileSorted(sorted, q)
		}
	})
	return out
}

// RollingMin returns the trailing minimum.
func RollingMin(x []float64, window, minPeriods int) []float64 {
	out := NaNs(len(x))
	slide(x, window, func(t int, sorted []float64) {
		if len(sorted) >= minPeriods && len(sorted) > 0 {
			out[t] = sorted[0]
		}
	})
	return out
}

// RollingMax returns the trailing maximum.
func RollingMax(x []float64, window, minPeriods int) []float64 {
	out := NaNs(len(x))
	slide(x, window, func(t int, sorted []float64) {
		if len(sorted) >= minPeriods && len(sorted) > 0 {
			out[t] = sorted[len(sorted)-1]
		}
	})
	return out
}

// RollingPercentRank returns the average rank of x[t] among the defined
// window values divided by their count, so ties share the mean rank.
// Undefined when x[t] itself is undefined.
func RollingPercentRank(x []float64, window, minPeriods int) []float64 {
	out := NaNs(len(x))
	slide(x, window, func(t int, sorted []float64) {
		v := x[t]
		if math.IsNaN(v) || len(sorted) < minPeriods || len(sorted) == 0 {
			return
		}
		below := sort.SearchFloat64s(sorted, v)
		upto := sort.Search(len(sorted), func(i int) bool { return sorted[i] > v })
		equal := upto - below
		rank := float64(below) + float64(equal+1)/2
		out[t] = rank / float64(len(sorted))
	})
	return out
}

// RollingMean returns the trailing mean.
func RollingMean(x []float64, window, minPeriods int) []float64 {
	out := NaNs(len(x))
	for t := range x {
		vals := windowValues(x, t, window)
		if len(vals) >= minPeriods && len(vals) > 0 {
			out[t] = Mean(vals)
		}
	}
	return out
}

// RollingStd returns the trailing sample standard deviation.
func RollingStd(x []float64, window, minPeriods int) []float64 {
	out := NaNs(len(x))
	for t := range x {
		vals := windowValues(x, t, window)
		if len(vals) >= minPeriods && len(vals) >= 2 {
			out[t] = Std(vals)
		}
	}
	return out
}

// RollingBand returns trailing mean + k * trailing std.
func RollingBand(x []float64, window, minPeriods int, k float64) []float64 {
	out := NaNs(len(x))
	for t := range x {
		vals := windowValues(x, t, window)
		if len(vals) >= minPeriods && len(vals) >= 2 {
			out[t] = Mean(vals) + k*Std(vals)
		}
	}
	return out
}

// RollingZScore returns (x - trailing mean) / trailing std.
// A zero std yields NaN.
func RollingZScore(x []float64, window, minPeriods int) []float64 {
	out := NaNs(len(x))
	for t, v := range x {
		if math.IsNaN(v) {
			continue
		}
		vals := windowValues(x, t, window)
		if len(vals) < minPeriods || len(vals) < 2 {
			continue
		}
		std := Std(vals)
		if std == 0 {
			continue
		}
		out[t] = (v - Mean(vals)) / std
	}
	return out
}

// windowValues returns the defined values of the window ending at t.
func windowValues(x []float64, t, window int) []float64 {
	start := t - window + 1
	if start < 0 {
		start = 0
	}
	return DropNaN(x[start : t+1])
}
