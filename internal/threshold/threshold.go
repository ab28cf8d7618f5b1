// Package threshold calibrates the per-date cutoff that separates stressed
// from calm for a signal. The set of methods is closed: Method can only be
// implemented inside this package, and Calibrate dispatches over every variant.
package threshold

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"credit-signal-lab/internal/series"
)

// Threshold errors
var (
	ErrInvalidParameter     = errors.New("invalid threshold parameter")
	ErrUnknownMethod        = errors.New("unknown threshold method")
	ErrInsufficientInSample = errors.New("insufficient in-sample observations")
)

// Default calibration parameters.
const (
	DefaultMinInSample       = 100
	DefaultQuantileWindow    = 504
	DefaultQuantileMinPeriod = 252
	DefaultBandWindow        = 252
	DefaultBandMinPeriod     = 126
)

// Method is a threshold calibration rule.
type Method interface {
	// ID returns the canonical identifier, e.g. "ROLL_Q85".
	ID() string
	sealed()
}

// FixedQuantile is frozen-at-deployment calibration: a single quantile of the
// in-sample signal, applied unchanged to every date.
type FixedQuantile struct {
	Q           float64
	MinInSample int
}

// RollingQuantile is the trailing-window quantile of the signal.
type RollingQuantile struct {
	Q          float64
	Window     int
	MinPeriods int
}

// RollingBand is trailing mean plus K trailing standard deviations.
type RollingBand struct {
	K          float64
	Window     int
	MinPeriods int
}

// FixedConstant is a constant cutoff, used for probability-valued signals.
type FixedConstant struct {
	Value float64
}

func (FixedQuantile) sealed()   {}
func (RollingQuantile) sealed() {}
func (RollingBand) sealed()     {}
func (FixedConstant) sealed()   {}

// ID implements Method.
func (m FixedQuantile) ID() string { return fmt.Sprintf("IS_Q%02d", percent(m.Q)) }

// ID implements Method.
func (m RollingQuantile) ID() string { return fmt.Sprintf("ROLL_Q%02d", percent(m.Q)) }

// ID implements Method.
func (m RollingBand) ID() string { return "BAND_" + strconv.FormatFloat(m.K, 'f', 1, 64) }

// ID implements Method.
func (m FixedConstant) ID() string { return "CONST_" + strconv.FormatFloat(m.Value, 'f', 2, 64) }

func percent(q float64) int {
	return int(math.Round(q * 100))
}

// NewFixedQuantile validates q in (0, 1).
func NewFixedQuantile(q float64) (FixedQuantile, error) {
	if !(q > 0 && q < 1) {
		return FixedQuantile{}, fmt.Errorf("%w: quantile %v outside (0, 1)", ErrInvalidParameter, q)
	}
	return FixedQuantile{Q: q, MinInSample: DefaultMinInSample}, nil
}

// NewRollingQuantile validates q in (0, 1) and 1 <= minPeriods <= window.
func NewRollingQuantile(q float64, window, minPeriods int) (RollingQuantile, error) {
	if !(q > 0 && q < 1) {
		return RollingQuantile{}, fmt.Errorf("%w: quantile %v outside (0, 1)", ErrInvalidParameter, q)
	}
	if err := checkWindow(window, minPeriods); err != nil {
		return RollingQuantile{}, err
	}
	return RollingQuantile{Q: q, Window: window, MinPeriods: minPeriods}, nil
}

// NewRollingBand validates a positive finite k and the window.
func NewRollingBand(k float64, window, minPeriods int) (RollingBand, error) {
	if math.IsNaN(k) || math.IsInf(k, 0) || k <= 0 {
		return RollingBand{}, fmt.Errorf("%w: band multiplier %v", ErrInvalidParameter, k)
	}
	if err := checkWindow(window, minPeriods); err != nil {
		return RollingBand{}, err
	}
	return RollingBand{K: k, Window: window, MinPeriods: minPeriods}, nil
}

// NewFixedConstant validates a finite value.
func NewFixedConstant(v float64) (FixedConstant, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return FixedConstant{}, fmt.Errorf("%w: constant %v", ErrInvalidParameter, v)
	}
	return FixedConstant{Value: v}, nil
}

func checkWindow(window, minPeriods int) error {
	if window < 1 || minPeriods < 1 || minPeriods > window {
		return fmt.Errorf("%w: window %d min periods %d", ErrInvalidParameter, window, minPeriods)
	}
	return nil
}

// Calibrate computes the per-date threshold for signal.
// inSampleEnd is the number of leading rows that belong to the in-sample window;
// only FixedQuantile reads it, and only those rows.
func Calibrate(m Method, signal []float64, inSampleEnd int) ([]float64, error) {
	switch m := m.(type) {
	case FixedQuantile:
		if inSampleEnd > len(signal) {
			inSampleEnd = len(signal)
		}
		vals := series.DropNaN(signal[:inSampleEnd])
		if len(vals) < m.MinInSample {
			return nil, fmt.Errorf("%w: %d < %d", ErrInsufficientInSample, len(vals), m.MinInSample)
		}
		return series.Fill(len(signal), series.Quantile(vals, m.Q)), nil
	case RollingQuantile:
		return series.RollingQuantile(signal, m.Window, m.MinPeriods, m.Q), nil
	case RollingBand:
		return series.RollingBand(signal, m.Window, m.MinPeriods, m.K), nil
	case FixedConstant:
		return series.Fill(len(signal), m.Value), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMethod, m)
	}
}

// Parse rebuilds a method from its canonical ID using default windows.
func Parse(id string) (Method, error) {
	prefix, arg, ok := strings.Cut(id, "_")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, id)
	}
	switch prefix {
	case "IS", "ROLL":
		if !strings.HasPrefix(arg, "Q") {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, id)
		}
		pct, err := strconv.Atoi(strings.TrimPrefix(arg, "Q"))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidParameter, id, err)
		}
		q := float64(pct) / 100
		if prefix == "IS" {
			return NewFixedQuantile(q)
		}
		return NewRollingQuantile(q, DefaultQuantileWindow, DefaultQuantileMinPeriod)
	case "BAND":
		k, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidParameter, id, err)
		}
		return NewRollingBand(k, DefaultBandWindow, DefaultBandMinPeriod)
	case "CONST":
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidParameter, id, err)
		}
		return NewFixedConstant(v)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, id)
}

// LevelMethods returns the fixed-quantile, rolling-quantile and rolling-band
// grid used for continuous signals.
func LevelMethods() []Method {
	var out []Method
	for _, q := range []float64{0.75, 0.85, 0.95} {
		m, _ := NewFixedQuantile(q)
		out = append(out, m)
	}
	for _, q := range []float64{0.75, 0.85, 0.95} {
		m, _ := NewRollingQuantile(q, DefaultQuantileWindow, DefaultQuantileMinPeriod)
		out = append(out, m)
	}
	for _, k := range []float64{1.5, 2.0, 2.5} {
		m, _ := NewRollingBand(k, DefaultBandWindow, DefaultBandMinPeriod)
		out = append(out, m)
	}
	return out
}

// ConstantMethods returns one FixedConstant per value.
func ConstantMethods(values ...float64) []Method {
	out := make([]Method, 0, len(values))
	for _, v := range values {
		m, err := NewFixedConstant(v)
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}
