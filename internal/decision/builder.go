package decision

import (
	"errors"
	"math"

	"credit-signal-lab/internal/domain"
)

// ErrConfigNotValidated is returned when the validation report has no rows
// for the requested configuration.
var ErrConfigNotValidated = errors.New("configuration not found in validation report")

// BuildRobustnessInput summarizes the validation rows of one configuration.
// Missing analyses leave their fields NaN, which fails the matching criterion.
func BuildRobustnessInput(report *domain.ValidationReport, configID string) (*RobustnessInput, error) {
	input := &RobustnessInput{
		ConfigID:      configID,
		PValue:        math.NaN(),
		BreakevenBps:  math.NaN(),
		PositiveYears: math.NaN(),
		DelayedSharpe: math.NaN(),
		FullOOSExcess: math.NaN(),
	}
	found := false

	for _, b := range report.Bootstrap {
		if b.ConfigID == configID {
			input.PValue = b.PValue
			found = true
		}
	}
	for _, b := range report.Breakeven {
		if b.ConfigID == configID {
			input.BreakevenBps = b.BreakevenBps
			found = true
		}
	}

	years, positive := 0, 0
	for _, w := range report.WalkForward {
		if w.ConfigID != configID {
			continue
		}
		found = true
		years++
		if w.ExcessSharpe > 0 {
			positive++
		}
	}
	if years > 0 {
		input.PositiveYears = float64(positive) / float64(years)
	}

	maxDelay := -1
	for _, d := range report.Decay {
		if d.ConfigID != configID {
			continue
		}
		found = true
		if d.ExtraDelay > maxDelay {
			maxDelay = d.ExtraDelay
			input.DelayedSharpe = d.Sharpe
			input.MaxExtraDelay = d.ExtraDelay
		}
	}

	for _, s := range report.Stress {
		if s.ConfigID != configID {
			continue
		}
		found = true
		if s.Window == domain.StressFullOOS {
			input.FullOOSExcess = s.ExcessSharpe
			continue
		}
		input.StressWindows++
		if s.ExcessSharpe > 0 {
			input.StressOutperform++
		}
	}

	if !found {
		return nil, ErrConfigNotValidated
	}
	return input, nil
}
