// Package strength collects grip and pinch sensor readings over a fixed
// window and reduces them to session values.
package strength

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Policy selects how a window of samples is reduced to one value.
type Policy string

const (
	PolicyMax     Policy = "max"
	PolicyTopMean Policy = "topmean"
	PolicyMin     Policy = "min"
)

// TopFraction is the share of the highest samples averaged by PolicyTopMean.
const TopFraction = 0.6

// ErrNoData is returned when a window produced no samples.
var ErrNoData = errors.New("no samples collected")

// ParsePolicy parses a policy name. An empty name means PolicyMax.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyMax, nil
	case PolicyMax, PolicyTopMean, PolicyMin:
		return p, nil
	}
	return "", fmt.Errorf("unknown reduction %q (want max, topmean or min)", s)
}

// Reduce collapses samples into a single value.
func Reduce(samples []float64, p Policy) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoData
	}

	switch p {
	case PolicyMax, "":
		return slices.Max(samples), nil
	case PolicyMin:
		return slices.Min(samples), nil
	case PolicyTopMean:
		sorted := slices.Clone(samples)
		slices.Sort(sorted)
		slices.Reverse(sorted)

		k := int(float64(len(sorted)) * TopFraction)
		if k < 1 {
			k = 1
		}
		var sum float64
		for _, v := range sorted[:k] {
			sum += v
		}
		return sum / float64(k), nil
	}
	return 0, fmt.Errorf("unknown reduction %q", p)
}

// Ratio returns value/baseline. It is undefined (false) when there is no
// baseline or the baseline is zero.
func Ratio(value float64, baseline *float64) (float64, bool) {
	if baseline == nil || *baseline == 0 {
		return 0, false
	}
	return value / *baseline, true
}
