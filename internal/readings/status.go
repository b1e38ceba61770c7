package readings

import "strings"

// Tier is the status classification of a ratio.
type Tier int

const (
	TierNormal Tier = iota
	TierWarning
	TierCritical
)

// Label returns the display label for the tier.
func (t Tier) Label() string {
	switch t {
	case TierWarning:
		return "Warning"
	case TierCritical:
		return "Critical"
	default:
		return "Normal"
	}
}

// Key returns the stable lowercase identity used by the view layer to pick a style.
func (t Tier) Key() string {
	return strings.ToLower(t.Label())
}

func (t Tier) String() string {
	return t.Label()
}

// ParseTier maps a label or key (any case) back to a Tier.
func ParseTier(s string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal":
		return TierNormal, true
	case "warning":
		return TierWarning, true
	case "critical":
		return TierCritical, true
	}
	return TierNormal, false
}

// Tolerance bands around the 1.0 target ratio.
const (
	normalLow   = 0.95
	normalHigh  = 1.05
	warningLow  = 0.90
	warningHigh = 1.10
)

// Classify maps a ratio to its tier. A ratio of exactly 0 is an idle or
// offline machine and classifies as Normal.
func Classify(ratio float64) Tier {
	switch {
	case ratio == 0:
		return TierNormal
	case ratio >= normalLow && ratio <= normalHigh:
		return TierNormal
	case ratio >= warningLow && ratio < normalLow:
		return TierWarning
	case ratio > normalHigh && ratio <= warningHigh:
		return TierWarning
	default:
		return TierCritical
	}
}
