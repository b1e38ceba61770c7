package readings

import "strconv"

// Alias lists in priority order. The first alias present with a non-null
// value wins. Nothing outside this package reads these fields directly.
var (
	RatioAliases    = []string{"calculated_ratio", "ratio"}
	AdhesiveAliases = []string{"adhesive_weight", "adhesive", "adhesiveWeight"}
	ResinAliases    = []string{"resin_weight", "resin", "resinWeight"}
)

// Adhesive returns the adhesive weight, or 0 when no alias is present.
func Adhesive(r Reading) float64 {
	v, ok := r.first(AdhesiveAliases)
	if !ok {
		return 0
	}
	return rawNumber(v)
}

// Resin returns the resin weight, or 0 when no alias is present.
func Resin(r Reading) float64 {
	v, ok := r.first(ResinAliases)
	if !ok {
		return 0
	}
	return rawNumber(v)
}

// ResolveRatio returns the adhesive-to-resin ratio of a reading. A ratio the
// backend already computed is returned unchanged; otherwise it is derived
// from the weights. A zero resin weight yields 0, the offline ratio.
func ResolveRatio(r Reading) float64 {
	if v, ok := r.first(RatioAliases); ok {
		return rawNumber(v)
	}
	resin := Resin(r)
	if resin == 0 {
		return 0
	}
	return Adhesive(r) / resin
}

// FormatRatio renders a ratio with three decimals for display.
func FormatRatio(ratio float64) string {
	return strconv.FormatFloat(ratio, 'f', 3, 64)
}
