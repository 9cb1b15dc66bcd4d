package wiring

import "github.com/humwire/humwire/engine/domain"

// Resistance estimates the DC resistance of one pickup in kΩ.
type Resistance struct {
	Upper    float64 `json:"upper_kohm"`
	Lower    float64 `json:"lower_kohm"`
	Series   float64 `json:"series_kohm"`
	Parallel float64 `json:"parallel_kohm"`
	Expected float64 `json:"expected_kohm,omitempty"`
}

// EstimateResistance combines two measured coil resistances. It reports
// false when either reading is missing or non-positive.
func EstimateResistance(upper, lower float64) (Resistance, bool) {
	if upper <= 0 || lower <= 0 {
		return Resistance{}, false
	}
	return Resistance{
		Upper:    upper,
		Lower:    lower,
		Series:   upper + lower,
		Parallel: upper * lower / (upper + lower),
	}, true
}

// For returns the expected reading at the pickup's leads for mode m. In
// CoilSplit only the coil in slot kept is in circuit.
func (r Resistance) For(m Mode, kept domain.Slot) float64 {
	if m != CoilSplit {
		return r.Series
	}
	if kept == domain.Lower {
		return r.Lower
	}
	return r.Upper
}
