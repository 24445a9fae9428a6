package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

// SeverityBand is a confidence range starting at LowerBound (inclusive).
type SeverityBand struct {
	LowerBound float64
	Level      string
	Icon       string
}

// SeverityBands partition [0,100] in ascending order of LowerBound.
var SeverityBands = []SeverityBand{
	{LowerBound: 0, Level: "Low", Icon: "😊"},
	{LowerBound: 40, Level: "Medium", Icon: "😐"},
	{LowerBound: 65, Level: "High", Icon: "😟"},
	{LowerBound: 85, Level: "Very High", Icon: "😱"},
}

// Bucketize maps a confidence percentage to its severity level and icon.
// Values outside [0,100] are clamped; NaN counts as 0.
func Bucketize(confidence float64) (level, icon string) {
	c := clamp(confidence, 0, 100)
	band := SeverityBands[0]
	for _, b := range SeverityBands[1:] {
		if c >= b.LowerBound {
			band = b
		}
	}
	return band.Level, band.Icon
}

// ConfidencePercent scales a probability to a percentage rounded half-up to
// two decimal places. The probability is clamped to [0,1] first.
func ConfidencePercent(probability float64) float64 {
	p := clamp(probability, 0, 1)
	return decimal.NewFromFloat(p).Shift(2).Round(2).InexactFloat64()
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v), v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
