package nutrition

import (
	"math"
	"strconv"
)

// Display fractions for the piece counts recipes commonly use. Presentation
// only; gram resolution always works on the raw float amount.
var vulgarFractions = []struct {
	value float64
	text  string
}{
	{0.5, "½"},
	{1.0 / 3.0, "⅓"},
	{0.25, "¼"},
}

const fractionTolerance = 0.01

// FormatAmount renders an amount for display. Whole numbers drop the
// decimal part, and the common fractions ½, ⅓ and ¼ are shown as vulgar
// fraction characters ("1½" for 1.5).
func FormatAmount(amount float64) string {
	whole, frac := math.Modf(amount)
	if frac < 0 {
		frac = -frac
	}

	prefix := ""
	if whole != 0 || frac < fractionTolerance {
		prefix = strconv.FormatFloat(whole, 'f', -1, 64)
	}
	for _, vf := range vulgarFractions {
		if math.Abs(frac-vf.value) < fractionTolerance {
			if whole == 0 {
				return vf.text
			}
			return prefix + vf.text
		}
	}
	if frac < fractionTolerance {
		return prefix
	}
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
