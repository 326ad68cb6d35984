// Package estimate turns free-text revenue descriptions into dollar amounts.
package estimate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultRevenue is returned when the text carries no usable number.
const DefaultRevenue = 10_000_000

// revenuePatterns are tried in order and the first match wins. Patterns that
// require a revenue keyword come before the bare amount+unit patterns.
var revenuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$(\d+(?:\.\d+)?)\s*([MBK])\s*(?:ARR|revenue|annually)`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*([MBK])\s*(?:ARR|revenue|annually)`),
	regexp.MustCompile(`(?i)\$(\d+(?:\.\d+)?)\s*(thousand|million|billion|[MBK])\b`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(thousand|million|billion|[MBK])\b`),
}

var bareNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

// rangeSuffix marks a unit letter that starts a range label such as "K-12"
// rather than a magnitude.
var rangeSuffix = regexp.MustCompile(`^-\d`)

// unitScale maps a unit token (first letter, upper case) to its multiplier.
var unitScale = map[byte]float64{
	'K': 1e3,
	'T': 1e3, // thousand
	'M': 1e6,
	'B': 1e9,
}

// NormalizeRevenue converts text such as "$12M ARR", "50M annually" or
// "approximately 3.2 billion" into an amount in dollars. It never fails: a
// lone number in [1, 1000] is read as millions, and anything else yields
// DefaultRevenue. The result is always positive and finite.
func NormalizeRevenue(text string) float64 {
	for _, re := range revenuePatterns {
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			if rangeSuffix.MatchString(text[idx[5]:]) {
				continue
			}
			amount, err := strconv.ParseFloat(text[idx[2]:idx[3]], 64)
			if err != nil {
				continue
			}
			scale, ok := unitScale[strings.ToUpper(text[idx[4]:idx[5]])[0]]
			if !ok {
				continue
			}
			if v := amount * scale; validAmount(v) {
				return v
			}
		}
	}

	if s := bareNumber.FindString(text); s != "" {
		if amount, err := strconv.ParseFloat(s, 64); err == nil && amount >= 1 && amount <= 1000 {
			return amount * 1e6
		}
	}
	return DefaultRevenue
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
