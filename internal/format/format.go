// Package format renders game quantities for text surfaces.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var suffixes = []struct {
	value  float64
	symbol string
}{
	{1e21, "Sx"},
	{1e18, "E"},
	{1e15, "P"},
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// Karma formats an amount with a magnitude suffix and at most one decimal.
// Values from 100 up to 1000 are shown as whole numbers.
func Karma(v float64) string {
	if math.IsNaN(v) {
		return "0"
	}
	for _, s := range suffixes {
		if v >= s.value {
			return trimZero(strconv.FormatFloat(v/s.value, 'f', 1, 64)) + s.symbol
		}
	}
	if v >= 100 {
		return strconv.FormatFloat(math.Floor(v), 'f', 0, 64)
	}
	return trimZero(strconv.FormatFloat(v, 'f', 1, 64))
}

// KPS formats an income rate.
func KPS(v float64) string {
	return Karma(v) + "/s"
}

// Seconds formats a remaining duration such as "1m05s" or "12s".
func Seconds(sec float64) string {
	if sec <= 0 || math.IsNaN(sec) {
		return "0s"
	}
	total := int(math.Ceil(sec))
	if total < 60 {
		return fmt.Sprintf("%ds", total)
	}
	return fmt.Sprintf("%dm%02ds", total/60, total%60)
}

// Bar renders a progress bar of width cells for p in [0, 1].
func Bar(p float64, width int) string {
	p = math.Max(0, math.Min(1, p))
	filled := int(math.Round(p * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}
