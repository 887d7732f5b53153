// Package format renders amounts, percentages and fiscal periods the way the
// Argentine insurance statistics are published.
package format

import (
	"fmt"
	"math"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	million  = 1_000_000.0
	trillion = 1_000_000_000_000.0
)

// Placeholder is shown wherever a metric is unavailable.
const Placeholder = "—"

// AllPeriods is the period caption used when no quarter has been chosen.
const AllPeriods = "Todos los períodos"

var printer = message.NewPrinter(language.MustParse("es-AR"))

// Currency formats a peso amount in millions ("$ 1.234 M") or, from one
// billón (10^12) upwards, in billones with one decimal ("$ 1.5 B").
func Currency(value float64) string {
	sign := ""
	if value < 0 {
		sign = "-"
	}
	abs := math.Abs(value)
	if abs >= trillion {
		return fmt.Sprintf("%s$ %.1f B", sign, abs/trillion)
	}
	return fmt.Sprintf("%s$ %s M", sign, grouped(abs/million))
}

// Number formats value with es-AR thousands grouping and no decimals.
func Number(value float64) string {
	if value < 0 {
		return "-" + grouped(-value)
	}
	return grouped(value)
}

// Percentage renders value with a fixed number of decimals. Pass a negative
// decimals value to get the default of one.
func Percentage(value float64, decimals int) string {
	if decimals < 0 {
		decimals = 1
	}
	return fmt.Sprintf("%.*f%%", decimals, value)
}

// Truncate shortens s to at most max runes, replacing the tail with "...".
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	keep := max - 3
	if keep < 0 {
		keep = 0
	}
	runes := []rune(s)
	return string(runes[:keep]) + "..."
}

func grouped(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(v)))
}

