package aggregate

import "github.com/insurance-market/dashboard/internal/market"

// OtherColor paints the folded remainder in every chart.
const OtherColor = "#1e1e1e"

var (
	ramoPalette = []string{
		"#1e40af", "#3b82f6", "#0891b2", "#6366f1", "#8b5cf6",
		"#f59e0b", "#10b981", "#f97316", "#ec4899", "#64748b",
	}
	subramoPalette = []string{
		"#ef4444", "#3b82f6", "#22c55e", "#f59e0b", "#8b5cf6",
		"#06b6d4", "#f97316", "#64748b", "#14b8a6", "#e11d48",
	}
)

// Palette returns the color cycle for g.
func Palette(g market.Granularity) []string {
	if g == market.BySubramo {
		return subramoPalette
	}
	return ramoPalette
}

// ColorAt returns the palette color for a zero-based rank.
func ColorAt(g market.Granularity, rank int) string {
	p := Palette(g)
	return p[rank%len(p)]
}

// OtherLabel is the legend caption of the remainder bucket.
func OtherLabel(g market.Granularity) string {
	if g == market.BySubramo {
		return "Otros Subramos"
	}
	return "Otros Ramos"
}

// MissingLabel replaces an absent category name.
func MissingLabel(g market.Granularity) string {
	if g == market.BySubramo {
		return "Sin subramo"
	}
	return "Sin ramo"
}
