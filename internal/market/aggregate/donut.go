package aggregate

import (
	"strconv"

	"github.com/insurance-market/dashboard/internal/market"
)

// Slice is one donut segment. Value is in millions; Percentage is passed
// through from the backend.
type Slice struct {
	ID         string
	Label      string
	Value      float64
	Percentage float64
	Color      string
	Other      bool
}

// BuildDonutChart keeps the k largest distribution items and appends a
// single Other slice for whatever is left. Items are never merged, even when
// two of them share a name.
func BuildDonutChart(items []market.DistributionItem, g market.Granularity, k int) []Slice {
	slices := []Slice{}
	if len(items) == 0 {
		return slices
	}

	positioned := make([]positionedItem, len(items))
	for i, it := range items {
		positioned[i] = positionedItem{pos: i, item: it}
	}
	ranked := Rank(positioned,
		func(p positionedItem) string { return strconv.Itoa(p.pos) },
		func(p positionedItem) float64 { return p.item.Value },
		k,
	)

	for i, b := range ranked.Visible {
		name := b.Items[0].item.Name
		slices = append(slices, Slice{
			ID:         name,
			Label:      name,
			Value:      b.Total / unit,
			Percentage: percentageOf(b.Items),
			Color:      ColorAt(g, i),
		})
	}
	if len(ranked.Rest) == 0 {
		return slices
	}

	var pct float64
	for _, b := range ranked.Rest {
		pct += percentageOf(b.Items)
	}
	label := OtherLabel(g)
	return append(slices, Slice{
		ID:         label,
		Label:      label,
		Value:      ranked.RestTotal() / unit,
		Percentage: pct,
		Color:      OtherColor,
		Other:      true,
	})
}

type positionedItem struct {
	pos  int
	item market.DistributionItem
}

func percentageOf(items []positionedItem) float64 {
	var sum float64
	for _, p := range items {
		sum += p.item.Percentage
	}
	return sum
}
