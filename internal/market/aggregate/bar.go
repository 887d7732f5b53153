package aggregate

import (
	"github.com/insurance-market/dashboard/internal/format"
	"github.com/insurance-market/dashboard/internal/market"
)

const (
	companyLabelLen = 14
	unit            = 1_000_000.0
)

// BarRow is one company stack, expressed in millions.
type BarRow struct {
	Company  string
	FullName string
	Values   map[string]float64
	Other    float64
	HasOther bool
	Total    float64
}

// Value returns the stacked amount for key, including the Other bucket.
func (r BarRow) Value(key, otherLabel string) float64 {
	if key == otherLabel {
		return r.Other
	}
	return r.Values[key]
}

// BarChart is the stacked bar input: one row per company, largest first.
type BarChart struct {
	Granularity market.Granularity
	Rows        []BarRow
	// Visible holds the top categories, largest first.
	Visible []string
	// Keys is the stacking and legend order: Other first, then the visible
	// categories from smallest to largest.
	Keys       []string
	Colors     map[string]string
	OtherLabel string
}

// HasOther reports whether any company carries production outside the
// visible categories.
func (c BarChart) HasOther() bool {
	for _, r := range c.Rows {
		if r.HasOther {
			return true
		}
	}
	return false
}

// BuildBarChart stacks ranking records per company, keeping at most k
// market-wide categories and folding the rest into the Other bucket.
func BuildBarChart(records []market.RankingRecord, g market.Granularity, k int) BarChart {
	chart := BarChart{
		Granularity: g,
		Rows:        []BarRow{},
		Visible:     []string{},
		Keys:        []string{},
		Colors:      map[string]string{},
		OtherLabel:  OtherLabel(g),
	}
	if len(records) == 0 {
		return chart
	}

	category := func(r market.RankingRecord) string {
		if c := r.Category(g); c != nil && *c != "" {
			return *c
		}
		return MissingLabel(g)
	}
	amount := func(r market.RankingRecord) float64 { return r.Amount }

	categories := Rank(records, category, amount, k)
	companies := Rank(records, func(r market.RankingRecord) string { return r.Company }, amount, 0)

	for i, b := range categories.Visible {
		chart.Visible = append(chart.Visible, b.Key)
		chart.Colors[b.Key] = ColorAt(g, i)
	}

	for _, c := range companies.Visible {
		perCategory := Rank(c.Items, category, amount, 0)
		row := BarRow{
			Company:  format.Truncate(c.Key, companyLabelLen),
			FullName: c.Key,
			Values:   make(map[string]float64, len(chart.Visible)),
			Total:    c.Total / unit,
		}
		for _, name := range chart.Visible {
			row.Values[name] = 0
		}
		var other float64
		for _, b := range perCategory.Visible {
			if categories.IsVisible(b.Key) {
				row.Values[b.Key] = b.Total / unit
				continue
			}
			other += b.Total
		}
		if other > 0 {
			row.Other = other / unit
			row.HasOther = true
		}
		chart.Rows = append(chart.Rows, row)
	}

	if chart.HasOther() {
		chart.Keys = append(chart.Keys, chart.OtherLabel)
		chart.Colors[chart.OtherLabel] = OtherColor
	}
	for i := len(chart.Visible) - 1; i >= 0; i-- {
		chart.Keys = append(chart.Keys, chart.Visible[i])
	}
	return chart
}
