// Package ui turns dashboard data into the view models the templates render.
package ui

import (
	"html/template"
	"net/url"
	"strconv"

	"github.com/insurance-market/dashboard/internal/format"
	"github.com/insurance-market/dashboard/internal/market"
	"github.com/insurance-market/dashboard/internal/market/aggregate"
	"github.com/insurance-market/dashboard/internal/market/filters"
)

// Page captions.
const (
	Title        = "Mercado Asegurador Argentino"
	Subtitle     = "Dashboard de Producción"
	BarTitle     = "TOTAL DEL MERCADO"
	AllRamos     = "Todos los ramos"
	accentGood   = "emerald"
	accentBad    = "rose"
	kpiResultado = "resultado_tecnico"
)

// NewHeader builds the banner for sel.
func NewHeader(sel filters.Selection) Header {
	return Header{
		Title:               Title,
		Subtitle:            Subtitle,
		Period:              format.Period(sel.Year, sel.Quarter),
		ViewModeLabel:       sel.ViewMode.Label(),
		ViewModeDescription: sel.ViewMode.Description(),
		Ramo:                sel.Ramo,
	}
}

// NewFilterBar lists the options offered by the backend with sel marked.
// A chosen value missing from opts is still listed so the form round-trips.
func NewFilterBar(opts market.FilterOptions, sel filters.Selection) FilterBar {
	bar := FilterBar{}
	for _, y := range withChosen(opts.Years, sel.Year) {
		bar.Years = append(bar.Years, Option{Value: y, Label: y, Selected: y == sel.Year})
	}
	quarters := opts.Quarters
	if len(quarters) == 0 {
		quarters = market.QuarterCodes
	}
	for _, q := range withChosen(quarters, sel.Quarter) {
		bar.Quarters = append(bar.Quarters, Option{Value: q, Label: format.QuarterOption(q), Selected: q == sel.Quarter})
	}
	bar.Ramos = append(bar.Ramos, Option{Value: "", Label: AllRamos, Selected: sel.Ramo == ""})
	for _, r := range withChosen(opts.Ramos, sel.Ramo) {
		bar.Ramos = append(bar.Ramos, Option{Value: r, Label: r, Selected: r == sel.Ramo})
	}
	for _, m := range market.ViewModes {
		bar.ViewModes = append(bar.ViewModes, Option{Value: string(m), Label: m.Label(), Selected: m == sel.ViewMode})
	}
	for _, n := range market.TopNOptions {
		bar.TopN = append(bar.TopN, Option{Value: strconv.Itoa(n), Label: "Top " + strconv.Itoa(n), Selected: n == sel.TopN})
	}
	return bar
}

func withChosen(values []string, chosen string) []string {
	if chosen == "" {
		return values
	}
	for _, v := range values {
		if v == chosen {
			return values
		}
	}
	return append([]string{chosen}, values...)
}

// NewKPICards renders the six headline cards. A nil k renders every value
// as the placeholder.
func NewKPICards(k *market.KPIs) []KPICard {
	cards := []KPICard{
		{Key: "entities_count", Label: "Entidades con Emisión"},
		{Key: "primas_emitidas", Label: "Total de Producción"},
		{Key: "primas_devengadas", Label: "Primas Devengadas"},
		{Key: "gastos_devengados", Label: "Total Gastos"},
		{Key: "siniestros_devengados", Label: "Siniestros Devengados"},
		{Key: kpiResultado, Label: "Resultado Técnico"},
	}
	if k == nil {
		for i := range cards {
			cards[i].Value = format.Placeholder
			cards[i].Missing = true
		}
		return cards
	}
	resultado := k.ResultadoTecnico()
	cards[0].Value = format.Number(float64(k.EntitiesCount))
	cards[1].Value = format.Currency(k.PrimasEmitidas)
	cards[2].Value = format.Currency(k.PrimasDevengadas)
	cards[3].Value = format.Currency(k.GastosDevengados)
	cards[4].Value = format.Currency(k.SiniestrosDevengados)
	cards[5].Value = format.Currency(resultado)
	cards[5].Accent = accentGood
	if resultado < 0 {
		cards[5].Accent = accentBad
	}
	return cards
}

// NewRatioCards renders the technical ratios shown under the KPI row.
func NewRatioCards(k *market.KPIs) []KPICard {
	if k == nil {
		return nil
	}
	return []KPICard{
		{Key: "siniestralidad", Label: "Siniestralidad", Value: format.Percentage(k.LossRatio(), 1)},
		{Key: "ratio_gastos", Label: "Ratio de Gastos", Value: format.Percentage(k.ExpenseRatio(), 1)},
		{Key: "combined_ratio", Label: "Ratio Combinado", Value: format.Percentage(k.CombinedRatio(), 1)},
	}
}

// BarLegend lists the bar chart keys, largest category first and the
// Other bucket last.
func BarLegend(chart aggregate.BarChart) []LegendEntry {
	entries := make([]LegendEntry, 0, len(chart.Keys))
	for i := len(chart.Keys) - 1; i >= 0; i-- {
		key := chart.Keys[i]
		entries = append(entries, LegendEntry{Label: key, Color: chart.Colors[key]})
	}
	return entries
}

// DonutLegend lists the slices with their amount and share.
func DonutLegend(slices []aggregate.Slice) []LegendEntry {
	entries := make([]LegendEntry, 0, len(slices))
	for _, s := range slices {
		entries = append(entries, LegendEntry{
			Label:  s.Label,
			Color:  s.Color,
			Detail: format.Currency(s.Value*1_000_000) + " · " + format.Percentage(s.Percentage, 1),
		})
	}
	return entries
}

// NewLinks points the chart page and the exports at sel.
func NewLinks(sel filters.Selection) Links {
	query := sel.Values().Encode()
	href := func(path string) template.URL {
		u := url.URL{Path: path, RawQuery: query}
		return template.URL(u.String())
	}
	return Links{
		Charts: href("/dashboard/charts"),
		CSV:    href("/dashboard/export.csv"),
		XLSX:   href("/dashboard/export.xlsx"),
		PDF:    href("/dashboard/export.pdf"),
	}
}
