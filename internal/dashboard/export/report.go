// Package export serialises a dashboard selection to CSV, XLSX and PDF.
package export

import (
	"strconv"

	"github.com/insurance-market/dashboard/internal/market"
	"github.com/insurance-market/dashboard/internal/market/aggregate"
)

// Report is everything an export needs for one selection. KPIs is nil when
// that section failed to load.
type Report struct {
	Period     string
	ViewMode   string
	Ramo       string
	DonutTitle string
	KPIs       *market.KPIs
	Bar        aggregate.BarChart
	Slices     []aggregate.Slice
}

type metric struct {
	label string
	value string
}

func kpiMetrics(k market.KPIs) []metric {
	return []metric{
		{"Entidades con Emisión", strconv.Itoa(k.EntitiesCount)},
		{"Total de Producción", formatFloat(k.PrimasEmitidas)},
		{"Primas Devengadas", formatFloat(k.PrimasDevengadas)},
		{"Total Gastos", formatFloat(k.GastosDevengados)},
		{"Siniestros Devengados", formatFloat(k.SiniestrosDevengados)},
		{"Resultado Técnico", formatFloat(k.ResultadoTecnico())},
		{"Siniestralidad %", formatFloat(k.LossRatio())},
		{"Gastos %", formatFloat(k.ExpenseRatio())},
		{"Ratio Combinado %", formatFloat(k.CombinedRatio())},
	}
}

// rankingHeader lists the company columns followed by the stack keys,
// largest category first and the Other bucket last.
func rankingHeader(chart aggregate.BarChart) []string {
	header := []string{"Compañía"}
	header = append(header, columns(chart)...)
	return append(header, "Total")
}

func columns(chart aggregate.BarChart) []string {
	cols := append([]string{}, chart.Visible...)
	if chart.HasOther() {
		cols = append(cols, chart.OtherLabel)
	}
	return cols
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
