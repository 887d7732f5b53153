// Package echarts builds the interactive version of the dashboard charts.
package echarts

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/insurance-market/dashboard/internal/market/aggregate"
)

const (
	chartWidth  = "1100px"
	chartHeight = "520px"
	textColor   = "#475569"
)

// Meta carries the captions shown above each chart.
type Meta struct {
	PageTitle  string
	Period     string
	ViewMode   string
	DonutTitle string
}

// BuildPage assembles the stacked bar and the donut into one page. Charts
// with no data are left out.
func BuildPage(bar aggregate.BarChart, slices []aggregate.Slice, meta Meta) *components.Page {
	page := components.NewPage()
	page.PageTitle = meta.PageTitle
	if len(bar.Rows) > 0 {
		page.AddCharts(buildBar(bar, meta))
	}
	if len(slices) > 0 {
		page.AddCharts(buildPie(slices, meta))
	}
	return page
}

// Render writes the page HTML to w.
func Render(w io.Writer, bar aggregate.BarChart, slices []aggregate.Slice, meta Meta) error {
	return BuildPage(bar, slices, meta).Render(w)
}

func buildBar(chart aggregate.BarChart, meta Meta) *charts.Bar {
	companies := make([]string, 0, len(chart.Rows))
	for _, row := range chart.Rows {
		companies = append(companies, row.Company)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:      "TOTAL DEL MERCADO",
			Subtitle:   meta.Period + " · " + meta.ViewMode,
			TitleStyle: &opts.TextStyle{Color: "#0f172a"},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{
			Show:      opts.Bool(true),
			Right:     "10",
			Orient:    "vertical",
			Type:      "scroll",
			TextStyle: &opts.TextStyle{Color: textColor},
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Millones $"}),
		charts.WithGridOpts(opts.Grid{Left: "70", Right: "170", Bottom: "100"}),
	)
	bar.SetXAxis(companies)

	for _, key := range chart.Keys {
		data := make([]opts.BarData, 0, len(chart.Rows))
		for _, row := range chart.Rows {
			data = append(data, opts.BarData{Name: row.FullName, Value: row.Value(key, chart.OtherLabel)})
		}
		bar.AddSeries(key, data,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: chart.Colors[key]}),
			charts.WithBarChartOpts(opts.BarChart{Stack: "total"}),
		)
	}
	return bar
}

func buildPie(slices []aggregate.Slice, meta Meta) *charts.Pie {
	data := make([]opts.PieData, 0, len(slices))
	for _, s := range slices {
		data = append(data, opts.PieData{
			Name:      s.Label,
			Value:     s.Value,
			ItemStyle: &opts.ItemStyle{Color: s.Color},
		})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:      meta.DonutTitle,
			Subtitle:   meta.Period,
			TitleStyle: &opts.TextStyle{Color: "#0f172a"},
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "item",
			Formatter: "{b}: {c} M ({d}%)",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show:      opts.Bool(true),
			Right:     "10",
			Orient:    "vertical",
			Type:      "scroll",
			TextStyle: &opts.TextStyle{Color: textColor},
		}),
	)
	pie.AddSeries(meta.DonutTitle, data).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{d}%"}),
			charts.WithPieChartOpts(opts.PieChart{
				Radius: []string{"40%", "75%"},
				Center: []string{"40%", "55%"},
			}),
		)
	return pie
}
