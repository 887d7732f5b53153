package ui

import (
	"html/template"
	"time"

	"github.com/insurance-market/dashboard/internal/dashboard/svg"
	"github.com/insurance-market/dashboard/internal/market/aggregate"
	"github.com/insurance-market/dashboard/internal/market/filters"
)

// NoData is shown inside any section that failed or came back empty.
const NoData = "No hay datos disponibles"

// Option is one entry of a filter dropdown or toggle.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// FilterBar holds the filter controls in display order.
type FilterBar struct {
	Years     []Option
	Quarters  []Option
	Ramos     []Option
	ViewModes []Option
	TopN      []Option
}

// Header is the page banner.
type Header struct {
	Title               string
	Subtitle            string
	Period              string
	ViewModeLabel       string
	ViewModeDescription string
	Ramo                string
}

// KPICard is one headline metric. Accent is a CSS modifier, empty for the
// neutral cards.
type KPICard struct {
	Key     string
	Label   string
	Value   string
	Accent  string
	Missing bool
}

// LegendEntry pairs a legend caption with its swatch color.
type LegendEntry struct {
	Label  string
	Color  string
	Detail string
}

// ChartCard is a rendered chart section.
type ChartCard struct {
	Title  string
	SVG    template.HTML
	Legend []LegendEntry
	Empty  bool
	Failed bool
}

// Links are the footer hrefs, each carrying the current selection.
type Links struct {
	Charts template.URL
	CSV    template.URL
	XLSX   template.URL
	PDF    template.URL
}

// DashboardViewModel combines all dashboard data for rendering.
type DashboardViewModel struct {
	Selection filters.Selection
	Header  Header
	Filters FilterBar
	KPIs    []KPICard
	Ratios  []KPICard
	Bar     ChartCard
	Donut   ChartCard
	Links       Links
	Ready       bool
	GeneratedAt time.Time
}

// StackedRenderer abstracts SVG stacked bar rendering for the dashboard.
type StackedRenderer interface {
	StackedBars(width, height int, chart aggregate.BarChart, opts svg.StackOpts) (template.HTML, error)
}

// DonutRenderer abstracts SVG donut rendering for the dashboard.
type DonutRenderer interface {
	Donut(size int, slices []aggregate.Slice, opts svg.DonutOpts) (template.HTML, error)
}
