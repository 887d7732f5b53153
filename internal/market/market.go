// Package market holds the insurance production domain model shared by the
// API client, the aggregation routines and the dashboard.
package market

// ViewMode selects between year-to-date and single-quarter figures.
type ViewMode string

const (
	ViewAccumulated ViewMode = "accumulated"
	ViewCurrent     ViewMode = "current"
)

// Valid reports whether m is one of the supported view modes.
func (m ViewMode) Valid() bool {
	return m == ViewAccumulated || m == ViewCurrent
}

// Label returns the Spanish caption shown on the view-mode toggle.
func (m ViewMode) Label() string {
	switch m {
	case ViewCurrent:
		return "Corriente"
	default:
		return "Acumulado"
	}
}

// Description returns the tooltip text for the view mode.
func (m ViewMode) Description() string {
	switch m {
	case ViewCurrent:
		return "Datos del período actual"
	default:
		return "Datos acumulados desde inicio del ejercicio"
	}
}

// ViewModes lists the toggle options in display order.
var ViewModes = []ViewMode{ViewAccumulated, ViewCurrent}

// Granularity is the level at which charts group production.
type Granularity string

const (
	ByRamo    Granularity = "ramo"
	BySubramo Granularity = "subramo"
)

// Plural is the upper-case section title used by the donut chart.
func (g Granularity) Plural() string {
	if g == BySubramo {
		return "SUBRAMOS"
	}
	return "RAMOS"
}

// TopNOptions are the ranking sizes offered to the user.
var TopNOptions = []int{10, 15, 20, 50}

// DefaultTopN is the ranking size used before the user picks one.
const DefaultTopN = 15

// RankingRecord is one company/category production row.
type RankingRecord struct {
	Company string  `json:"nombre_corto"`
	Ramo    *string `json:"ramo_nombre_corto"`
	Subramo *string `json:"subramo_nombre_corto"`
	Amount  float64 `json:"primas_emitidas"`
}

// Category returns the label the record contributes to at granularity g.
func (r RankingRecord) Category(g Granularity) *string {
	if g == BySubramo {
		return r.Subramo
	}
	return r.Ramo
}

// CompanyRanking is the payload of the ranking endpoint.
type CompanyRanking struct {
	Companies []RankingRecord `json:"companies"`
	Total     int             `json:"total"`
}

// DistributionItem is one category share of the market.
type DistributionItem struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// Distribution is the payload of the distribution endpoints.
type Distribution struct {
	Items []DistributionItem `json:"items"`
	Total float64            `json:"total"`
}

// FilterOptions are the values the backend offers for each filter.
type FilterOptions struct {
	Years     []string `json:"years"`
	Quarters  []string `json:"quarters"`
	Ramos     []string `json:"ramos"`
	Companies []string `json:"companies,omitempty"`
}

// Health is the backend liveness payload.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// StrPtr is a convenience for building optional labels.
func StrPtr(s string) *string { return &s }

// Query is the parameter set shared by every data endpoint. Ramo is empty
// when no category filter applies; TopN is only read by the ranking.
type Query struct {
	Year     string
	Quarter  string
	Ramo     string
	ViewMode ViewMode
	TopN     int
}
