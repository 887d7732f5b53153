package dashboardhttp

import (
	"github.com/insurance-market/dashboard/internal/format"
	"github.com/insurance-market/dashboard/internal/market"
	"github.com/insurance-market/dashboard/internal/market/aggregate"
	"github.com/insurance-market/dashboard/internal/market/filters"
)

type selectionPayload struct {
	Year     string `json:"year,omitempty"`
	Quarter  string `json:"quarter,omitempty"`
	Ramo     string `json:"ramo,omitempty"`
	ViewMode string `json:"view_mode"`
	TopN     int    `json:"top_n"`
	Period   string `json:"period"`
}

type kpiPayload struct {
	market.KPIs
	ResultadoTecnico float64 `json:"resultado_tecnico"`
	LossRatio        float64 `json:"loss_ratio"`
	ExpenseRatio     float64 `json:"expense_ratio"`
	CombinedRatio    float64 `json:"combined_ratio"`
}

type barRowPayload struct {
	Company  string             `json:"company"`
	FullName string             `json:"full_name"`
	Values   map[string]float64 `json:"values"`
	Total    float64            `json:"total"`
}

type barPayload struct {
	Granularity string            `json:"granularity"`
	Keys        []string          `json:"keys"`
	Colors      map[string]string `json:"colors"`
	Rows        []barRowPayload   `json:"rows"`
}

type slicePayload struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

type dataPayload struct {
	Selection selectionPayload  `json:"selection"`
	KPIs      *kpiPayload       `json:"kpis"`
	Bar       barPayload        `json:"bar"`
	Donut     []slicePayload    `json:"donut"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// newDataPayload flattens the chart inputs into their JSON shape. Bar row
// values are keyed like the legend, with the Other bucket under its label.
func newDataPayload(data dashboardData) dataPayload {
	snap := data.snapshot
	sel := snap.Selection
	out := dataPayload{
		Selection: selectionPayload{
			Year:     sel.Year,
			Quarter:  sel.Quarter,
			Ramo:     sel.Ramo,
			ViewMode: string(sel.ViewMode),
			TopN:     sel.TopN,
			Period:   format.Period(sel.Year, sel.Quarter),
		},
		Bar:   newBarPayload(data.bar),
		Donut: make([]slicePayload, 0, len(data.slices)),
	}
	if snap.KPIs.OK() {
		k := snap.KPIs.Data
		out.KPIs = &kpiPayload{
			KPIs:             k,
			ResultadoTecnico: k.ResultadoTecnico(),
			LossRatio:        k.LossRatio(),
			ExpenseRatio:     k.ExpenseRatio(),
			CombinedRatio:    k.CombinedRatio(),
		}
	}
	for _, s := range data.slices {
		out.Donut = append(out.Donut, slicePayload{ID: s.ID, Label: s.Label, Value: s.Value, Percentage: s.Percentage, Color: s.Color})
	}

	errs := map[string]string{}
	if snap.KPIs.Err != nil {
		errs[filters.ScopeKPIs] = snap.KPIs.Err.Error()
	}
	if snap.Ranking.Err != nil {
		errs[filters.ScopeRanking] = snap.Ranking.Err.Error()
	}
	if snap.Distribution.Err != nil {
		errs[filters.ScopeDistribution] = snap.Distribution.Err.Error()
	}
	if len(errs) > 0 {
		out.Errors = errs
	}
	return out
}

func newBarPayload(chart aggregate.BarChart) barPayload {
	out := barPayload{
		Granularity: string(chart.Granularity),
		Keys:        chart.Keys,
		Colors:      chart.Colors,
		Rows:        make([]barRowPayload, 0, len(chart.Rows)),
	}
	if out.Keys == nil {
		out.Keys = []string{}
	}
	for _, r := range chart.Rows {
		values := make(map[string]float64, len(chart.Keys))
		for _, key := range chart.Keys {
			if key == chart.OtherLabel && !r.HasOther {
				continue
			}
			values[key] = r.Value(key, chart.OtherLabel)
		}
		out.Rows = append(out.Rows, barRowPayload{Company: r.Company, FullName: r.FullName, Values: values, Total: r.Total})
	}
	return out
}
