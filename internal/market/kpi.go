package market

import "math"

// KPIs are the market totals for a selection.
type KPIs struct {
	PrimasEmitidas       float64 `json:"primas_emitidas"`
	PrimasDevengadas     float64 `json:"primas_devengadas"`
	SiniestrosDevengados float64 `json:"siniestros_devengados"`
	GastosDevengados     float64 `json:"gastos_devengados"`
	EntitiesCount        int     `json:"entities_count"`
}

// ResultadoTecnico is earned premiums minus earned claims and expenses.
func (k KPIs) ResultadoTecnico() float64 {
	return k.PrimasDevengadas - k.SiniestrosDevengados - k.GastosDevengados
}

// LossRatio is claims over earned premiums, in percent.
func (k KPIs) LossRatio() float64 {
	return ratio(k.SiniestrosDevengados, k.PrimasDevengadas)
}

// ExpenseRatio is expenses over earned premiums, in percent.
func (k KPIs) ExpenseRatio() float64 {
	return ratio(k.GastosDevengados, k.PrimasDevengadas)
}

// CombinedRatio adds the loss and expense ratios.
func (k KPIs) CombinedRatio() float64 {
	return k.LossRatio() + k.ExpenseRatio()
}

// ratio returns num/den*100 rounded to two decimals; zero when den is zero.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return math.Round(num/den*100*100) / 100
}
