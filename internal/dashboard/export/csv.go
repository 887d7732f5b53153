package export

import (
	"encoding/csv"
	"io"

	"github.com/insurance-market/dashboard/internal/market"
	"github.com/insurance-market/dashboard/internal/market/aggregate"
)

// WriteKPICSV serialises the market KPIs to a Métrica/Valor CSV.
func WriteKPICSV(w io.Writer, kpis market.KPIs, period, viewMode string) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Métrica", "Valor"}); err != nil {
		return err
	}
	records := [][]string{{"Período", period}, {"Vista", viewMode}}
	for _, m := range kpiMetrics(kpis) {
		records = append(records, []string{m.label, m.value})
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteRankingCSV emits one row per company with its production per
// visible category, in millions.
func WriteRankingCSV(w io.Writer, chart aggregate.BarChart) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write(rankingHeader(chart)); err != nil {
		return err
	}
	cols := columns(chart)
	for _, row := range chart.Rows {
		record := make([]string, 0, len(cols)+2)
		record = append(record, row.FullName)
		for _, key := range cols {
			record = append(record, formatFloat(row.Value(key, chart.OtherLabel)))
		}
		record = append(record, formatFloat(row.Total))
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteDistributionCSV prints the donut slices.
func WriteDistributionCSV(w io.Writer, slices []aggregate.Slice) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Categoría", "Millones", "Porcentaje"}); err != nil {
		return err
	}
	for _, s := range slices {
		if err := writer.Write([]string{s.Label, formatFloat(s.Value), formatFloat(s.Percentage)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
