package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	sheetKPIs         = "KPIs"
	sheetRanking      = "Ranking"
	sheetDistribution = "Distribucion"
)

// WriteXLSX writes the report as a workbook with one sheet per dashboard
// section.
func WriteXLSX(w io.Writer, report Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetKPIs); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#0F172A"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}

	rows := [][]any{
		{"Métrica", "Valor"},
		{"Período", report.Period},
		{"Vista", report.ViewMode},
	}
	if report.Ramo != "" {
		rows = append(rows, []any{"Ramo", report.Ramo})
	}
	if report.KPIs != nil {
		k := report.KPIs
		rows = append(rows,
			[]any{"Entidades con Emisión", k.EntitiesCount},
			[]any{"Total de Producción", k.PrimasEmitidas},
			[]any{"Primas Devengadas", k.PrimasDevengadas},
			[]any{"Total Gastos", k.GastosDevengados},
			[]any{"Siniestros Devengados", k.SiniestrosDevengados},
			[]any{"Resultado Técnico", k.ResultadoTecnico()},
			[]any{"Siniestralidad %", k.LossRatio()},
			[]any{"Gastos %", k.ExpenseRatio()},
			[]any{"Ratio Combinado %", k.CombinedRatio()},
		)
	}
	if err := writeRows(f, sheetKPIs, rows, headerStyle); err != nil {
		return err
	}

	if _, err := f.NewSheet(sheetRanking); err != nil {
		return fmt.Errorf("export: add sheet: %w", err)
	}
	header := rankingHeader(report.Bar)
	rows = [][]any{toAny(header)}
	cols := columns(report.Bar)
	for _, row := range report.Bar.Rows {
		record := []any{row.FullName}
		for _, key := range cols {
			record = append(record, row.Value(key, report.Bar.OtherLabel))
		}
		rows = append(rows, append(record, row.Total))
	}
	if err := writeRows(f, sheetRanking, rows, headerStyle); err != nil {
		return err
	}

	if _, err := f.NewSheet(sheetDistribution); err != nil {
		return fmt.Errorf("export: add sheet: %w", err)
	}
	rows = [][]any{{report.DonutTitle, "Millones", "Porcentaje"}}
	for _, s := range report.Slices {
		rows = append(rows, []any{s.Label, s.Value, s.Percentage})
	}
	if err := writeRows(f, sheetDistribution, rows, headerStyle); err != nil {
		return err
	}

	_ = f.SetColWidth(sheetKPIs, "A", "A", 28)
	_ = f.SetColWidth(sheetRanking, "A", "A", 32)
	_ = f.SetColWidth(sheetDistribution, "A", "A", 28)
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	end, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", end, headerStyle)
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
