package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuarterLabel(t *testing.T) {
	assert.Equal(t, "Mar", QuarterLabel("01", QuarterShort))
	assert.Equal(t, "Junio", QuarterLabel("02", QuarterLong))
	assert.Equal(t, "Q1", QuarterLabel("03", QuarterFiscal))
	assert.Equal(t, "Q2", QuarterLabel("04", QuarterFiscal))
	assert.Equal(t, "07", QuarterLabel("07", QuarterLong))
	assert.True(t, ValidQuarter("04"))
	assert.False(t, ValidQuarter("4"))
}

func TestKPIDerivedFigures(t *testing.T) {
	k := KPIs{
		PrimasDevengadas:     1000,
		SiniestrosDevengados: 600,
		GastosDevengados:     333,
	}
	assert.InDelta(t, 67, k.ResultadoTecnico(), 1e-9)
	assert.InDelta(t, 60, k.LossRatio(), 1e-9)
	assert.InDelta(t, 33.3, k.ExpenseRatio(), 1e-9)
	assert.InDelta(t, 93.3, k.CombinedRatio(), 1e-9)

	k.SiniestrosDevengados = 1200
	assert.Less(t, k.ResultadoTecnico(), 0.0)
}

func TestRatiosWithoutEarnedPremiums(t *testing.T) {
	k := KPIs{SiniestrosDevengados: 10, GastosDevengados: 5}
	assert.Zero(t, k.LossRatio())
	assert.Zero(t, k.ExpenseRatio())
	assert.Zero(t, k.CombinedRatio())
}

func TestRecordCategory(t *testing.T) {
	r := RankingRecord{Company: "ACME", Ramo: StrPtr("Autos"), Subramo: nil}
	assert.Equal(t, "Autos", *r.Category(ByRamo))
	assert.Nil(t, r.Category(BySubramo))
}

func TestViewModeLabels(t *testing.T) {
	assert.Equal(t, "Acumulado", ViewAccumulated.Label())
	assert.Equal(t, "Corriente", ViewCurrent.Label())
	assert.Equal(t, "Datos del período actual", ViewCurrent.Description())
	assert.False(t, ViewMode("weekly").Valid())
	assert.Equal(t, "SUBRAMOS", BySubramo.Plural())
}
