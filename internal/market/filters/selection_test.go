package filters

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurance-market/dashboard/internal/market"
)

var opts = market.FilterOptions{
	Years:    []string{"2024", "2023"},
	Quarters: []string{"01", "02", "03", "04"},
	Ramos:    []string{"Automotores", "Incendio", "Vida"},
}

func TestDefaultIsNotReady(t *testing.T) {
	sel := Default()
	assert.Equal(t, market.ViewAccumulated, sel.ViewMode)
	assert.Equal(t, 15, sel.TopN)
	assert.False(t, sel.Ready())
	assert.Equal(t, market.ByRamo, sel.Granularity())
}

func TestInitializeKeepsChosenValues(t *testing.T) {
	sel := Default().Initialize(opts)
	assert.Equal(t, "2024", sel.Year)
	assert.Equal(t, "01", sel.Quarter)
	assert.True(t, sel.Ready())

	chosen := Default().WithYear("2023").WithQuarter("03").Initialize(opts)
	assert.Equal(t, "2023", chosen.Year)
	assert.Equal(t, "03", chosen.Quarter)

	empty := Default().Initialize(market.FilterOptions{})
	assert.False(t, empty.Ready())
}

func TestWithMethodsReturnCopies(t *testing.T) {
	base := Default().Initialize(opts)
	filtered := base.WithRamo("Vida")

	assert.False(t, base.CategoryFilterActive())
	assert.True(t, filtered.CategoryFilterActive())
	assert.Equal(t, market.BySubramo, filtered.Granularity())
	assert.Equal(t, market.ByRamo, filtered.WithRamo("").Granularity())
}

func TestQueries(t *testing.T) {
	sel := Default().Initialize(opts).WithRamo("Vida").WithViewMode(market.ViewCurrent).WithTopN(50)
	assert.Equal(t, market.Query{Year: "2024", Quarter: "01", Ramo: "Vida", ViewMode: market.ViewCurrent}, sel.Query())
	assert.Equal(t, 50, sel.RankingQuery().TopN)
}

func TestKeyIsDeterministicPerScope(t *testing.T) {
	a := Default().Initialize(opts)
	b := Default().WithQuarter("01").WithYear("2024")

	assert.Equal(t, a.Key(ScopeKPIs), b.Key(ScopeKPIs))
	assert.NotEqual(t, a.Key(ScopeKPIs), a.Key(ScopeDistribution))

	// top_n only matters to the ranking.
	assert.Equal(t, a.Key(ScopeKPIs), a.WithTopN(50).Key(ScopeKPIs))
	assert.NotEqual(t, a.Key(ScopeRanking), a.WithTopN(50).Key(ScopeRanking))

	// separators inside values cannot collide with field boundaries.
	assert.NotEqual(t, a.WithRamo("a|b").Key(ScopeKPIs), a.WithRamo("a").Key(ScopeKPIs))
}

func TestFromQuery(t *testing.T) {
	sel, err := FromQuery(url.Values{
		"year":      {"2023"},
		"quarter":   {"04"},
		"ramo":      {"Incendio"},
		"view_mode": {"current"},
		"top_n":     {"20"},
	}, opts)
	require.NoError(t, err)
	assert.Equal(t, Selection{Year: "2023", Quarter: "04", Ramo: "Incendio", ViewMode: market.ViewCurrent, TopN: 20}, sel)

	roundTrip, err := FromQuery(sel.Values(), opts)
	require.NoError(t, err)
	assert.Equal(t, sel, roundTrip)
}

func TestFromQueryDefaults(t *testing.T) {
	sel, err := FromQuery(url.Values{}, opts)
	require.NoError(t, err)
	assert.Equal(t, Selection{Year: "2024", Quarter: "01", ViewMode: market.ViewAccumulated, TopN: 15}, sel)
}

func TestFromQueryRejectsInvalidValues(t *testing.T) {
	_, err := FromQuery(url.Values{
		"quarter":   {"05"},
		"view_mode": {"weekly"},
		"top_n":     {"7"},
		"ramo":      {"Caución"},
	}, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSelection))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	assert.Equal(t, map[string]bool{"quarter": true, "view_mode": true, "top_n": true, "ramo": true}, fields)
}

func TestFromQueryRejectsNonNumericTopN(t *testing.T) {
	_, err := FromQuery(url.Values{"top_n": {"ten"}}, opts)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "top_n", verr.Fields[0].Field)
}
