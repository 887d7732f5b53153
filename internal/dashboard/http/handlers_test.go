package dashboardhttp

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurance-market/dashboard/internal/dashboard"
	"github.com/insurance-market/dashboard/internal/dashboard/export"
	"github.com/insurance-market/dashboard/internal/dashboard/svg"
	"github.com/insurance-market/dashboard/internal/market"
	"github.com/insurance-market/dashboard/internal/market/aggregate"
	"github.com/insurance-market/dashboard/internal/market/filters"
	"github.com/insurance-market/dashboard/internal/view"
)

type stubService struct {
	options      market.FilterOptions
	optionsErr   error
	kpis         market.KPIs
	kpiErr       error
	ranking      market.CompanyRanking
	rankingErr   error
	distribution market.Distribution
	last         filters.Selection
}

func (s *stubService) Filters(ctx context.Context) (market.FilterOptions, error) {
	return s.options, s.optionsErr
}

func (s *stubService) Load(ctx context.Context, sel filters.Selection) dashboard.Snapshot {
	s.last = sel
	snap := dashboard.Snapshot{
		Selection:    sel,
		KPIs:         dashboard.Section[market.KPIs]{Key: sel.Key(filters.ScopeKPIs)},
		Ranking:      dashboard.Section[market.CompanyRanking]{Key: sel.Key(filters.ScopeRanking)},
		Distribution: dashboard.Section[market.Distribution]{Key: sel.Key(filters.ScopeDistribution)},
	}
	if !sel.Ready() {
		snap.KPIs.Idle, snap.Ranking.Idle, snap.Distribution.Idle = true, true, true
		return snap
	}
	snap.KPIs.Data, snap.KPIs.Err = s.kpis, s.kpiErr
	snap.Ranking.Data, snap.Ranking.Err = s.ranking, s.rankingErr
	snap.Distribution.Data = s.distribution
	return snap
}

type stubUpstream struct {
	health market.Health
	err    error
}

func (s stubUpstream) Health(ctx context.Context) (market.Health, error) {
	return s.health, s.err
}

type stubPDF struct {
	enabled bool
	last    export.Report
}

func (s *stubPDF) Enabled() bool { return s.enabled }

func (s *stubPDF) Render(ctx context.Context, report export.Report) ([]byte, error) {
	s.last = report
	return []byte("%PDF-1.4\n"), nil
}

type stackedAdapter func(width, height int, chart aggregate.BarChart, opts svg.StackOpts) (template.HTML, error)

type donutAdapter func(size int, slices []aggregate.Slice, opts svg.DonutOpts) (template.HTML, error)

func (a stackedAdapter) StackedBars(width, height int, chart aggregate.BarChart, opts svg.StackOpts) (template.HTML, error) {
	return a(width, height, chart, opts)
}

func (a donutAdapter) Donut(size int, slices []aggregate.Slice, opts svg.DonutOpts) (template.HTML, error) {
	return a(size, slices, opts)
}

func newStubService() *stubService {
	return &stubService{
		options: market.FilterOptions{
			Years:    []string{"2024", "2023"},
			Quarters: market.QuarterCodes,
			Ramos:    []string{"Automotores", "Vida"},
		},
		kpis: market.KPIs{
			PrimasEmitidas:       1e12,
			PrimasDevengadas:     50_000_000,
			SiniestrosDevengados: 40_000_000,
			GastosDevengados:     20_000_000,
			EntitiesCount:        42,
		},
		ranking: market.CompanyRanking{
			Companies: []market.RankingRecord{
				{Company: "FEDERACION PATRONAL", Ramo: market.StrPtr("Automotores"), Amount: 30e6},
				{Company: "SANCOR", Ramo: market.StrPtr("Vida"), Amount: 20e6},
			},
			Total: 2,
		},
		distribution: market.Distribution{
			Items: []market.DistributionItem{
				{Name: "Automotores", Value: 30e6, Percentage: 60},
				{Name: "Vida", Value: 20e6, Percentage: 40},
			},
			Total: 50e6,
		},
	}
}

func newTestHandler(t *testing.T, service *stubService) *Handler {
	t.Helper()
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	handler := NewHandler(nil, service, stubUpstream{health: market.Health{Status: "ok", Version: "1.0.0"}}, templates, stackedAdapter(svg.StackedBars), donutAdapter(svg.Donut), &stubPDF{})
	handler.WithNow(func() time.Time { return time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC) })
	return handler
}

func TestDashboardSuccess(t *testing.T) {
	handler := newTestHandler(t, newStubService())
	req := httptest.NewRequest(http.MethodGet, "/?year=2024&quarter=03", nil)
	rr := httptest.NewRecorder()
	handler.HandleDashboardForTest(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Mercado Asegurador Argentino")
	assert.Contains(t, body, "2024 - Q1")
	assert.Contains(t, body, "TOTAL DEL MERCADO")
	assert.Contains(t, body, "RAMOS")
	assert.Contains(t, body, "$ 1.0 B")
	assert.Contains(t, body, "kpi--rose")
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, "02/05/2024 10:30")
	assert.NotContains(t, body, "No hay datos disponibles")
}

var footerLink = regexp.MustCompile(`href="(/dashboard/(?:charts|export\.csv|export\.xlsx|export\.pdf)[^"]*)"`)

func TestDashboardLinksKeepSelection(t *testing.T) {
	service := newStubService()
	handler := newTestHandler(t, service)
	rr := httptest.NewRecorder()
	handler.HandleDashboardForTest(rr, httptest.NewRequest(http.MethodGet, "/?year=2023&quarter=03&ramo=Vida&view_mode=current", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	matches := footerLink.FindAllStringSubmatch(rr.Body.String(), -1)
	require.Len(t, matches, 4)
	for _, m := range matches {
		link, err := url.Parse(html.UnescapeString(m[1]))
		require.NoError(t, err)
		sel, err := filters.FromQuery(link.Query(), service.options)
		require.NoError(t, err, link.String())
		assert.Equal(t, "2023", sel.Year, link.String())
		assert.Equal(t, "03", sel.Quarter, link.String())
		assert.Equal(t, "Vida", sel.Ramo, link.String())
		assert.Equal(t, market.ViewCurrent, sel.ViewMode, link.String())
	}
}

func TestDashboardDefaultsToFirstOption(t *testing.T) {
	service := newStubService()
	handler := newTestHandler(t, service)
	rr := httptest.NewRecorder()
	handler.HandleDashboardForTest(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2024", service.last.Year)
	assert.Equal(t, "01", service.last.Quarter)
}

func TestDashboardSectionFailureIsIsolated(t *testing.T) {
	service := newStubService()
	service.rankingErr = errors.New("ranking timeout")
	handler := newTestHandler(t, service)
	rr := httptest.NewRecorder()
	handler.HandleDashboardForTest(rr, httptest.NewRequest(http.MethodGet, "/?year=2024&quarter=03", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Equal(t, 1, strings.Count(body, "No hay datos disponibles"))
	assert.Contains(t, body, "$ 1.0 B")
}

func TestDashboardWithoutFilterOptions(t *testing.T) {
	service := newStubService()
	service.optionsErr = errors.New("backend down")
	handler := newTestHandler(t, service)
	rr := httptest.NewRecorder()
	handler.HandleDashboardForTest(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Todos los períodos")
	assert.Contains(t, body, "—")
	assert.Equal(t, 2, strings.Count(body, "No hay datos disponibles"))
}

func TestInvalidFilterReturnsBadRequest(t *testing.T) {
	handler := newTestHandler(t, newStubService())
	rr := httptest.NewRecorder()
	handler.HandleDashboardForTest(rr, httptest.NewRequest(http.MethodGet, "/?quarter=07", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCSVExport(t *testing.T) {
	handler := newTestHandler(t, newStubService())
	rr := httptest.NewRecorder()
	handler.HandleCSVForTest(rr, httptest.NewRequest(http.MethodGet, "/dashboard/export.csv?year=2024&quarter=03", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "produccion-2024-03-accumulated.csv")
	body := rr.Body.String()
	assert.Contains(t, body, "Métrica,Valor")
	assert.Contains(t, body, "FEDERACION PATRONAL,30.00,0.00,30.00")
	assert.Contains(t, body, "Vida,20.00,40.00")
}

func TestCSVExportSkipsFailedKPIs(t *testing.T) {
	service := newStubService()
	service.kpiErr = errors.New("boom")
	handler := newTestHandler(t, service)
	rr := httptest.NewRecorder()
	handler.HandleCSVForTest(rr, httptest.NewRequest(http.MethodGet, "/dashboard/export.csv?year=2024&quarter=03", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "Métrica,Valor")
	assert.Contains(t, rr.Body.String(), "Compañía")
}

func TestDataJSON(t *testing.T) {
	service := newStubService()
	service.kpiErr = errors.New("kpis unavailable")
	handler := newTestHandler(t, service)
	rr := httptest.NewRecorder()
	handler.HandleDataForTest(rr, httptest.NewRequest(http.MethodGet, "/dashboard/data.json?year=2024&quarter=03&ramo=Vida", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var payload struct {
		Selection struct {
			Ramo   string `json:"ramo"`
			Period string `json:"period"`
		} `json:"selection"`
		KPIs *json.RawMessage `json:"kpis"`
		Bar  struct {
			Granularity string   `json:"granularity"`
			Keys        []string `json:"keys"`
		} `json:"bar"`
		Donut  []map[string]any  `json:"donut"`
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, "Vida", payload.Selection.Ramo)
	assert.Equal(t, "2024 - Q1", payload.Selection.Period)
	assert.Nil(t, payload.KPIs)
	assert.Equal(t, "subramo", payload.Bar.Granularity)
	assert.Equal(t, []string{"Sin subramo"}, payload.Bar.Keys)
	assert.Len(t, payload.Donut, 2)
	assert.Equal(t, map[string]string{"kpis": "kpis unavailable"}, payload.Errors)
}

func TestDataJSONInvalidSelection(t *testing.T) {
	handler := newTestHandler(t, newStubService())
	rr := httptest.NewRecorder()
	handler.HandleDataForTest(rr, httptest.NewRequest(http.MethodGet, "/dashboard/data.json?top_n=3", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "top_n")
}

func TestRoutes(t *testing.T) {
	pdf := &stubPDF{enabled: true}
	handler := newTestHandler(t, newStubService())
	handler.pdf = pdf
	router := chi.NewRouter()
	handler.MountRoutes(router)

	cases := []struct {
		path        string
		status      int
		contentType string
	}{
		{"/dashboard/charts?year=2024&quarter=03", http.StatusOK, "text/html; charset=utf-8"},
		{"/dashboard/export.xlsx?year=2024&quarter=03", http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"/dashboard/export.pdf?year=2024&quarter=03", http.StatusOK, "application/pdf"},
		{"/healthz/upstream", http.StatusOK, "application/json"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
		assert.Equal(t, tc.status, rr.Code, tc.path)
		assert.Equal(t, tc.contentType, rr.Header().Get("Content-Type"), tc.path)
	}
	assert.Equal(t, "RAMOS", pdf.last.DonutTitle)
	assert.Equal(t, "2024 - Q1", pdf.last.Period)
}

func TestPDFDisabled(t *testing.T) {
	handler := newTestHandler(t, newStubService())
	router := chi.NewRouter()
	handler.MountRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard/export.pdf", nil))
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestUpstreamHealthFailure(t *testing.T) {
	handler := newTestHandler(t, newStubService())
	handler.upstream = stubUpstream{err: errors.New("connection refused")}
	router := chi.NewRouter()
	handler.MountRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz/upstream", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestExportsAreRateLimited(t *testing.T) {
	handler := newTestHandler(t, newStubService())
	router := chi.NewRouter()
	handler.MountRoutes(router)

	var last int
	for i := 0; i < 11; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard/export.csv?year=2024&quarter=03", nil))
		last = rr.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestBarPayloadOtherOnlyWhereFolded(t *testing.T) {
	var records []market.RankingRecord
	for i := 1; i <= 12; i++ {
		records = append(records, market.RankingRecord{Company: "GRANDE", Ramo: market.StrPtr("C" + strconv.Itoa(i)), Amount: float64(i) * 1e6})
	}
	records = append(records, market.RankingRecord{Company: "CHICA", Ramo: market.StrPtr("C12"), Amount: 1e6})
	chart := aggregate.BuildBarChart(records, market.ByRamo, aggregate.MaxCategories)

	payload := newBarPayload(chart)

	require.Len(t, payload.Rows, 2)
	assert.Equal(t, "GRANDE", payload.Rows[0].Company)
	assert.InDelta(t, 3.0, payload.Rows[0].Values["Otros Ramos"], 1e-9)
	assert.Equal(t, "CHICA", payload.Rows[1].Company)
	assert.NotContains(t, payload.Rows[1].Values, "Otros Ramos")
	assert.Contains(t, payload.Rows[1].Values, "C3")
}
