package dashboardhttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/insurance-market/dashboard/internal/dashboard"
	"github.com/insurance-market/dashboard/internal/dashboard/echarts"
	"github.com/insurance-market/dashboard/internal/dashboard/export"
	"github.com/insurance-market/dashboard/internal/dashboard/svg"
	"github.com/insurance-market/dashboard/internal/dashboard/ui"
	"github.com/insurance-market/dashboard/internal/format"
	"github.com/insurance-market/dashboard/internal/market"
	"github.com/insurance-market/dashboard/internal/market/aggregate"
	"github.com/insurance-market/dashboard/internal/market/filters"
	"github.com/insurance-market/dashboard/internal/platform/httpx"
	"github.com/insurance-market/dashboard/internal/view"
)

const requestTimeout = 25 * time.Second

// DashboardService defines the data contract used by the handler.
type DashboardService interface {
	Filters(ctx context.Context) (market.FilterOptions, error)
	Load(ctx context.Context, sel filters.Selection) dashboard.Snapshot
}

// UpstreamChecker reports the backend liveness.
type UpstreamChecker interface {
	Health(ctx context.Context) (market.Health, error)
}

// PDFService renders a report to PDF bytes.
type PDFService interface {
	Enabled() bool
	Render(ctx context.Context, report export.Report) ([]byte, error)
}

// Handler coordinates HTTP requests for the market dashboard.
type Handler struct {
	logger    *slog.Logger
	service   DashboardService
	upstream  UpstreamChecker
	templates *view.Engine
	stacked   ui.StackedRenderer
	donut     ui.DonutRenderer
	pdf       PDFService
	csvPool   sync.Pool
	now       func() time.Time
}

// NewHandler constructs the dashboard HTTP handler.
func NewHandler(logger *slog.Logger, service DashboardService, upstream UpstreamChecker, templates *view.Engine, stacked ui.StackedRenderer, donut ui.DonutRenderer, pdf PDFService) *Handler {
	h := &Handler{
		logger:    logger,
		service:   service,
		upstream:  upstream,
		templates: templates,
		stacked:   stacked,
		donut:     donut,
		pdf:       pdf,
		now:       time.Now,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	opts, sel, err := h.parseSelection(ctx, r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}

	data := h.loadDashboardData(ctx, sel)
	vm := h.buildViewModel(opts, data)

	viewData := view.TemplateData{
		Title:       ui.Title,
		CurrentPath: r.URL.Path,
		Data:        vm,
	}
	if err := h.templates.Render(w, "pages/dashboard.html", viewData); err != nil {
		h.handleServerError(w, "render template", err)
	}
}

func (h *Handler) handleCharts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	_, sel, err := h.parseSelection(ctx, r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	data := h.loadDashboardData(ctx, sel)

	meta := echarts.Meta{
		PageTitle:  ui.Title + " · " + format.Period(sel.Year, sel.Quarter),
		Period:     format.Period(sel.Year, sel.Quarter),
		ViewMode:   sel.ViewMode.Label(),
		DonutTitle: sel.Granularity().Plural(),
	}
	var buf bytes.Buffer
	if err := echarts.Render(&buf, data.bar, data.slices, meta); err != nil {
		h.handleServerError(w, "render charts", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream charts", err)
	}
}

func (h *Handler) handleData(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	_, sel, err := h.parseSelection(ctx, r)
	if err != nil {
		if errors.Is(err, filters.ErrInvalidSelection) {
			err = fmt.Errorf("%w: %w", httpx.ErrValidation, err)
		} else {
			h.logError("parse filters", err)
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newDataPayload(h.loadDashboardData(ctx, sel)))
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	_, sel, err := h.parseSelection(ctx, r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	report := h.buildReport(h.loadDashboardData(ctx, sel))

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if report.KPIs != nil {
		if err := export.WriteKPICSV(buf, *report.KPIs, report.Period, report.ViewMode); err != nil {
			h.handleServerError(w, "write kpi csv", err)
			return
		}
		buf.WriteString("\n")
	}
	if err := export.WriteRankingCSV(buf, report.Bar); err != nil {
		h.handleServerError(w, "write ranking csv", err)
		return
	}
	buf.WriteString("\n")
	if err := export.WriteDistributionCSV(buf, report.Slices); err != nil {
		h.handleServerError(w, "write distribution csv", err)
		return
	}

	attach(w, "text/csv; charset=utf-8", exportName(sel, "csv"))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handleXLSX(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	_, sel, err := h.parseSelection(ctx, r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	report := h.buildReport(h.loadDashboardData(ctx, sel))

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, report); err != nil {
		h.handleServerError(w, "write xlsx", err)
		return
	}
	attach(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", exportName(sel, "xlsx"))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream xlsx", err)
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil || !h.pdf.Enabled() {
		http.Error(w, "Exportación PDF no disponible", http.StatusNotImplemented)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	_, sel, err := h.parseSelection(ctx, r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	report := h.buildReport(h.loadDashboardData(ctx, sel))

	pdfBytes, err := h.pdf.Render(ctx, report)
	if err != nil {
		h.handleServerError(w, "render pdf", err)
		return
	}
	attach(w, "application/pdf", exportName(sel, "pdf"))
	if _, err := w.Write(pdfBytes); err != nil {
		h.logError("stream pdf", err)
	}
}

func (h *Handler) handleUpstreamHealth(w http.ResponseWriter, r *http.Request) {
	if h.upstream == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Upstream Unavailable", "backend client not configured")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health, err := h.upstream.Health(ctx)
	if err != nil {
		h.logError("upstream health", err)
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrUnavailable, err))
		return
	}
	httpx.JSON(w, http.StatusOK, health)
}

// parseSelection loads the filter options and validates the query string
// against them. A failed options lookup is logged and leaves the selection
// built from the query alone.
func (h *Handler) parseSelection(ctx context.Context, r *http.Request) (market.FilterOptions, filters.Selection, error) {
	opts, err := h.service.Filters(ctx)
	if err != nil {
		h.logError("load filter options", err)
		opts = market.FilterOptions{}
	}
	sel, err := filters.FromQuery(r.URL.Query(), opts)
	if err != nil {
		return opts, filters.Selection{}, err
	}
	return opts, sel, nil
}

type dashboardData struct {
	snapshot dashboard.Snapshot
	bar      aggregate.BarChart
	slices   []aggregate.Slice
}

func (h *Handler) loadDashboardData(ctx context.Context, sel filters.Selection) dashboardData {
	snap := h.service.Load(ctx, sel)
	data := dashboardData{snapshot: snap, bar: aggregate.BuildBarChart(nil, sel.Granularity(), aggregate.MaxCategories), slices: []aggregate.Slice{}}

	h.logSection(filters.ScopeKPIs, snap.KPIs.Key, snap.KPIs.Err)
	h.logSection(filters.ScopeRanking, snap.Ranking.Key, snap.Ranking.Err)
	h.logSection(filters.ScopeDistribution, snap.Distribution.Key, snap.Distribution.Err)

	if snap.Ranking.OK() {
		data.bar = aggregate.BuildBarChart(snap.Ranking.Data.Companies, sel.Granularity(), aggregate.MaxCategories)
	}
	if snap.Distribution.OK() {
		data.slices = aggregate.BuildDonutChart(snap.Distribution.Data.Items, sel.Granularity(), aggregate.MaxCategories)
	}
	return data
}

func (h *Handler) buildViewModel(opts market.FilterOptions, data dashboardData) ui.DashboardViewModel {
	snap := data.snapshot
	sel := snap.Selection

	var kpis *market.KPIs
	if snap.KPIs.OK() {
		kpis = &snap.KPIs.Data
	}

	vm := ui.DashboardViewModel{
		Selection:   sel,
		Header:      ui.NewHeader(sel),
		Filters:     ui.NewFilterBar(opts, sel),
		KPIs:        ui.NewKPICards(kpis),
		Ratios:      ui.NewRatioCards(kpis),
		Links:       ui.NewLinks(sel),
		Ready:       sel.Ready(),
		GeneratedAt: h.now(),
	}

	vm.Bar = ui.ChartCard{Title: ui.BarTitle, Failed: snap.Ranking.Err != nil}
	if len(data.bar.Rows) == 0 {
		vm.Bar.Empty = true
	} else if h.stacked == nil {
		vm.Bar.Failed = true
		h.logError("render bar chart", errors.New("stacked renderer missing"))
	} else {
		out, err := h.stacked.StackedBars(svg.DefaultWidth, svg.DefaultHeight, data.bar, svg.StackOpts{
			Title:       ui.BarTitle,
			Description: "Producción por compañía en millones de pesos",
			AxisLabel:   "Millones de $",
		})
		if err != nil {
			h.logError("render bar chart", err)
			vm.Bar.Failed = true
		} else {
			vm.Bar.SVG = out
			vm.Bar.Legend = ui.BarLegend(data.bar)
		}
	}

	donutTitle := sel.Granularity().Plural()
	vm.Donut = ui.ChartCard{Title: donutTitle, Failed: snap.Distribution.Err != nil}
	if len(data.slices) == 0 {
		vm.Donut.Empty = true
	} else if h.donut == nil {
		vm.Donut.Failed = true
		h.logError("render donut chart", errors.New("donut renderer missing"))
	} else {
		out, err := h.donut.Donut(svg.DefaultDonutSize, data.slices, svg.DonutOpts{
			Title:       donutTitle,
			Description: "Distribución de la producción por " + strings.ToLower(donutTitle),
		})
		if err != nil {
			h.logError("render donut chart", err)
			vm.Donut.Failed = true
		} else {
			vm.Donut.SVG = out
			vm.Donut.Legend = ui.DonutLegend(data.slices)
		}
	}
	return vm
}

func (h *Handler) buildReport(data dashboardData) export.Report {
	sel := data.snapshot.Selection
	report := export.Report{
		Period:     format.Period(sel.Year, sel.Quarter),
		ViewMode:   sel.ViewMode.Label(),
		Ramo:       sel.Ramo,
		DonutTitle: sel.Granularity().Plural(),
		Bar:        data.bar,
		Slices:     data.slices,
	}
	if data.snapshot.KPIs.OK() {
		k := data.snapshot.KPIs.Data
		report.KPIs = &k
	}
	return report
}

func (h *Handler) logSection(scope, key string, err error) {
	if err == nil || h.logger == nil {
		return
	}
	h.logger.Warn("dashboard section unavailable",
		slog.String("section", scope),
		slog.String("key", key),
		slog.Any("error", err))
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var vErr *filters.ValidationError
	if errors.As(err, &vErr) {
		http.Error(w, "Parámetros inválidos", http.StatusBadRequest)
		return
	}
	h.handleServerError(w, "parse filters", err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}

func attach(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
}

func exportName(sel filters.Selection, ext string) string {
	parts := []string{"produccion"}
	if sel.Year != "" {
		parts = append(parts, sel.Year)
	}
	if sel.Quarter != "" {
		parts = append(parts, sel.Quarter)
	}
	parts = append(parts, string(sel.ViewMode))
	return strings.Join(parts, "-") + "." + ext
}

// HandleDashboardForTest exposes the dashboard handler for tests.
func (h *Handler) HandleDashboardForTest(w http.ResponseWriter, r *http.Request) {
	h.handleDashboard(w, r)
}

// HandleCSVForTest exposes the CSV handler for tests.
func (h *Handler) HandleCSVForTest(w http.ResponseWriter, r *http.Request) { h.handleCSV(w, r) }

// HandleDataForTest exposes the JSON handler for tests.
func (h *Handler) HandleDataForTest(w http.ResponseWriter, r *http.Request) { h.handleData(w, r) }
