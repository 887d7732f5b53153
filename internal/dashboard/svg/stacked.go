package svg

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/insurance-market/dashboard/internal/format"
	"github.com/insurance-market/dashboard/internal/market/aggregate"
)

// StackedBars renders one vertical stacked bar per company. Segments stack
// in chart.Keys order from the baseline up, values are in millions.
func StackedBars(width, height int, chart aggregate.BarChart, opts StackOpts) (template.HTML, error) {
	if len(chart.Rows) == 0 {
		return "", fmt.Errorf("svg: at least one row required")
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	legendWidth := opts.LegendWidth
	if legendWidth <= 0 {
		legendWidth = DefaultLegendWidth
	}
	tickCount := opts.TickCount
	if tickCount <= 0 {
		tickCount = DefaultTicks
	}
	axisColor := fallback(opts.AxisColor, "#64748b")
	gridColor := fallback(opts.GridColor, "#e2e8f0")
	axisLabel := fallback(opts.AxisLabel, "Millones $")

	left := padding + 46
	bottom := padding + 76
	chartWidth := float64(width) - left - padding - legendWidth
	chartHeight := float64(height) - padding - bottom
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}

	maxVal := 0.0
	for _, row := range chart.Rows {
		var sum float64
		for _, key := range chart.Keys {
			sum += row.Value(key, chart.OtherLabel)
		}
		if sum > maxVal {
			maxVal = sum
		}
	}
	maxVal = niceCeil(maxVal)
	scale := chartHeight / maxVal
	baseY := padding + chartHeight

	slot := chartWidth / float64(len(chart.Rows))
	barWidth := slot * 0.7

	titleID := makeID(opts.Title, "stack-title")
	descID := makeID(opts.Title, "stack-desc")

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID))
	b.WriteString(fmt.Sprintf("<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "TOTAL DEL MERCADO"))))
	b.WriteString(fmt.Sprintf("<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Producción por compañía"))))

	for i := 0; i <= tickCount; i++ {
		ratio := float64(i) / float64(tickCount)
		y := baseY - ratio*chartHeight
		b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"1\" aria-hidden=\"true\"></line>", left, y, left+chartWidth, y, gridColor))
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"11\" text-anchor=\"end\">%s</text>", left-8, y+4, axisColor, template.HTMLEscapeString(format.Number(maxVal*ratio))))
	}
	b.WriteString(fmt.Sprintf("<text transform=\"translate(%.2f %.2f) rotate(-90)\" fill=\"#475569\" font-size=\"12\" font-weight=\"500\" text-anchor=\"middle\">%s</text>", padding, padding+chartHeight/2, template.HTMLEscapeString(axisLabel)))

	for i, row := range chart.Rows {
		x := left + float64(i)*slot + (slot-barWidth)/2
		y := baseY
		b.WriteString(fmt.Sprintf("<g aria-label=\"%s\">", template.HTMLEscapeString(row.FullName)))
		for _, key := range chart.Keys {
			value := row.Value(key, chart.OtherLabel)
			if value <= 0 {
				continue
			}
			h := value * scale
			y -= h
			color := fallback(chart.Colors[key], fallbackBarColor)
			b.WriteString(fmt.Sprintf("<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" rx=\"2\" fill=\"%s\"><title>%s</title></rect>",
				x, y, barWidth, h, color,
				template.HTMLEscapeString(fmt.Sprintf("%s · %s: %s", row.FullName, key, format.Currency(value*1_000_000)))))
		}
		b.WriteString("</g>")
		cx := x + barWidth/2
		b.WriteString(fmt.Sprintf("<text transform=\"translate(%.2f %.2f) rotate(-45)\" fill=\"%s\" font-size=\"11\" text-anchor=\"end\">%s</text>", cx, baseY+12, axisColor, template.HTMLEscapeString(row.Company)))
	}

	legendX := left + chartWidth + 16
	legendY := padding + 6
	for i, key := range chart.Keys {
		y := legendY + float64(i)*20
		b.WriteString(fmt.Sprintf("<circle cx=\"%.2f\" cy=\"%.2f\" r=\"5\" fill=\"%s\"></circle>", legendX+5, y, fallback(chart.Colors[key], fallbackBarColor)))
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"#475569\" font-size=\"11\" text-anchor=\"start\">%s</text>", legendX+16, y+4, template.HTMLEscapeString(key)))
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
