package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// PDFExporter converts the report to PDF through a Gotenberg instance.
type PDFExporter struct {
	Endpoint string
	Client   *http.Client
}

// Enabled reports whether an endpoint is configured.
func (p *PDFExporter) Enabled() bool {
	return p != nil && strings.TrimSpace(p.Endpoint) != ""
}

// Render sends the report as HTML to Gotenberg and returns the PDF bytes.
func (p *PDFExporter) Render(ctx context.Context, report Report) ([]byte, error) {
	if !p.Enabled() {
		return nil, fmt.Errorf("gotenberg endpoint required")
	}
	endpoint := strings.TrimRight(p.Endpoint, "/")
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, buildHTML(report)); err != nil {
		return nil, err
	}
	if err := writer.WriteField("landscape", "true"); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("gotenberg response %d: %s", resp.StatusCode, string(data))
	}
	return io.ReadAll(resp.Body)
}

func buildHTML(report Report) string {
	esc := template.HTMLEscapeString
	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"><style>")
	b.WriteString("body{font-family:sans-serif;margin:24px;color:#0f172a}h1{font-size:20px}h2{font-size:14px;border-bottom:2px solid #0f172a}table{width:100%;border-collapse:collapse;margin-bottom:16px}th,td{border:1px solid #e2e8f0;padding:4px 6px;text-align:right;font-size:11px}th{background:#f8fafc}.label{text-align:left}")
	b.WriteString("</style></head><body>")
	b.WriteString(fmt.Sprintf("<h1>Mercado Asegurador Argentino · %s · %s</h1>", esc(report.Period), esc(report.ViewMode)))
	if report.Ramo != "" {
		b.WriteString(fmt.Sprintf("<p>Ramo: %s</p>", esc(report.Ramo)))
	}

	if report.KPIs != nil {
		b.WriteString("<section><h2>Indicadores</h2><table><tbody>")
		for _, m := range kpiMetrics(*report.KPIs) {
			b.WriteString(fmt.Sprintf("<tr><td class=\"label\">%s</td><td>%s</td></tr>", esc(m.label), esc(m.value)))
		}
		b.WriteString("</tbody></table></section>")
	}

	if len(report.Bar.Rows) > 0 {
		b.WriteString("<section><h2>TOTAL DEL MERCADO (millones)</h2><table><thead><tr>")
		for _, h := range rankingHeader(report.Bar) {
			b.WriteString("<th>" + esc(h) + "</th>")
		}
		b.WriteString("</tr></thead><tbody>")
		cols := columns(report.Bar)
		for _, row := range report.Bar.Rows {
			b.WriteString("<tr><td class=\"label\">" + esc(row.FullName) + "</td>")
			for _, key := range cols {
				b.WriteString("<td>" + formatFloat(row.Value(key, report.Bar.OtherLabel)) + "</td>")
			}
			b.WriteString("<td>" + formatFloat(row.Total) + "</td></tr>")
		}
		b.WriteString("</tbody></table></section>")
	}

	if len(report.Slices) > 0 {
		b.WriteString(fmt.Sprintf("<section><h2>%s</h2><table><thead><tr><th class=\"label\">Categoría</th><th>Millones</th><th>%%</th></tr></thead><tbody>", esc(report.DonutTitle)))
		for _, s := range report.Slices {
			b.WriteString(fmt.Sprintf("<tr><td class=\"label\">%s</td><td>%s</td><td>%s</td></tr>", esc(s.Label), formatFloat(s.Value), formatFloat(s.Percentage)))
		}
		b.WriteString("</tbody></table></section>")
	}

	b.WriteString("</body></html>")
	return b.String()
}
