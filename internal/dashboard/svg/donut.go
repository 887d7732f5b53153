package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/insurance-market/dashboard/internal/format"
	"github.com/insurance-market/dashboard/internal/market/aggregate"
)

// Donut renders slices clockwise from twelve o'clock with percentage labels.
func Donut(size int, slices []aggregate.Slice, opts DonutOpts) (template.HTML, error) {
	if len(slices) == 0 {
		return "", fmt.Errorf("svg: at least one slice required")
	}
	if size <= 0 {
		size = DefaultDonutSize
	}
	hole := opts.HoleRatio
	if hole <= 0 || hole >= 1 {
		hole = DefaultHoleRatio
	}
	minAngle := opts.MinLabelAngle
	if minAngle <= 0 {
		minAngle = DefaultMinLabelAngle
	}

	var total float64
	for _, s := range slices {
		if s.Value > 0 {
			total += s.Value
		}
	}
	if almostEqual(total, 0) {
		return "", fmt.Errorf("svg: slices sum to zero")
	}

	c := float64(size) / 2
	outer := c - DefaultPadding
	inner := outer * hole

	titleID := makeID(opts.Title, "donut-title")
	descID := makeID(opts.Title, "donut-desc")

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", size, size, titleID, descID))
	b.WriteString(fmt.Sprintf("<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "RAMOS"))))
	b.WriteString(fmt.Sprintf("<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Distribución de la producción"))))

	angle := 0.0
	for _, s := range slices {
		if s.Value <= 0 {
			continue
		}
		sweep := s.Value / total * 2 * math.Pi
		tooltip := fmt.Sprintf("%s: %s (%s)", s.Label, format.Currency(s.Value*1_000_000), format.Percentage(s.Percentage, 1))
		b.WriteString(fmt.Sprintf("<path d=\"%s\" fill=\"%s\" stroke=\"#ffffff\" stroke-width=\"1\"><title>%s</title></path>",
			arcPath(c, outer, inner, angle, angle+sweep), s.Color, template.HTMLEscapeString(tooltip)))

		if sweep*180/math.Pi >= minAngle {
			mid := angle + sweep/2
			r := (outer + inner) / 2
			x, y := polar(c, r, mid)
			b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"#ffffff\" font-size=\"12\" font-weight=\"600\" text-anchor=\"middle\" dominant-baseline=\"middle\">%s</text>",
				x, y, template.HTMLEscapeString(format.Percentage(s.Percentage, 1))))
		}
		angle += sweep
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

// polar converts an angle measured clockwise from twelve o'clock.
func polar(c, r, angle float64) (float64, float64) {
	return c + r*math.Sin(angle), c - r*math.Cos(angle)
}

func arcPath(c, outer, inner, start, end float64) string {
	// A full circle cannot be drawn as a single arc.
	if end-start >= 2*math.Pi-1e-9 {
		end = start + 2*math.Pi - 1e-4
	}
	large := 0
	if end-start > math.Pi {
		large = 1
	}
	ox1, oy1 := polar(c, outer, start)
	ox2, oy2 := polar(c, outer, end)
	ix1, iy1 := polar(c, inner, end)
	ix2, iy2 := polar(c, inner, start)
	return fmt.Sprintf("M%.2f %.2f A%.2f %.2f 0 %d 1 %.2f %.2f L%.2f %.2f A%.2f %.2f 0 %d 0 %.2f %.2f Z",
		ox1, oy1, outer, outer, large, ox2, oy2,
		ix1, iy1, inner, inner, large, ix2, iy2)
}
