package svg

// StackOpts customises the stacked bar renderer.
type StackOpts struct {
	Title       string
	Description string
	AxisLabel   string
	AxisColor   string
	GridColor   string
	Padding     float64
	LegendWidth float64
	TickCount   int
}

// DonutOpts customises the donut renderer.
type DonutOpts struct {
	Title       string
	Description string
	// HoleRatio is the inner radius as a share of the outer radius.
	HoleRatio float64
	// MinLabelAngle hides arc labels on slices narrower than this, in degrees.
	MinLabelAngle float64
}

// Defaults for the dashboard charts.
const (
	DefaultWidth         = 960
	DefaultHeight        = 480
	DefaultDonutSize     = 420
	DefaultPadding       = 24.0
	DefaultTicks         = 6
	DefaultLegendWidth   = 150.0
	DefaultHoleRatio     = 0.5
	DefaultMinLabelAngle = 15.0
	fallbackBarColor     = "#94a3b8"
)
