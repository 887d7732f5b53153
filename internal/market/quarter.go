package market

// QuarterStyle picks one of the three captions of a quarter code.
type QuarterStyle int

const (
	QuarterShort QuarterStyle = iota
	QuarterLong
	QuarterFiscal
)

type quarterLabels struct {
	short, long, fiscal string
}

// The Argentine insurance fiscal year starts in July, so the March closing
// ("01") is the third fiscal quarter.
var quarters = map[string]quarterLabels{
	"01": {"Mar", "Marzo", "Q3"},
	"02": {"Jun", "Junio", "Q4"},
	"03": {"Sep", "Septiembre", "Q1"},
	"04": {"Dic", "Diciembre", "Q2"},
}

// QuarterCodes are the period codes in calendar order.
var QuarterCodes = []string{"01", "02", "03", "04"}

// QuarterLabel returns the caption for code, or code itself when unknown.
func QuarterLabel(code string, style QuarterStyle) string {
	l, ok := quarters[code]
	if !ok {
		return code
	}
	switch style {
	case QuarterShort:
		return l.short
	case QuarterFiscal:
		return l.fiscal
	default:
		return l.long
	}
}

// ValidQuarter reports whether code is a known period code.
func ValidQuarter(code string) bool {
	_, ok := quarters[code]
	return ok
}
