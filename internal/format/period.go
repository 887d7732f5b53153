package format

import (
	"fmt"

	"github.com/insurance-market/dashboard/internal/market"
)

// Period renders "2024 - Q1" style captions. Either part missing yields
// AllPeriods.
func Period(year, quarter string) string {
	if year == "" || quarter == "" {
		return AllPeriods
	}
	return fmt.Sprintf("%s - %s", year, market.QuarterLabel(quarter, market.QuarterFiscal))
}

// QuarterOption is the caption of a quarter in the filter dropdown.
func QuarterOption(code string) string {
	long := market.QuarterLabel(code, market.QuarterLong)
	if long == code {
		return code
	}
	return fmt.Sprintf("%s (%s)", long, market.QuarterLabel(code, market.QuarterFiscal))
}
