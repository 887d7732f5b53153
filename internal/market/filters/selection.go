// Package filters holds the dashboard filter selection and the rules that
// derive query parameters and chart granularity from it.
package filters

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/insurance-market/dashboard/internal/market"
)

// ErrInvalidSelection wraps every validation failure of FromQuery.
var ErrInvalidSelection = errors.New("filters: invalid selection")

// Selection is the immutable set of filters chosen on the dashboard.
// Update it through the With* methods, which return modified copies.
type Selection struct {
	Year     string          `validate:"omitempty,len=4,numeric"`
	Quarter  string          `validate:"omitempty,oneof=01 02 03 04"`
	Ramo     string          `validate:"omitempty,max=120"`
	ViewMode market.ViewMode `validate:"required,oneof=accumulated current"`
	TopN     int             `validate:"required,oneof=10 15 20 50"`
}

// Default is the selection before any user interaction.
func Default() Selection {
	return Selection{ViewMode: market.ViewAccumulated, TopN: market.DefaultTopN}
}

func (s Selection) WithYear(year string) Selection {
	s.Year = year
	return s
}

func (s Selection) WithQuarter(quarter string) Selection {
	s.Quarter = quarter
	return s
}

// WithRamo sets the category filter; an empty name clears it.
func (s Selection) WithRamo(ramo string) Selection {
	s.Ramo = ramo
	return s
}

func (s Selection) WithViewMode(mode market.ViewMode) Selection {
	s.ViewMode = mode
	return s
}

func (s Selection) WithTopN(n int) Selection {
	s.TopN = n
	return s
}

// Initialize fills an unset year or quarter with the first offered option.
// Values already chosen are left untouched.
func (s Selection) Initialize(opts market.FilterOptions) Selection {
	if s.Year == "" && len(opts.Years) > 0 {
		s.Year = opts.Years[0]
	}
	if s.Quarter == "" && len(opts.Quarters) > 0 {
		s.Quarter = opts.Quarters[0]
	}
	return s
}

// Ready reports whether data queries may run.
func (s Selection) Ready() bool {
	return s.Year != "" && s.Quarter != ""
}

// CategoryFilterActive reports whether a ramo is selected.
func (s Selection) CategoryFilterActive() bool {
	return s.Ramo != ""
}

// Granularity is subramo once a ramo is selected, ramo otherwise.
func (s Selection) Granularity() market.Granularity {
	if s.CategoryFilterActive() {
		return market.BySubramo
	}
	return market.ByRamo
}

// Query returns the parameters for the KPI and distribution endpoints.
func (s Selection) Query() market.Query {
	return market.Query{Year: s.Year, Quarter: s.Quarter, Ramo: s.Ramo, ViewMode: s.ViewMode}
}

// RankingQuery adds the ranking size to Query.
func (s Selection) RankingQuery() market.Query {
	q := s.Query()
	q.TopN = s.TopN
	return q
}

// Key serializes the selection for scope into a stable string. Two
// selections produce the same key exactly when they would issue the same
// request for that scope.
func (s Selection) Key(scope string) string {
	parts := []string{scope, s.Year, s.Quarter, s.Ramo, string(s.ViewMode)}
	if scope == ScopeRanking {
		parts = append(parts, strconv.Itoa(s.TopN))
	}
	for i, p := range parts {
		parts[i] = url.QueryEscape(p)
	}
	return strings.Join(parts, "|")
}

// Query scopes, one per independently cached request.
const (
	ScopeFilters      = "filters"
	ScopeKPIs         = "kpis"
	ScopeRanking      = "ranking"
	ScopeDistribution = "distribution"
)

// Values renders the selection as form values, the inverse of FromQuery.
func (s Selection) Values() url.Values {
	v := url.Values{}
	if s.Year != "" {
		v.Set("year", s.Year)
	}
	if s.Quarter != "" {
		v.Set("quarter", s.Quarter)
	}
	if s.Ramo != "" {
		v.Set("ramo", s.Ramo)
	}
	v.Set("view_mode", string(s.ViewMode))
	v.Set("top_n", strconv.Itoa(s.TopN))
	return v
}

var validate = validator.New()

// FieldError describes one rejected query value.
type FieldError struct {
	Field string
	Tag   string
}

// ValidationError lists the fields FromQuery rejected.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return fmt.Sprintf("invalid filters: %s", strings.Join(names, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidSelection }

// FromQuery parses year, quarter, ramo, view_mode and top_n from values on
// top of Default, then fills year and quarter from opts when unset. A ramo
// not offered by opts is rejected when opts lists ramos.
func FromQuery(values url.Values, opts market.FilterOptions) (Selection, error) {
	sel := Default()
	sel.Year = strings.TrimSpace(values.Get("year"))
	sel.Quarter = strings.TrimSpace(values.Get("quarter"))
	sel.Ramo = strings.TrimSpace(values.Get("ramo"))
	if raw := strings.TrimSpace(values.Get("view_mode")); raw != "" {
		sel.ViewMode = market.ViewMode(raw)
	}

	verr := &ValidationError{}
	if raw := strings.TrimSpace(values.Get("top_n")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			verr.Fields = append(verr.Fields, FieldError{Field: "top_n", Tag: "numeric"})
		} else {
			sel.TopN = n
		}
	}

	if err := validate.Struct(sel); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return Selection{}, fmt.Errorf("validate selection: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.Fields = append(verr.Fields, FieldError{Field: fieldName(fe.Field()), Tag: fe.Tag()})
		}
	}
	if sel.Ramo != "" && len(opts.Ramos) > 0 && !slices.Contains(opts.Ramos, sel.Ramo) {
		verr.Fields = append(verr.Fields, FieldError{Field: "ramo", Tag: "oneof"})
	}
	if len(verr.Fields) > 0 {
		return Selection{}, verr
	}
	return sel.Initialize(opts), nil
}

func fieldName(structField string) string {
	switch structField {
	case "ViewMode":
		return "view_mode"
	case "TopN":
		return "top_n"
	default:
		return strings.ToLower(structField)
	}
}
