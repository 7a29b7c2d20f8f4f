package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

// ErrInvalidFilter is returned when report filter values are out of range
var ErrInvalidFilter = errors.New("invalid report filter")

// Filter selects which part of the results goes into a report
type Filter struct {
	TimeRange  string   `json:"time_range" validate:"required,oneof=1 7 30 custom"`
	StartDate  string   `json:"start_date,omitempty" validate:"required_if=TimeRange custom,omitempty,datetime=2006-01-02"`
	EndDate    string   `json:"end_date,omitempty" validate:"required_if=TimeRange custom,omitempty,datetime=2006-01-02"`
	Equipment  string   `json:"equipment" validate:"required,oneof=all reactor_a reactor_b distillation"`
	ReportType string   `json:"report_type" validate:"required,oneof=full summary technical safety"`
	Variables  []string `json:"variables" validate:"dive,oneof=temperature pressure flow_rate"`
}

// DefaultFilter is the selection the report form starts with
func DefaultFilter() Filter {
	today := time.Now().Format(dateLayout)
	return Filter{
		TimeRange:  "1",
		StartDate:  today,
		EndDate:    today,
		Equipment:  "all",
		ReportType: "full",
		Variables:  []string{"temperature", "pressure", "flow_rate"},
	}
}

var validate = validator.New()

// Validate checks the filter against the accepted option sets
func (f Filter) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	if f.TimeRange == "custom" {
		start, _ := time.Parse(dateLayout, f.StartDate)
		end, _ := time.Parse(dateLayout, f.EndDate)
		if end.Before(start) {
			return fmt.Errorf("%w: end date %s before start date %s", ErrInvalidFilter, f.EndDate, f.StartDate)
		}
	}
	return nil
}

// Apply returns a copy of the results restricted to the selected variables and equipment.
// Scenario equipment is matched case-insensitively.
func (f Filter) Apply(r *Results) *Results {
	out := &Results{
		TopVariables:          make(map[string]Variable),
		TopImpact:             make(map[string]float64),
		SetpointImpactSummary: make(map[string]interface{}),
	}
	if r == nil {
		return out
	}

	for _, v := range f.Variables {
		key := TitleCase(v)
		if val, ok := r.TopVariables[key]; ok {
			out.TopVariables[key] = val
		}
		if val, ok := r.TopImpact[key]; ok {
			out.TopImpact[key] = val
		}
		if val, ok := r.SetpointImpactSummary[key]; ok {
			out.SetpointImpactSummary[key] = val
		}
	}

	if r.SimulatedSummary != nil {
		kept := make([]Scenario, 0, len(r.SimulatedSummary.SimulatedData))
		for _, s := range r.SimulatedSummary.SimulatedData {
			if f.Equipment == "all" || strings.EqualFold(s.Equipment, f.Equipment) {
				kept = append(kept, s)
			}
		}
		out.SimulatedSummary = &SimulatedSummary{SimulatedData: kept}
	}

	return out
}

// Preview summarizes a filter for display before a report is rendered
type Preview struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// Preview describes the selection in human-readable lines
func (f Filter) Preview() Preview {
	rangeLine := fmt.Sprintf("Time Range: %s days", f.TimeRange)
	if f.TimeRange == "custom" {
		rangeLine = fmt.Sprintf("Custom Range: %s to %s", f.StartDate, f.EndDate)
	}

	vars := make([]string, len(f.Variables))
	for i, v := range f.Variables {
		vars[i] = TitleCase(v)
	}

	return Preview{
		Title: "Report Preview",
		Lines: []string{
			rangeLine,
			"Equipment: " + TitleCase(f.Equipment),
			"Report Type: " + TitleCase(f.ReportType),
			"Variables: " + strings.Join(vars, ", "),
		},
	}
}
