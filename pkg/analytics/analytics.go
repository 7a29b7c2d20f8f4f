// Package analytics derives dashboard series from process results.
package analytics

import (
	"math"
	"sort"

	"github.com/processfirst/flowdash/pkg/report"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Slice is one share of the impact distribution
type Slice struct {
	Variable string  `json:"variable"`
	Impact   float64 `json:"impact"`
	Share    float64 `json:"share"` // percent of the total impact
}

// Point is one scenario on the KPI trend
type Point struct {
	Scenario  string  `json:"scenario"`
	Equipment string  `json:"equipment"`
	KPI       float64 `json:"kpi_value"`
}

// Summary describes a series of values
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Dashboard is everything the analytics view shows
type Dashboard struct {
	Impact     []Slice `json:"impact"`
	Trend      []Point `json:"trend"`
	KPISummary Summary `json:"kpi_summary"`
}

// ImpactDistribution turns impact scores into pie slices, largest first.
// Ties are ordered by variable name.
func ImpactDistribution(r *report.Results) []Slice {
	if r == nil || len(r.TopImpact) == 0 {
		return nil
	}

	slices := make([]Slice, 0, len(r.TopImpact))
	values := make([]float64, 0, len(r.TopImpact))
	for name, v := range r.TopImpact {
		slices = append(slices, Slice{Variable: name, Impact: v})
		values = append(values, v)
	}

	total := floats.Sum(values)
	for i := range slices {
		if total != 0 {
			slices[i].Share = slices[i].Impact / total * 100
		}
	}

	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Impact != slices[j].Impact {
			return slices[i].Impact > slices[j].Impact
		}
		return slices[i].Variable < slices[j].Variable
	})
	return slices
}

// KPITrend lists scenario KPI values in results order
func KPITrend(r *report.Results) []Point {
	scenarios := r.Scenarios()
	points := make([]Point, len(scenarios))
	for i, s := range scenarios {
		points[i] = Point{
			Scenario:  string(s.Scenario),
			Equipment: s.Equipment,
			KPI:       s.KPIValue,
		}
	}
	return points
}

// Summarize computes descriptive statistics. An empty series yields a zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(values, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return Summary{
		Count:  len(values),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}
}

// Build derives the full dashboard from results
func Build(r *report.Results) Dashboard {
	trend := KPITrend(r)
	kpis := make([]float64, len(trend))
	for i, p := range trend {
		kpis[i] = p.KPI
	}
	return Dashboard{
		Impact:     ImpactDistribution(r),
		Trend:      trend,
		KPISummary: Summarize(kpis),
	}
}
