package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/processfirst/flowdash/pkg/analytics"
	"github.com/processfirst/flowdash/pkg/catalog"
	"github.com/processfirst/flowdash/pkg/model"
	"github.com/processfirst/flowdash/pkg/report"
	"github.com/processfirst/flowdash/pkg/topology"
)

// Color definitions
var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
)

// PrintFlowSummary prints the process flow and its structure with colors
func PrintFlowSummary(w io.Writer, g model.Graph, a *topology.Analysis) {
	bold.Fprintln(w, "Process Flow")
	bold.Fprintln(w, "============")
	fmt.Fprintf(w, "Stages: %d\n", len(g.Nodes))
	fmt.Fprintf(w, "Flows: %d\n", len(g.Edges))
	fmt.Fprintln(w)

	for _, n := range g.Nodes {
		cyan.Fprintf(w, "  %-4s", n.ID)
		fmt.Fprintf(w, " %-20s %s\n", n.Name, n.Type)
	}
	fmt.Fprintln(w)

	for _, e := range g.Edges {
		fmt.Fprintf(w, "  %s -> %s", e.Source, e.Target)
		cyan.Fprintf(w, "  (%s)\n", e.ID)
	}
	fmt.Fprintln(w)

	if a == nil {
		return
	}

	if a.Acyclic {
		green.Fprintf(w, "Processing order: %s\n", strings.Join(a.Order, " -> "))
	} else {
		yellow.Fprintf(w, "Recycle loops: %d\n", len(a.Loops))
		for _, loop := range a.Loops {
			yellow.Fprintf(w, "  %s\n", strings.Join(loop, " -> "))
		}
	}

	if len(a.Dangling) > 0 {
		red.Fprintln(w, "DANGLING FLOWS:")
		for _, e := range a.Dangling {
			red.Fprintf(w, "  %s (%s -> %s)\n", e.ID, e.Source, e.Target)
		}
	}
	for _, id := range a.DuplicateEdges {
		red.Fprintf(w, "Duplicate flow id: %s\n", id)
	}
	for _, id := range a.DuplicateNodes {
		red.Fprintf(w, "Duplicate stage id: %s\n", id)
	}

	if a.Consistent() {
		green.Fprintln(w, "✓ Flow is consistent")
	}
}

// PrintReportPreview prints the report selection and the sections it would contain
func PrintReportPreview(w io.Writer, p report.Preview, r *report.Results) {
	fmt.Fprintln(w)
	bold.Fprintln(w, p.Title)
	for _, line := range p.Lines {
		fmt.Fprintf(w, "  %s\n", line)
	}

	if r == nil {
		return
	}
	fmt.Fprintln(w)
	for _, s := range analytics.ImpactDistribution(r) {
		fmt.Fprintf(w, "  %-14s", s.Variable)
		impactColor(s.Share).Fprintf(w, " %5.1f%%\n", s.Share)
	}
	if trend := analytics.KPITrend(r); len(trend) > 0 {
		sum := analytics.Summarize(kpis(trend))
		cyan.Fprintf(w, "  %d scenario(s), KPI mean %.3f (min %.3f, max %.3f)\n",
			sum.Count, sum.Mean, sum.Min, sum.Max)
	}
}

// PrintCatalogPage prints one page of the component catalog
func PrintCatalogPage(w io.Writer, p catalog.Page) {
	fmt.Fprintln(w)
	bold.Fprintln(w, "Chemical Components")
	for _, c := range p.Rows {
		fmt.Fprintf(w, "  %3d %-20s %-10s %9.3f ", c.ID, c.Name, c.Formula, c.MolecularWeight)
		hazardColor(c.Hazard).Fprintln(w, c.Hazard)
	}
	fmt.Fprintf(w, "Page %d of %d (%d components)\n", p.Page, p.Pages, p.Total)
}

func impactColor(share float64) *color.Color {
	switch {
	case share >= 40:
		return red
	case share >= 20:
		return yellow
	}
	return green
}

func hazardColor(hazard string) *color.Color {
	switch strings.ToLower(hazard) {
	case "non-hazardous":
		return green
	case "flammable", "oxidizer":
		return yellow
	}
	return red
}

func kpis(points []analytics.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.KPI
	}
	return out
}
