package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/processfirst/flowdash/pkg/catalog"
	"github.com/processfirst/flowdash/pkg/model"
	"github.com/processfirst/flowdash/pkg/report"
	"github.com/processfirst/flowdash/pkg/topology"
)

func init() {
	color.NoColor = true
}

func TestPrintFlowSummary(t *testing.T) {
	g := model.Seed()
	var buf bytes.Buffer
	PrintFlowSummary(&buf, g, topology.Analyze(g))

	out := buf.String()
	for _, want := range []string{"Stages: 2", "Flows: 1", "Node A", "A -> B", "Processing order: A -> B", "Flow is consistent"} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary missing %q:\n%s", want, out)
		}
	}
}

func TestPrintFlowSummaryProblems(t *testing.T) {
	g := model.Seed()
	g.AddEdge(model.NewEdge("B", "A"))
	g.AddEdge(model.NewEdge("B", "Z"))

	var buf bytes.Buffer
	PrintFlowSummary(&buf, g, topology.Analyze(g))

	out := buf.String()
	for _, want := range []string{"Recycle loops: 1", "DANGLING FLOWS:", "B-Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "consistent") {
		t.Errorf("Flow with dangling edges should not be reported consistent")
	}
}

func TestPrintReportPreview(t *testing.T) {
	r := &report.Results{
		TopImpact: map[string]float64{"Temperature": 0.6, "Pressure": 0.4},
		SimulatedSummary: &report.SimulatedSummary{SimulatedData: []report.Scenario{
			{Scenario: "1", Equipment: "Reactor_A", KPIValue: 0.5},
		}},
	}

	var buf bytes.Buffer
	PrintReportPreview(&buf, report.DefaultFilter().Preview(), r)

	out := buf.String()
	for _, want := range []string{"Report Preview", "Equipment: All", "Temperature", "60.0%", "1 scenario(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Preview missing %q:\n%s", want, out)
		}
	}
}

func TestPrintCatalogPage(t *testing.T) {
	p, err := catalog.New().Query(catalog.Query{PageSize: 3})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	PrintCatalogPage(&buf, p)

	out := buf.String()
	if !strings.Contains(out, "Water") || !strings.Contains(out, "Page 1 of 7 (20 components)") {
		t.Errorf("Unexpected catalog output:\n%s", out)
	}
}
