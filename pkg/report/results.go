package report

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Variable is a measured process variable
type Variable struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Label holds a JSON value that may be written as a string or a number.
// Scenario identifiers appear in both forms in results files.
type Label string

// UnmarshalJSON accepts both quoted and bare values
func (l *Label) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Label(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	*l = Label(data)
	return nil
}

// Scenario is one simulated operating point
type Scenario struct {
	Scenario  Label   `json:"scenario"`
	Equipment string  `json:"equipment"`
	KPIValue  float64 `json:"kpi_value"`
}

// SimulatedSummary groups the simulation output
type SimulatedSummary struct {
	SimulatedData []Scenario `json:"simulated_data"`
}

// Results is the analytics output a report is built from.
// Variable maps are keyed by Title Case names such as "Flow Rate".
type Results struct {
	TopVariables          map[string]Variable    `json:"top_variables"`
	TopImpact             map[string]float64     `json:"top_impact"`
	SetpointImpactSummary map[string]interface{} `json:"setpoint_impact_summary"`
	SimulatedSummary      *SimulatedSummary      `json:"simulated_summary,omitempty"`
}

// LoadResults reads a results file
func LoadResults(path string) (*Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	return ParseResults(data)
}

// ParseResults decodes a results document
func ParseResults(data []byte) (*Results, error) {
	var r Results
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}
	return &r, nil
}

// Scenarios returns the simulated scenarios, or nil when there are none
func (r *Results) Scenarios() []Scenario {
	if r == nil || r.SimulatedSummary == nil {
		return nil
	}
	return r.SimulatedSummary.SimulatedData
}

// sortedKeys returns map keys in a stable order for rendering
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TitleCase turns a snake_case selector into the key used in results files
func TitleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
