package catalog

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

//go:embed chemical_components.csv
var defaultCSV []byte

// Columns lists the catalog fields in display order
var Columns = []Column{
	{Field: "id", Header: "ID", Numeric: true},
	{Field: "name", Header: "Chemical Name"},
	{Field: "formula", Header: "Formula"},
	{Field: "molecular_weight", Header: "Molecular Weight (g/mol)", Numeric: true},
	{Field: "hazard", Header: "Hazard Classification"},
}

// Column describes one catalog field
type Column struct {
	Field   string `json:"field"`
	Header  string `json:"header"`
	Numeric bool   `json:"numeric,omitempty"`
}

var (
	// ErrUnknownField is returned for sort or filter keys that are not catalog columns
	ErrUnknownField = errors.New("unknown catalog field")
	// ErrInvalidFilter is returned for a numeric comparison that does not parse
	ErrInvalidFilter = errors.New("invalid catalog filter")
)

// Component is one chemical in the catalog
type Component struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	Formula         string  `json:"formula"`
	MolecularWeight float64 `json:"molecular_weight"`
	Hazard          string  `json:"hazard"`
}

// value returns the component field as text, and as a number for numeric columns
func (c Component) value(field string) (string, float64, bool) {
	switch field {
	case "id":
		return strconv.Itoa(c.ID), float64(c.ID), true
	case "name":
		return c.Name, 0, true
	case "formula":
		return c.Formula, 0, true
	case "molecular_weight":
		return strconv.FormatFloat(c.MolecularWeight, 'f', -1, 64), c.MolecularWeight, true
	case "hazard":
		return c.Hazard, 0, true
	}
	return "", 0, false
}

func numericField(field string) bool {
	return field == "id" || field == "molecular_weight"
}

// Catalog is a reloadable, read-mostly table of components
type Catalog struct {
	mu     sync.RWMutex
	rows   []Component
	source string
}

// New creates a catalog holding the built-in component table
func New() *Catalog {
	rows, err := Parse(bytes.NewReader(defaultCSV))
	if err != nil {
		panic(fmt.Sprintf("built-in component table is invalid: %v", err))
	}
	return &Catalog{rows: rows, source: "built-in"}
}

// Load creates a catalog from a CSV file. An empty path yields the built-in table.
func Load(path string) (*Catalog, error) {
	c := New()
	if path == "" {
		return c, nil
	}
	if err := c.Reload(path); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload replaces the catalog contents from a CSV file.
// The previous contents are kept when the file cannot be parsed.
func (c *Catalog) Reload(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open component table: %w", err)
	}
	defer f.Close()

	rows, err := Parse(f)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	c.mu.Lock()
	c.rows = rows
	c.source = path
	c.mu.Unlock()
	return nil
}

// Source names where the current rows were loaded from
func (c *Catalog) Source() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source
}

// Len returns the number of components
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

// All returns a copy of every component in file order
func (c *Catalog) All() []Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Component, len(c.rows))
	copy(out, c.rows)
	return out
}

// Parse reads a component table. The header row names the columns; order is free.
func Parse(r io.Reader) ([]Component, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range Columns {
		if _, ok := index[col.Field]; !ok {
			return nil, fmt.Errorf("missing column %q", col.Field)
		}
	}

	var rows []Component
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		get := func(field string) string {
			return strings.TrimSpace(record[index[field]])
		}

		id, err := strconv.Atoi(get("id"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid id %q", line, get("id"))
		}
		weight, err := strconv.ParseFloat(get("molecular_weight"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid molecular weight %q", line, get("molecular_weight"))
		}

		rows = append(rows, Component{
			ID:              id,
			Name:            get("name"),
			Formula:         get("formula"),
			MolecularWeight: weight,
			Hazard:          get("hazard"),
		})
	}

	return rows, nil
}
