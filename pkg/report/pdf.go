package report

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/processfirst/flowdash/pkg/logging"
)

// Letter page geometry in points. Layout positions are measured from the
// bottom edge, the way PDF user space is.
const (
	pageHeight  = 792.0
	leftMargin  = 72.0
	topY        = pageHeight - 50
	footerY     = 30.0
	breakBelow  = 100.0
	wrapColumns = 80

	reportTitle = "Process Optimization Report"
	footerText  = "Generated by Process First LLC - Process Optimization Report"
)

// Font styles as understood by fpdf
const (
	StyleRegular = ""
	StyleBold    = "B"
	StyleItalic  = "I"
)

var sectionHeader = regexp.MustCompile(`^\d+\.\s+[A-Z\s]+$`)

// Line is one positioned string of report text
type Line struct {
	Page  int     `json:"page"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Style string  `json:"style"`
	Size  float64 `json:"size"`
	Text  string  `json:"text"`
}

// Layout is a fully positioned report, ready to be drawn
type Layout struct {
	Pages int    `json:"pages"`
	Lines []Line `json:"lines"`
}

// Texts returns the drawn strings in order
func (l Layout) Texts() []string {
	out := make([]string, len(l.Lines))
	for i, line := range l.Lines {
		out[i] = line.Text
	}
	return out
}

type composer struct {
	layout Layout
	y      float64
}

func (c *composer) draw(x float64, style string, size float64, text string) {
	c.layout.Lines = append(c.layout.Lines, Line{
		Page:  c.layout.Pages,
		X:     x,
		Y:     c.y,
		Style: style,
		Size:  size,
		Text:  text,
	})
}

// breakIfBelow starts a new page when less than needed points remain
func (c *composer) breakIfBelow(needed float64) {
	if c.y < needed {
		c.layout.Pages++
		c.y = topY
	}
}

func (c *composer) insights(text string) {
	c.draw(leftMargin, StyleBold, 12, "Technical Analysis:")
	c.y -= 25

	for _, raw := range strings.Split(text, "\n") {
		c.breakIfBelow(breakBelow)

		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			c.y -= 10
			continue
		}

		style, size := StyleRegular, 10.0
		if sectionHeader.MatchString(trimmed) {
			style, size = StyleBold, 12
		}

		indent := len(raw) - len(strings.TrimLeft(raw, " \t"))
		x := leftMargin + float64(indent/2*20)

		for _, part := range wrap(trimmed) {
			c.draw(x, style, size, part)
			c.y -= 15
			c.breakIfBelow(breakBelow)
		}
	}

	c.y -= 15
	c.breakIfBelow(150)
}

// wrap splits text into chunks shorter than the wrap width on word boundaries
func wrap(text string) []string {
	if len(text) <= wrapColumns {
		return []string{text}
	}
	var (
		lines   []string
		current string
	)
	for _, word := range strings.Fields(text) {
		if len(current)+1+len(word) < wrapColumns {
			current = strings.TrimSpace(current + " " + word)
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// Compose positions the report content. Empty insights omit the analysis section.
func Compose(r *Results, insights string) Layout {
	if r == nil {
		r = &Results{}
	}
	c := &composer{layout: Layout{Pages: 1}, y: topY}

	c.draw(leftMargin, StyleBold, 16, reportTitle)
	c.y -= 40

	if strings.TrimSpace(insights) != "" {
		c.insights(insights)
	}

	if len(r.TopVariables) > 0 {
		c.breakIfBelow(breakBelow)
		c.draw(leftMargin, StyleBold, 12, "Key Process Variables:")
		c.y -= 25
		for _, name := range sortedKeys(r.TopVariables) {
			v := r.TopVariables[name]
			c.breakIfBelow(breakBelow)
			c.draw(leftMargin, StyleRegular, 10, fmt.Sprintf("%s: %s %s", name, formatValue(v.Value), v.Unit))
			c.y -= 20
		}
	}

	if len(r.TopImpact) > 0 {
		c.y -= 20
		c.breakIfBelow(breakBelow)
		c.draw(leftMargin, StyleBold, 12, "Variable Impacts on Process:")
		c.y -= 25
		for _, name := range sortedKeys(r.TopImpact) {
			c.breakIfBelow(breakBelow)
			c.draw(leftMargin, StyleRegular, 10, fmt.Sprintf("%s: %.1f%% impact", name, r.TopImpact[name]*100))
			c.y -= 20
		}
	}

	if scenarios := r.Scenarios(); len(scenarios) > 0 {
		c.y -= 20
		c.breakIfBelow(breakBelow)
		c.draw(leftMargin, StyleBold, 12, "Simulation Results:")
		c.y -= 25
		for _, s := range scenarios {
			c.breakIfBelow(breakBelow)
			c.draw(leftMargin, StyleRegular, 10, fmt.Sprintf("Scenario %s: Equipment = %s", s.Scenario, s.Equipment))
			c.y -= 20
		}
	}

	return c.layout
}

// formatValue prints whole numbers with one decimal, otherwise the shortest form
func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Render draws a layout into PDF bytes
func Render(l Layout) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("flowdash", true)
	pdf.SetTitle(reportTitle, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetFont("Helvetica", StyleItalic, 8)
		pdf.Text(leftMargin, pageHeight-footerY, footerText)
	})

	next := 0
	for page := 1; page <= l.Pages; page++ {
		pdf.AddPage()
		for ; next < len(l.Lines) && l.Lines[next].Page == page; next++ {
			line := l.Lines[next]
			pdf.SetFont("Helvetica", line.Style, line.Size)
			pdf.Text(line.X, pageHeight-line.Y, tr(line.Text))
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Builder assembles report documents, optionally with generated insights
type Builder struct {
	Generator Generator
}

// NewBuilder creates a builder. A nil generator disables insights.
func NewBuilder(gen Generator) *Builder {
	return &Builder{Generator: gen}
}

// Layout positions the report, fetching insights first when requested.
// A failed generation only drops the analysis section.
func (b *Builder) Layout(ctx context.Context, r *Results, includeAI bool) Layout {
	var insights string
	if includeAI && b.Generator != nil {
		text, err := Insights(ctx, b.Generator, r)
		if err != nil {
			logging.WarnContext(ctx, "report insights unavailable", "error", err)
		} else {
			insights = text
		}
	}
	return Compose(r, insights)
}

// PDF renders the report for the given results
func (b *Builder) PDF(ctx context.Context, r *Results, includeAI bool) ([]byte, error) {
	start := time.Now()
	data, err := Render(b.Layout(ctx, r, includeAI))
	if err != nil {
		return nil, err
	}
	logging.DebugContext(ctx, "rendered report", "bytes", len(data), "duration", time.Since(start))
	return data, nil
}

// Filename names a report downloaded at the given time
func Filename(now time.Time) string {
	return now.Format("process_report_20060102_150405.pdf")
}
