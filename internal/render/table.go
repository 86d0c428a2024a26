// Package render writes snapshots as a fixed-width text table.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Guliveer/hoststat/internal/models"
)

// ColumnWidth is the left-justified width of every column.
const ColumnWidth = 25

// Unavailable is printed in place of a metric that could not be read.
const Unavailable = "Unable to read"

var headers = [3]string{"CPU Utilization", "Memory Saturation", "Disk I/O Errors"}

// Table writes a header once and then one row per snapshot.
type Table struct {
	w      io.Writer
	color  bool
	plain  lipgloss.Style
	title  lipgloss.Style
	failed lipgloss.Style
}

// New creates a table writing to w. With color enabled the header is bold and
// unreadable metrics are red; colors are dropped when w is not a terminal.
func New(w io.Writer, color bool) *Table {
	r := lipgloss.NewRenderer(w)
	return &Table{
		w:      w,
		color:  color,
		plain:  r.NewStyle(),
		title:  r.NewStyle().Bold(true),
		failed: r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Header writes the column titles followed by a rule.
func (t *Table) Header() error {
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = t.cell(h, t.title)
	}
	if err := t.line(cells); err != nil {
		return err
	}
	_, err := fmt.Fprintln(t.w, strings.Repeat("-", 3*ColumnWidth-2))
	return err
}

// Row writes one snapshot.
func (t *Table) Row(s models.Snapshot) error {
	return t.line([]string{
		t.percent(s.CPU),
		t.percent(s.Memory),
		t.count(s.DiskErrors),
	})
}

func (t *Table) percent(r models.Reading[float64]) string {
	if !r.OK() {
		return t.cell(Unavailable, t.failed)
	}
	return t.cell(fmt.Sprintf("%.2f%%", r.Value), t.plain)
}

func (t *Table) count(r models.Reading[int64]) string {
	if !r.OK() {
		return t.cell(Unavailable, t.failed)
	}
	return t.cell(fmt.Sprintf("%d", r.Value), t.plain)
}

// cell pads text to the column width before styling so escape sequences do
// not count towards the width.
func (t *Table) cell(text string, style lipgloss.Style) string {
	padded := fmt.Sprintf("%-*s", ColumnWidth, text)
	if !t.color {
		return padded
	}
	return style.Render(padded)
}

func (t *Table) line(cells []string) error {
	_, err := fmt.Fprintln(t.w, strings.Join(cells, " "))
	return err
}
