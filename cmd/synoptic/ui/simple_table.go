package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"synoptic/internal/clinical"
)

// SimpleTable is a simple table component for rendering static data.
type SimpleTable struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// NewSimpleTable creates a new SimpleTable with the given title and headers.
func NewSimpleTable(title string, headers []string) *SimpleTable {
	return &SimpleTable{
		Title:   title,
		Headers: headers,
		Rows:    make([][]string, 0),
	}
}

// AddRow adds a row to the table. Missing cells render empty; extra cells
// are dropped.
func (t *SimpleTable) AddRow(row ...string) {
	cells := make([]string, len(t.Headers))
	copy(cells, row)
	t.Rows = append(t.Rows, cells)
}

// View renders the table using the provided styles.
func (t *SimpleTable) View(styles Styles) string {
	if len(t.Rows) == 0 {
		return ""
	}

	var sb strings.Builder

	if t.Title != "" {
		sb.WriteString(styles.Title.Render(t.Title))
		sb.WriteString("\n")
	}

	colWidths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		colWidths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}
	// lipgloss Width includes padding
	for i := range colWidths {
		colWidths[i] += 2
	}

	headerStyle := styles.Bold.Padding(0, 1)
	rowStyle := styles.Body.Padding(0, 1)
	sep := styles.Muted.Render("│")

	writeRow := func(cells []string, style lipgloss.Style) {
		for i, cell := range cells {
			sb.WriteString(style.Width(colWidths[i]).Render(cell))
			if i < len(cells)-1 {
				sb.WriteString(sep)
			}
		}
		sb.WriteString("\n")
	}

	writeRow(t.Headers, headerStyle)

	totalWidth := len(t.Headers) - 1
	for _, w := range colWidths {
		totalWidth += w
	}
	sb.WriteString(styles.Muted.Render(strings.Repeat("─", totalWidth)) + "\n")

	for _, row := range t.Rows {
		writeRow(row, rowStyle)
	}

	return sb.String()
}

// LabTrendTable lays out one row per lab series: the latest value, its date,
// and the direction of the last change.
func LabTrendTable(series []clinical.Series) *SimpleTable {
	table := NewSimpleTable("Lab Trends", []string{"Lab", "Latest", "Date", "Trend", "History"})
	for _, s := range series {
		latest, ok := s.Latest()
		value, date := "—", "—"
		if ok {
			value = formatValue(latest.Value)
			date = latest.Date
		}
		table.AddRow(s.Label, value, date, s.Trend().Arrow(), history(s.Points))
	}
	return table
}

func history(points []clinical.Point) string {
	parts := make([]string, 0, len(points))
	for _, p := range points {
		if !p.Valid {
			parts = append(parts, "·")
			continue
		}
		parts = append(parts, formatValue(p.Value))
	}
	return strings.Join(parts, " ")
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
