package ui

import (
	"strconv"
	"strings"

	"covidtrack/internal/patient"

	"github.com/charmbracelet/lipgloss"
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

// AddRow adds a row to the table.
func (t *SimpleTable) AddRow(row ...string) {
	t.Rows = append(t.Rows, row)
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
			if i < len(colWidths) {
				if w := lipgloss.Width(cell); w > colWidths[i] {
					colWidths[i] = w
				}
			}
		}
	}
	// Width() includes padding
	for i := range colWidths {
		colWidths[i] += 2
	}

	headerStyle := styles.Bold.Padding(0, 1)
	rowStyle := styles.Body.Padding(0, 1)
	sepStyle := styles.Muted

	for i, h := range t.Headers {
		sb.WriteString(headerStyle.Width(colWidths[i]).Render(h))
		if i < len(t.Headers)-1 {
			sb.WriteString(sepStyle.Render("|"))
		}
	}
	sb.WriteString("\n")

	totalWidth := len(t.Headers) - 1
	for _, w := range colWidths {
		totalWidth += w
	}
	sb.WriteString(sepStyle.Render(strings.Repeat("-", totalWidth)) + "\n")

	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(colWidths) {
				sb.WriteString(rowStyle.Width(colWidths[i]).Render(cell))
				if i < len(row)-1 && i < len(colWidths)-1 {
					sb.WriteString(sepStyle.Render("|"))
				}
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// LocationsTable lists high-risk locations in registry order.
func LocationsTable(locations []string) *SimpleTable {
	t := NewSimpleTable("High-risk locations", []string{"#", "Location"})
	for i, loc := range locations {
		t.AddRow(strconv.Itoa(i+1), loc)
	}
	return t
}

// PatientsTable lists every patient with all stored fields.
func PatientsTable(records []patient.Record) *SimpleTable {
	headers := []string{
		patient.FieldPatientID.String(),
		patient.FieldName.String(),
		patient.FieldDateOfBirth.String(),
		patient.FieldAddress.String(),
		patient.FieldVisitedLocation.String(),
		patient.FieldVisitDateTime.String(),
		patient.FieldRecentOverseasTravel.String(),
		"COVID Test",
		patient.FieldStatus.String(),
	}

	t := NewSimpleTable("Patients", headers)
	for _, r := range records {
		t.AddRow(
			strconv.Itoa(r.ID),
			r.Name,
			r.DateOfBirth,
			r.Address,
			r.VisitedLocation,
			r.VisitDateTime,
			r.RecentOverseasTravel,
			string(r.CovidTest),
			r.Status,
		)
	}
	return t
}
