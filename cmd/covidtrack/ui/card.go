package ui

import (
	"fmt"
	"strings"

	"covidtrack/internal/patient"

	"github.com/charmbracelet/glamour"
)

// PatientMarkdown renders one patient as a markdown card.
func PatientMarkdown(r patient.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Patient %d: %s\n\n", r.ID, orDash(r.Name))
	sb.WriteString("| Field | Value |\n|---|---|\n")
	row := func(name, value string) {
		fmt.Fprintf(&sb, "| %s | %s |\n", name, orDash(value))
	}
	row(patient.FieldDateOfBirth.String(), r.DateOfBirth)
	row(patient.FieldAddress.String(), r.Address)
	row(patient.FieldVisitedLocation.String(), r.VisitedLocation)
	row(patient.FieldVisitDateTime.String(), r.VisitDateTime)
	row(patient.FieldRecentOverseasTravel.String(), r.RecentOverseasTravel)
	row("COVID Test", string(r.CovidTest))
	row(patient.FieldStatus.String(), r.Status)
	return sb.String()
}

// PatientsMarkdown renders every patient as consecutive cards.
func PatientsMarkdown(records []patient.Record) string {
	if len(records) == 0 {
		return "_No patients recorded._\n"
	}
	cards := make([]string, 0, len(records))
	for _, r := range records {
		cards = append(cards, PatientMarkdown(r))
	}
	return strings.Join(cards, "\n---\n\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	// Pipes would split the markdown table cell.
	return strings.ReplaceAll(s, "|", "\\|")
}

// Renderer turns markdown into terminal output. A nil glamour renderer
// returns the markdown unchanged.
type Renderer struct {
	term *glamour.TermRenderer
}

// NewRenderer creates a glamour renderer matching the theme. width <= 0
// uses 80 columns.
func NewRenderer(theme Theme, width int) *Renderer {
	if width <= 0 {
		width = 80
	}
	style := "dark"
	if !theme.IsDark {
		style = "light"
	}
	term, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return &Renderer{}
	}
	return &Renderer{term: term}
}

// PlainRenderer returns a renderer that leaves markdown as is.
func PlainRenderer() *Renderer {
	return &Renderer{}
}

// Render renders md, falling back to the raw text on error.
func (r *Renderer) Render(md string) string {
	if r == nil || r.term == nil {
		return md
	}
	out, err := r.term.Render(md)
	if err != nil {
		return md
	}
	return out
}
