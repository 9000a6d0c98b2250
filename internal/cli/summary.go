package cli

import (
	"fmt"
	"strings"

	"github.com/harwood/breachdb/internal/model"
	"github.com/harwood/breachdb/internal/service"
)

// RenderIngestSummary renders the outcome of one ingest run as a boxed
// summary for the terminal.
func RenderIngestSummary(stats service.IngestStats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Records processed:  %d\n", stats.TotalRecords)
	fmt.Fprintf(&b, "Matched offenders:  %d\n", stats.MatchedRecords)
	fmt.Fprintf(&b, "New offenders:      %d\n", stats.NewOffenders)
	fmt.Fprintf(&b, "Duplicates skipped: %d\n", stats.Duplicates)

	if stats.Failed > 0 {
		fmt.Fprintf(&b, "%s\n", ErrorStyle.Render(fmt.Sprintf("Failed:             %d", stats.Failed)))
	}
	if stats.FieldFallbacks > 0 {
		fmt.Fprintf(&b, "%s\n", WarningStyle.Render(fmt.Sprintf("Field fallbacks:    %d", stats.FieldFallbacks)))
	}
	fmt.Fprintf(&b, "%s", SubtleStyle.Render(fmt.Sprintf("Duration: %s", stats.Duration.Round(1e6))))

	return RenderBox("Ingest complete", b.String())
}

// RenderOffenderTable renders offender records as an aligned table.
func RenderOffenderTable(offenders []model.OffenderRecord) string {
	if len(offenders) == 0 {
		return SubtleStyle.Render("No offenders found.")
	}

	var b strings.Builder
	header := fmt.Sprintf("%-6s %-40s %-10s %-6s %s", "ID", "NAME", "POSTCODE", "CASES", "TOTAL FINES")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for _, o := range offenders {
		name := o.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		row := fmt.Sprintf("%-6d %-40s %-10s %-6d £%s",
			o.ID, name, o.Postcode, o.TotalCases, o.TotalFines.StringFixed(2))
		b.WriteString(TableCellStyle.Render(row))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderLegislationTable renders canonical legislation rows as a table.
func RenderLegislationTable(refs []model.LegislationReference) string {
	if len(refs) == 0 {
		return SubtleStyle.Render("No legislation recorded.")
	}

	var b strings.Builder
	header := fmt.Sprintf("%-6s %-60s %-6s %s", "ID", "TITLE", "YEAR", "TYPE")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for _, ref := range refs {
		year := "-"
		if ref.Year != nil {
			year = fmt.Sprintf("%d", *ref.Year)
		}
		row := fmt.Sprintf("%-6d %-60s %-6s %s", ref.ID, ref.Title, year, ref.Type)
		b.WriteString(TableCellStyle.Render(row))
		b.WriteString("\n")
	}
	return b.String()
}
