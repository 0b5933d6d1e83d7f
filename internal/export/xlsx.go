package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"taxrecon/internal/domain"
)

const (
	sheetFields  = "Fields"
	sheetSummary = "Summary"
)

var statusFill = map[string]string{
	StatusMatch:         "#E2EFDA",
	StatusDiscrepancy:   "#F8CBAD",
	StatusPrimaryOnly:   "#FFF2CC",
	StatusSecondaryOnly: "#DDEBF7",
}

// WriteXLSX writes a workbook with a Fields sheet (one row per key, colored by
// status) and a Summary sheet with bucket counts.
func WriteXLSX(w io.Writer, documentName string, res *domain.ComparisonResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetFields); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	if err := writeFieldsSheet(f, res); err != nil {
		return fmt.Errorf("export.WriteXLSX fields: %w", err)
	}
	if err := writeSummarySheet(f, documentName, res); err != nil {
		return fmt.Errorf("export.WriteXLSX summary: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export.WriteXLSX write: %w", err)
	}
	return nil
}

func writeFieldsSheet(f *excelize.File, res *domain.ComparisonResult) error {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9D9D9"}},
	})
	if err != nil {
		return err
	}
	fills := make(map[string]int, len(statusFill))
	for status, color := range statusFill {
		id, styleErr := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		})
		if styleErr != nil {
			return styleErr
		}
		fills[status] = id
	}

	if err := f.SetSheetRow(sheetFields, "A1", &columns); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetFields, "A1", "D1", header); err != nil {
		return err
	}

	for i, row := range Rows(res) {
		r := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, r)
		values := row.values()
		if err := f.SetSheetRow(sheetFields, cell, &values); err != nil {
			return err
		}
		end, _ := excelize.CoordinatesToCellName(len(columns), r)
		if err := f.SetCellStyle(sheetFields, cell, end, fills[row.Status]); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheetFields, "A", "A", 32); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetFields, "B", "B", 16); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetFields, "C", "D", 28); err != nil {
		return err
	}
	return f.SetPanes(sheetFields, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeSummarySheet(f *excelize.File, documentName string, res *domain.ComparisonResult) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return err
	}
	counts := res.Counts()
	review := "No"
	if res.NeedsReview() {
		review = "Yes"
	}
	rows := [][]any{
		{"Document", documentName},
		{"Matching", counts.Matching},
		{"Discrepancies", counts.Discrepancies},
		{"Primary only", counts.PrimaryOnly},
		{"Secondary only", counts.SecondaryOnly},
		{"Needs review", review},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheetSummary, "A", "A", 18)
}
