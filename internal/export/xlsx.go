// Package export renders case-log records to spreadsheet files.
package export

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fieldstone/caselog/internal/domain"
)

// ErrNoCases is returned when there is nothing to export.
var ErrNoCases = errors.New("no cases to export")

const sheetName = "Cases"

var headerRow = []any{
	"ID", "Case #", "Examiner", "Investigator", "Agency", "City", "State",
	"Start (MM-DD-YYYY)", "End (MM-DD-YYYY)", "Vol (GB)", "Offense",
	"Device", "Model", "OS", "Recovered?", "FPR?", "Notes",
	"Created (MM-DD-YYYY)",
}

// WriteCases writes every case to w as an XLSX workbook with a single
// sheet and a header row. Dates are written as real date cells where they
// parse; otherwise the raw string is kept.
func WriteCases(w io.Writer, cases []domain.Case) error {
	if len(cases) == 0 {
		return ErrNoCases
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, c := range cases {
		row := []any{
			c.ID, c.CaseNumber, c.Examiner, c.Investigator, c.Agency,
			c.CityOfOffense, c.StateOfOffense,
			dateCell(c.StartDate), dateCell(c.EndDate),
			c.VolumeSizeGB, c.OffenseType, c.DeviceType, c.Model, c.OS,
			recoveredCell(c.DataRecovered), c.FPRComplete, c.Notes,
			createdCell(c.CreatedAt),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// dateCell converts a YYYY-MM-DD string into a time value so the cell is
// typed as a date. Unparseable or empty values pass through unchanged.
func dateCell(s string) any {
	if s == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return t
}

func createdCell(t time.Time) any {
	if t.IsZero() {
		return ""
	}
	return t
}

// recoveredCell maps the tri-state recovered field to a boolean cell,
// keeping the cell empty when the answer was never recorded.
func recoveredCell(s string) any {
	switch s {
	case "Yes":
		return true
	case "No":
		return false
	default:
		return ""
	}
}
