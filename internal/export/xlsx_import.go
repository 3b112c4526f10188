package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fieldstone/caselog/internal/domain"
	"github.com/fieldstone/caselog/internal/store"
)

// CaseStore is the persistence surface an import merges into.
type CaseStore interface {
	GetCaseByNumber(ctx context.Context, number string) (domain.Case, error)
	AddCase(ctx context.Context, c domain.Case) (int64, error)
	UpdateCase(ctx context.Context, c domain.Case) error
}

// ImportStats summarizes one import run.
type ImportStats struct {
	Imported int // new cases added
	Updated  int // existing cases rewritten with changed fields
	Skipped  int // rows without a case number, or identical to the stored case
	Failed   int // rows that could not be written
}

// importColumns maps the exported header labels back to case fields.
var importColumns = map[string]string{
	"Case #":             "case_number",
	"Examiner":           "examiner",
	"Investigator":       "investigator",
	"Agency":             "agency",
	"City":               "city_of_offense",
	"State":              "state_of_offense",
	"Start (MM-DD-YYYY)": "start_date",
	"End (MM-DD-YYYY)":   "end_date",
	"Vol (GB)":           "volume_size_gb",
	"Offense":            "offense_type",
	"Device":             "device_type",
	"Model":              "model",
	"OS":                 "os",
	"Recovered?":         "data_recovered",
	"FPR?":               "fpr_complete",
	"Notes":              "notes",
}

// ImportCases reads an XLSX workbook and merges its rows into the case log:
// unknown case numbers are added, known ones are updated when any imported
// field differs, unchanged rows are skipped. Rows without a case number are
// skipped; a row that fails to write is counted and does not stop the run.
func ImportCases(ctx context.Context, r io.Reader, cases CaseStore, logger *slog.Logger) (ImportStats, error) {
	var stats ImportStats

	f, err := excelize.OpenReader(r)
	if err != nil {
		return stats, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return stats, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return stats, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return stats, ErrNoCases
	}

	cols := headerIndex(rows[0])
	if _, ok := cols["case_number"]; !ok {
		return stats, errors.New(`workbook is missing a "Case #" column`)
	}

	for i, row := range rows[1:] {
		rowNum := i + 2
		parsed := parseRow(row, cols)
		if parsed.CaseNumber == "" {
			logger.Warn("import: row has no case number, skipping", "row", rowNum)
			stats.Skipped++
			continue
		}

		existing, err := cases.GetCaseByNumber(ctx, parsed.CaseNumber)
		switch {
		case errors.Is(err, store.ErrCaseNotFound):
			if _, err := cases.AddCase(ctx, parsed); err != nil {
				logger.Error("import: add failed", "row", rowNum,
					"case_number", parsed.CaseNumber, "error", err)
				stats.Failed++
				continue
			}
			stats.Imported++
		case err != nil:
			return stats, fmt.Errorf("lookup case %q: %w", parsed.CaseNumber, err)
		default:
			merged := mergeCase(existing, parsed)
			if merged == existing {
				stats.Skipped++
				continue
			}
			if err := cases.UpdateCase(ctx, merged); err != nil {
				logger.Error("import: update failed", "row", rowNum,
					"case_number", parsed.CaseNumber, "error", err)
				stats.Failed++
				continue
			}
			stats.Updated++
		}
	}
	return stats, nil
}

// headerIndex maps case field names to column positions in the header row.
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int)
	for i, label := range header {
		if field, ok := importColumns[strings.TrimSpace(label)]; ok {
			cols[field] = i
		}
	}
	return cols
}

func parseRow(row []string, cols map[string]int) domain.Case {
	get := func(field string) string {
		i, ok := cols[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	return domain.Case{
		CaseNumber:     get("case_number"),
		Examiner:       get("examiner"),
		Investigator:   get("investigator"),
		Agency:         get("agency"),
		CityOfOffense:  get("city_of_offense"),
		StateOfOffense: get("state_of_offense"),
		StartDate:      parseImportDate(get("start_date")),
		EndDate:        parseImportDate(get("end_date")),
		VolumeSizeGB:   parseVolume(get("volume_size_gb")),
		OffenseType:    get("offense_type"),
		DeviceType:     get("device_type"),
		Model:          get("model"),
		OS:             get("os"),
		DataRecovered:  parseRecovered(get("data_recovered")),
		FPRComplete:    parseFPR(get("fpr_complete")),
		Notes:          get("notes"),
	}
}

// mergeCase overlays the imported fields on the stored case, keeping the
// identity and bookkeeping fields.
func mergeCase(existing, parsed domain.Case) domain.Case {
	merged := parsed
	merged.ID = existing.ID
	merged.CaseNumber = existing.CaseNumber
	merged.CreatedAt = existing.CreatedAt
	return merged
}

// parseImportDate normalizes the date formats the workbook may carry,
// including excelize's default rendering of date cells, to YYYY-MM-DD.
// Unparseable values become empty.
func parseImportDate(s string) string {
	if s == "" {
		return ""
	}
	formats := []string{
		"2006-01-02",
		"01-02-2006",
		"01/02/2006",
		"2006-01-02 15:04:05",
		"01/02/2006 15:04:05",
		"1/2/06 15:04",
		"1/2/06",
		"1/2/2006",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

func parseVolume(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseRecovered(s string) string {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return "Yes"
	case "no", "false", "0":
		return "No"
	default:
		return ""
	}
}

func parseFPR(s string) bool {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true
	default:
		return false
	}
}
