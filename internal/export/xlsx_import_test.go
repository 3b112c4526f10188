package export_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fieldstone/caselog/internal/domain"
	"github.com/fieldstone/caselog/internal/export"
	"github.com/fieldstone/caselog/internal/store"
)

type memCaseStore struct {
	byNumber map[string]domain.Case
	nextID   int64
}

func newMemCaseStore() *memCaseStore {
	return &memCaseStore{byNumber: make(map[string]domain.Case)}
}

func (m *memCaseStore) GetCaseByNumber(_ context.Context, number string) (domain.Case, error) {
	c, ok := m.byNumber[number]
	if !ok {
		return domain.Case{}, store.ErrCaseNotFound
	}
	return c, nil
}

func (m *memCaseStore) AddCase(_ context.Context, c domain.Case) (int64, error) {
	m.nextID++
	c.ID = m.nextID
	m.byNumber[c.CaseNumber] = c
	return c.ID, nil
}

func (m *memCaseStore) UpdateCase(_ context.Context, c domain.Case) error {
	for number, existing := range m.byNumber {
		if existing.ID == c.ID {
			delete(m.byNumber, number)
			m.byNumber[c.CaseNumber] = c
			return nil
		}
	}
	return store.ErrCaseNotFound
}

func importLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func exportFixture() []domain.Case {
	return []domain.Case{
		{
			CaseNumber:     "2024-001",
			Examiner:       "Doe",
			Agency:         "MBI",
			CityOfOffense:  "Jackson",
			StateOfOffense: "MS",
			StartDate:      "2024-03-01",
			VolumeSizeGB:   512.5,
			OffenseType:    "Fraud",
			DataRecovered:  "Yes",
			FPRComplete:    true,
		},
		{
			CaseNumber:  "2024-002",
			Examiner:    "Roe",
			OffenseType: "Theft",
		},
	}
}

func exportBuffer(t *testing.T, cases []domain.Case) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, export.WriteCases(&buf, cases))
	return &buf
}

func TestImportCases_AddsNewCases(t *testing.T) {
	cases := newMemCaseStore()

	stats, err := export.ImportCases(context.Background(),
		exportBuffer(t, exportFixture()), cases, importLogger())
	require.NoError(t, err)

	assert.Equal(t, export.ImportStats{Imported: 2}, stats)

	got, err := cases.GetCaseByNumber(context.Background(), "2024-001")
	require.NoError(t, err)
	assert.Equal(t, "Doe", got.Examiner)
	assert.Equal(t, "Jackson", got.CityOfOffense)
	assert.Equal(t, "2024-03-01", got.StartDate, "date cells round-trip")
	assert.Equal(t, 512.5, got.VolumeSizeGB)
	assert.Equal(t, "Yes", got.DataRecovered)
	assert.True(t, got.FPRComplete)
}

func TestImportCases_ReimportIsIdempotent(t *testing.T) {
	cases := newMemCaseStore()
	fixture := exportFixture()

	_, err := export.ImportCases(context.Background(),
		exportBuffer(t, fixture), cases, importLogger())
	require.NoError(t, err)

	stats, err := export.ImportCases(context.Background(),
		exportBuffer(t, fixture), cases, importLogger())
	require.NoError(t, err)

	assert.Equal(t, export.ImportStats{Skipped: 2}, stats)
}

func TestImportCases_UpdatesChangedCases(t *testing.T) {
	cases := newMemCaseStore()
	fixture := exportFixture()

	_, err := export.ImportCases(context.Background(),
		exportBuffer(t, fixture), cases, importLogger())
	require.NoError(t, err)

	fixture[0].Examiner = "Lane"
	stats, err := export.ImportCases(context.Background(),
		exportBuffer(t, fixture), cases, importLogger())
	require.NoError(t, err)

	assert.Equal(t, export.ImportStats{Updated: 1, Skipped: 1}, stats)

	got, err := cases.GetCaseByNumber(context.Background(), "2024-001")
	require.NoError(t, err)
	assert.Equal(t, "Lane", got.Examiner)
}

func TestImportCases_SkipsRowsWithoutCaseNumber(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Case #", "Examiner"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"", "Nameless"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"2024-009", "Doe"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	cases := newMemCaseStore()
	stats, err := export.ImportCases(context.Background(), &buf, cases, importLogger())
	require.NoError(t, err)

	assert.Equal(t, export.ImportStats{Imported: 1, Skipped: 1}, stats)
}

func TestImportCases_RejectsWorkbookWithoutCaseNumberColumn(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Examiner", "Agency"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Doe", "MBI"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	_, err := export.ImportCases(context.Background(), &buf, newMemCaseStore(), importLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Case #")
}

func TestImportCases_EmptyWorkbook(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Case #"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	_, err := export.ImportCases(context.Background(), &buf, newMemCaseStore(), importLogger())
	require.ErrorIs(t, err, export.ErrNoCases)
}
