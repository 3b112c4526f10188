package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldstone/caselog/internal/domain"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicateCaseNumber is returned when inserting a case whose case number
// already exists.
var ErrDuplicateCaseNumber = errors.New("case number already exists")

// ErrCaseNotFound is returned when a lookup or update targets a missing case.
var ErrCaseNotFound = errors.New("case not found")

const caseColumns = `id, case_number, examiner, investigator, agency,
	city_of_offense, state_of_offense, start_date, end_date, volume_size_gb,
	offense_type, device_type, model, os, data_recovered, fpr_complete,
	notes, created_at`

// AddCase inserts a new case record and returns its assigned ID.
func (s *Store) AddCase(ctx context.Context, c domain.Case) (int64, error) {
	if strings.TrimSpace(c.CaseNumber) == "" {
		return 0, fmt.Errorf("case number is required")
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO case_log (
			case_number, examiner, investigator, agency,
			city_of_offense, state_of_offense, start_date, end_date,
			volume_size_gb, offense_type, device_type, model, os,
			data_recovered, fpr_complete, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(c.CaseNumber), c.Examiner, c.Investigator, c.Agency,
		c.CityOfOffense, c.StateOfOffense, c.StartDate, c.EndDate,
		c.VolumeSizeGB, c.OffenseType, c.DeviceType, c.Model, c.OS,
		c.DataRecovered, boolToInt(c.FPRComplete), c.Notes,
		createdAt.Format(time.DateTime),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateCaseNumber
		}
		return 0, fmt.Errorf("insert case: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// UpdateCase rewrites all mutable fields of the case with the given ID.
func (s *Store) UpdateCase(ctx context.Context, c domain.Case) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE case_log SET
			case_number = ?, examiner = ?, investigator = ?, agency = ?,
			city_of_offense = ?, state_of_offense = ?, start_date = ?,
			end_date = ?, volume_size_gb = ?, offense_type = ?,
			device_type = ?, model = ?, os = ?, data_recovered = ?,
			fpr_complete = ?, notes = ?
		WHERE id = ?`,
		strings.TrimSpace(c.CaseNumber), c.Examiner, c.Investigator, c.Agency,
		c.CityOfOffense, c.StateOfOffense, c.StartDate, c.EndDate,
		c.VolumeSizeGB, c.OffenseType, c.DeviceType, c.Model, c.OS,
		c.DataRecovered, boolToInt(c.FPRComplete), c.Notes, c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCaseNumber
		}
		return fmt.Errorf("update case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// DeleteCase removes the case with the given ID.
func (s *Store) DeleteCase(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM case_log WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// GetCaseByID fetches one case by primary key.
func (s *Store) GetCaseByID(ctx context.Context, id int64) (domain.Case, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM case_log WHERE id = ?`, id)
	return scanCase(row)
}

// GetCaseByNumber fetches one case by its unique case number.
func (s *Store) GetCaseByNumber(ctx context.Context, number string) (domain.Case, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM case_log WHERE case_number = ?`, number)
	return scanCase(row)
}

// GetAllCases returns every case ordered by creation time, newest first.
func (s *Store) GetAllCases(ctx context.Context) ([]domain.Case, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+caseColumns+` FROM case_log ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	var cases []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// CountByOffenseType aggregates case counts per offense type, for the
// analytics bar chart. Cases with an empty offense type are excluded.
func (s *Store) CountByOffenseType(ctx context.Context) ([]domain.CategoryCount, error) {
	return s.countBy(ctx, "offense_type")
}

// CountByAgency aggregates case counts per agency.
func (s *Store) CountByAgency(ctx context.Context) ([]domain.CategoryCount, error) {
	return s.countBy(ctx, "agency")
}

func (s *Store) countBy(ctx context.Context, column string) ([]domain.CategoryCount, error) {
	// column is one of the fixed names above, never user input.
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM case_log
		 WHERE TRIM(COALESCE(`+column+`, '')) != ''
		 GROUP BY `+column+` ORDER BY COUNT(*) DESC, `+column+` ASC`)
	if err != nil {
		return nil, fmt.Errorf("aggregate by %s: %w", column, err)
	}
	defer rows.Close()

	var counts []domain.CategoryCount
	for rows.Next() {
		var cc domain.CategoryCount
		if err := rows.Scan(&cc.Label, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		counts = append(counts, cc)
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (domain.Case, error) {
	var (
		c         domain.Case
		fpr       int
		createdAt string
	)
	err := row.Scan(
		&c.ID, &c.CaseNumber, &c.Examiner, &c.Investigator, &c.Agency,
		&c.CityOfOffense, &c.StateOfOffense, &c.StartDate, &c.EndDate,
		&c.VolumeSizeGB, &c.OffenseType, &c.DeviceType, &c.Model, &c.OS,
		&c.DataRecovered, &fpr, &c.Notes, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Case{}, ErrCaseNotFound
	}
	if err != nil {
		return domain.Case{}, fmt.Errorf("scan case: %w", err)
	}
	c.FPRComplete = fpr != 0
	if t, err := time.Parse(time.DateTime, createdAt); err == nil {
		c.CreatedAt = t.UTC()
	}
	return c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		code := serr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
