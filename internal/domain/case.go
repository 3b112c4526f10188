package domain

import "time"

// Case is one case-log record as stored in the case_log table.
type Case struct {
	ID             int64
	CaseNumber     string
	Examiner       string
	Investigator   string
	Agency         string
	CityOfOffense  string
	StateOfOffense string
	StartDate      string // YYYY-MM-DD
	EndDate        string // YYYY-MM-DD
	VolumeSizeGB   float64
	OffenseType    string
	DeviceType     string
	Model          string
	OS             string
	DataRecovered  string // "Yes", "No", or empty when unknown
	FPRComplete    bool
	Notes          string
	CreatedAt      time.Time
}

// OffenseLocation returns the case's geocodable location. ok is false when
// either the city or the state is empty after trimming; such cases are
// excluded from geocoding.
func (c Case) OffenseLocation() (Location, bool) {
	return NewLocation(c.CityOfOffense, c.StateOfOffense)
}

// CategoryCount is one bar of an analytics aggregation, e.g. cases per
// offense type or per agency.
type CategoryCount struct {
	Label string
	Count int
}
