// Package domain models the case-log records and geocoding contracts shared
// across the application.
//
// # Case records
//
// A case is one forensic examination: case number, examiner, agency, the
// city/state where the offense occurred, device details, and bookkeeping
// fields. The city/state pair drives the map view: cases are grouped by
// location, each distinct location is resolved to coordinates once, and the
// marker popup lists the distinct offense types recorded for that city.
//
// # Location keys
//
// Locations are keyed by a normalized "city|state" string. Normalization
// rule: both fields are whitespace-trimmed, the state is uppercased, and the
// key itself is case-folded so that "Jackson|MS" and "JACKSON|ms" share one
// cache row. The originally-typed city casing is preserved for display.
//
// # Geocoding outcomes
//
// A forward geocode resolves to coordinates or fails with one of the sentinel
// errors below. Callers classify failures with errors.Is; every failure maps
// to a skipped location, never to an aborted batch.
package domain
