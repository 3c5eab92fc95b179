// Package patient holds the patient record model, its one-line text encoding,
// and the flat-file store the records live in.
package patient

import "fmt"

// TestResult is the outcome of a COVID test as stored in the patient file.
type TestResult string

const (
	TestUnset    TestResult = ""
	TestPositive TestResult = "Positive"
	TestNegative TestResult = "Negative"
)

// Record is one person's intake and test state.
// String fields never contain the field delimiter or a line break.
type Record struct {
	ID                   int
	Name                 string
	DateOfBirth          string
	Address              string
	VisitedLocation      string
	VisitDateTime        string
	RecentOverseasTravel string
	CovidTest            TestResult
	Status               string
}

// HasVisit reports whether both a visited location and a visit time are recorded.
func (r Record) HasVisit() bool {
	return r.VisitedLocation != "" && r.VisitDateTime != ""
}

// Field selects a record field for update. Values follow the numbering of the
// update menu.
type Field int

const (
	FieldPatientID Field = iota + 1
	FieldName
	FieldDateOfBirth
	FieldAddress
	FieldVisitedLocation
	FieldVisitDateTime
	FieldRecentOverseasTravel
	FieldStatus
)

var fieldNames = map[Field]string{
	FieldPatientID:            "Patient Id",
	FieldName:                 "Name",
	FieldDateOfBirth:          "Date of Birth",
	FieldAddress:              "Address",
	FieldVisitedLocation:      "Visited Location",
	FieldVisitDateTime:        "Time of Visit",
	FieldRecentOverseasTravel: "Last Overseas Travel",
	FieldStatus:               "Status",
}

// Fields lists every selector in menu order.
func Fields() []Field {
	return []Field{
		FieldPatientID,
		FieldName,
		FieldDateOfBirth,
		FieldAddress,
		FieldVisitedLocation,
		FieldVisitDateTime,
		FieldRecentOverseasTravel,
		FieldStatus,
	}
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// Valid reports whether f is a known selector.
func (f Field) Valid() bool {
	_, ok := fieldNames[f]
	return ok
}

// Mutable reports whether selecting f changes the record. Patient id, date of
// birth and visit time are accepted by the update menu but never written.
func (f Field) Mutable() bool {
	switch f {
	case FieldName, FieldAddress, FieldVisitedLocation, FieldRecentOverseasTravel, FieldStatus:
		return true
	}
	return false
}

// Apply sets the selected field to value. It returns false, leaving r
// untouched, for selectors that are not Mutable.
func (r *Record) Apply(f Field, value string) bool {
	switch f {
	case FieldName:
		r.Name = value
	case FieldAddress:
		r.Address = value
	case FieldVisitedLocation:
		r.VisitedLocation = value
	case FieldRecentOverseasTravel:
		r.RecentOverseasTravel = value
	case FieldStatus:
		r.Status = value
	default:
		return false
	}
	return true
}
