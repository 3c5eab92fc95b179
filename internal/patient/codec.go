package patient

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// fieldCount is the number of comma-separated fields in an encoded record.
const fieldCount = 9

// ErrMalformedRecord matches every decode failure under errors.Is.
var ErrMalformedRecord = errors.New("malformed patient record")

// MalformedRecordError describes a line that could not be decoded.
// Line is 1-based and zero when the line number is unknown.
type MalformedRecordError struct {
	Line   int
	Input  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed patient record on line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed patient record: %s", e.Reason)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// Decode parses one stored line. The ninth field takes the rest of the line,
// so commas inside the status survive; trailing line-ending characters are
// stripped from it.
func Decode(line string) (Record, error) {
	parts := strings.SplitN(line, ",", fieldCount)
	if len(parts) < fieldCount {
		return Record{}, &MalformedRecordError{
			Input:  line,
			Reason: fmt.Sprintf("expected %d fields, got %d", fieldCount, len(parts)),
		}
	}

	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return Record{}, &MalformedRecordError{Input: line, Reason: fmt.Sprintf("invalid patient id %q", parts[0])}
	}
	if id < 0 {
		return Record{}, &MalformedRecordError{Input: line, Reason: fmt.Sprintf("negative patient id %d", id)}
	}

	return Record{
		ID:                   id,
		Name:                 parts[1],
		DateOfBirth:          parts[2],
		Address:              parts[3],
		VisitedLocation:      parts[4],
		VisitDateTime:        parts[5],
		RecentOverseasTravel: parts[6],
		CovidTest:            TestResult(parts[7]),
		Status:               strings.TrimRight(parts[8], "\r\n"),
	}, nil
}

// Encode renders r as one line without a terminator.
func Encode(r Record) string {
	return strings.Join([]string{
		strconv.Itoa(r.ID),
		r.Name,
		r.DateOfBirth,
		r.Address,
		r.VisitedLocation,
		r.VisitDateTime,
		r.RecentOverseasTravel,
		string(r.CovidTest),
		r.Status,
	}, ",")
}
