// Package clinic implements the patient lifecycle: intake, field updates,
// test result submission and symptom assessment. Every mutation loads the
// full patient file, changes it, and writes it back.
package clinic

import (
	"errors"
	"fmt"
	"strings"

	"covidtrack/internal/location"
	"covidtrack/internal/logging"
	"covidtrack/internal/patient"
	"covidtrack/internal/recommend"
	"covidtrack/internal/symptom"
)

var (
	// ErrNotFound is returned when no patient has the requested id.
	ErrNotFound = errors.New("patient not found")
	// ErrInvalidValue is returned for values that would break the file format.
	ErrInvalidValue = errors.New("value must not contain commas or line breaks")
	// ErrLocationRequired is returned for a positive result without a location and visit time.
	ErrLocationRequired = errors.New("positive result requires a location and visit time")
	// ErrNoSymptomData is returned when the symptom catalog is empty or missing.
	ErrNoSymptomData = errors.New("symptom database not found")
	// ErrInvalidResult is returned for a test result other than Positive or Negative.
	ErrInvalidResult = errors.New("test result must be Positive or Negative")
	// ErrInvalidField is returned for an unknown update selector.
	ErrInvalidField = errors.New("unknown patient field")
)

// Paths locates the three data files.
type Paths struct {
	Patients  string
	Locations string
	Symptoms  string
}

// Service runs lifecycle operations against the data files.
type Service struct {
	paths     Paths
	patients  *patient.Store
	locations *location.Registry
	policy    *recommend.Policy
}

// NewService creates a service over paths. A nil policy uses the built-in one.
func NewService(paths Paths, policy *recommend.Policy) (*Service, error) {
	if policy == nil {
		p, err := recommend.NewPolicy()
		if err != nil {
			return nil, err
		}
		policy = p
	}
	return &Service{
		paths:     paths,
		patients:  patient.NewStore(paths.Patients),
		locations: location.NewRegistry(paths.Locations),
		policy:    policy,
	}, nil
}

// Paths returns the data file locations.
func (s *Service) Paths() Paths {
	return s.paths
}

// NewPatient carries intake answers.
type NewPatient struct {
	Name                 string
	DateOfBirth          string
	Address              string
	RecentOverseasTravel string
	VisitedLocation      string
	VisitDateTime        string
}

// TestSubmission carries a test result. Location and VisitDateTime are
// required for a positive result and ignored otherwise.
type TestSubmission struct {
	PatientID     int
	Result        patient.TestResult
	Location      string
	VisitDateTime string
}

// SubmitOutcome reports what a submission changed.
type SubmitOutcome struct {
	Record             patient.Record
	LocationRegistered bool
}

// Assessment is a classified symptom report with its recommendation.
type Assessment struct {
	Tier           symptom.Tier
	Visited        bool
	Recommendation recommend.Recommendation
}

// ValidateValue rejects values containing the record delimiter or line breaks.
func ValidateValue(values ...string) error {
	for _, v := range values {
		if strings.ContainsAny(v, ",\r\n") {
			return fmt.Errorf("%w: %q", ErrInvalidValue, v)
		}
	}
	return nil
}

// Intake registers a new patient with the next free id and saves the file.
func (s *Service) Intake(np NewPatient) (patient.Record, error) {
	if err := ValidateValue(np.Name, np.DateOfBirth, np.Address, np.RecentOverseasTravel, np.VisitedLocation, np.VisitDateTime); err != nil {
		return patient.Record{}, err
	}

	records := s.patients.LoadAll()
	rec := patient.Record{
		ID:                   patient.NextID(records),
		Name:                 np.Name,
		DateOfBirth:          np.DateOfBirth,
		Address:              np.Address,
		RecentOverseasTravel: np.RecentOverseasTravel,
	}
	// A visit time is only meaningful alongside a location.
	if np.VisitedLocation != "" {
		rec.VisitedLocation = np.VisitedLocation
		rec.VisitDateTime = np.VisitDateTime
	}

	records = append(records, rec)
	if err := s.patients.SaveAll(records); err != nil {
		return patient.Record{}, fmt.Errorf("save new patient: %w", err)
	}

	logging.Clinic("Patient %d registered", rec.ID)
	logging.Audit().PatientIntake(rec.ID, rec.Name)
	return rec, nil
}

// UpdateField sets one field of the patient with the given id and saves the
// file. The patient is located before the field and value are checked.
// Selectors that are not patient.Field.Mutable leave the record as is; the
// file is still rewritten.
func (s *Service) UpdateField(id int, field patient.Field, value string) (patient.Record, error) {
	records := s.patients.LoadAll()
	idx, ok := patient.FindIndexByID(records, id)
	if !ok {
		return patient.Record{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	if !field.Valid() {
		return patient.Record{}, fmt.Errorf("%w: %d", ErrInvalidField, int(field))
	}
	if err := ValidateValue(value); err != nil {
		return patient.Record{}, err
	}

	changed := records[idx].Apply(field, value)
	if err := s.patients.SaveAll(records); err != nil {
		return patient.Record{}, fmt.Errorf("save patient %d: %w", id, err)
	}

	if changed {
		logging.Clinic("Patient %d: %s updated", id, field)
	} else {
		logging.Get(logging.CategoryClinic).Warn("Patient %d: %s is not editable, record unchanged", id, field)
	}
	logging.Audit().PatientUpdate(id, field.String(), changed)
	return records[idx], nil
}

// SubmitTestResult records a test result. A positive result also stores the
// visited location and time on the patient and adds the location to the
// high-risk registry if it is new. The patient is located before the result
// and location are checked.
func (s *Service) SubmitTestResult(sub TestSubmission) (SubmitOutcome, error) {
	records := s.patients.LoadAll()
	idx, ok := patient.FindIndexByID(records, sub.PatientID)
	if !ok {
		return SubmitOutcome{}, fmt.Errorf("%w: %d", ErrNotFound, sub.PatientID)
	}

	switch sub.Result {
	case patient.TestPositive:
		if sub.Location == "" || sub.VisitDateTime == "" {
			return SubmitOutcome{}, ErrLocationRequired
		}
		if err := ValidateValue(sub.Location, sub.VisitDateTime); err != nil {
			return SubmitOutcome{}, err
		}
	case patient.TestNegative:
	default:
		return SubmitOutcome{}, fmt.Errorf("%w: %q", ErrInvalidResult, sub.Result)
	}

	var out SubmitOutcome
	records[idx].CovidTest = sub.Result
	if sub.Result == patient.TestPositive {
		added, err := s.locations.Register(sub.Location)
		if err != nil {
			return SubmitOutcome{}, fmt.Errorf("register location: %w", err)
		}
		if added {
			logging.Audit().LocationRegistered(sub.PatientID, sub.Location)
		}
		out.LocationRegistered = added
		records[idx].VisitedLocation = sub.Location
		records[idx].VisitDateTime = sub.VisitDateTime
	}

	if err := s.patients.SaveAll(records); err != nil {
		return SubmitOutcome{}, fmt.Errorf("save patient %d: %w", sub.PatientID, err)
	}

	logging.Clinic("Patient %d: test result %s recorded", sub.PatientID, sub.Result)
	logging.Audit().TestSubmitted(sub.PatientID, string(sub.Result))
	out.Record = records[idx]
	return out, nil
}

// Assess classifies reported symptoms and produces a recommendation.
func (s *Service) Assess(visitedHighRisk bool, symptoms []string) (Assessment, error) {
	catalog := s.Catalog()
	if catalog.Empty() {
		return Assessment{}, ErrNoSymptomData
	}
	return s.Recommend(symptom.Classify(catalog, symptoms), visitedHighRisk)
}

// Recommend applies the policy to an already classified tier.
func (s *Service) Recommend(tier symptom.Tier, visitedHighRisk bool) (Assessment, error) {
	rec, err := s.policy.Recommend(tier, visitedHighRisk)
	if err != nil {
		return Assessment{}, err
	}
	if rec == recommend.Unspecified {
		logging.Get(logging.CategoryClinic).Warn("No recommendation rule for tier %d (visited=%v)", tier, visitedHighRisk)
	}
	return Assessment{Tier: tier, Visited: visitedHighRisk, Recommendation: rec}, nil
}

// Patients returns every stored patient in file order.
func (s *Service) Patients() []patient.Record {
	return s.patients.LoadAll()
}

// Patient returns the patient with the given id.
func (s *Service) Patient(id int) (patient.Record, error) {
	records := s.patients.LoadAll()
	idx, ok := patient.FindIndexByID(records, id)
	if !ok {
		return patient.Record{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return records[idx], nil
}

// Locations returns the high-risk locations in registry order.
func (s *Service) Locations() []string {
	return s.locations.All()
}

// Catalog loads the symptom catalog.
func (s *Service) Catalog() symptom.Catalog {
	return symptom.Load(s.paths.Symptoms)
}
