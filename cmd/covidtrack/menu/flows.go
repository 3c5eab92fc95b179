package menu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"covidtrack/cmd/covidtrack/ui"
	"covidtrack/internal/clinic"
	"covidtrack/internal/patient"
	"covidtrack/internal/recommend"
	"covidtrack/internal/symptom"
)

type stepKind int

const (
	stepText stepKind = iota
	stepChoice
	stepList
)

// step is one prompt of a flow. Exactly one of onText, onChoice or onItem is
// set, matching kind. A returned endFlowError finishes the flow; any other
// error is shown and the step is asked again.
type step struct {
	kind     stepKind
	prompt   string
	options  []string
	skip     func() bool
	enter    func() (note string, err error)
	onText   func(string) error
	onChoice func(int) error
	onItem   func(string) (done bool, err error)

	entered  bool
	answered int
}

type flow struct {
	title      string
	steps      []*step
	idx        int
	transcript []string
	onWrite    func()
	finish     func() (string, error)
}

// recordWrite runs the write hook as soon as a step has touched the data
// files, so the watcher never sees the menu's own writes as external.
func (f *flow) recordWrite() {
	if f.onWrite != nil {
		f.onWrite()
	}
}

// errSkipStep from an enter hook skips the step after recording its note.
var errSkipStep = errors.New("skip step")

type endFlowError struct {
	msg string
}

func (e endFlowError) Error() string {
	return e.msg
}

func finishWith(format string, args ...interface{}) error {
	return endFlowError{msg: fmt.Sprintf(format, args...)}
}

func textStep(prompt string, fn func(string) error) *step {
	return &step{kind: stepText, prompt: prompt, onText: fn}
}

// field stores a validated value into dst.
func field(dst *string) func(string) error {
	return func(v string) error {
		if err := clinic.ValidateValue(v); err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

// readID parses a patient id, re-prompting on non-numeric input, and
// finishes the flow when the patient does not exist.
func (m Model) readID(dst *patient.Record) func(string) error {
	return func(v string) error {
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.New(unknownSelection)
		}
		rec, err := m.svc.Patient(id)
		if err != nil {
			if errors.Is(err, clinic.ErrNotFound) {
				return finishWith("Could not find patient with id: %d", id)
			}
			return err
		}
		*dst = rec
		return nil
	}
}

func (m Model) intakeFlow() *flow {
	var (
		np        clinic.NewPatient
		rec       patient.Record
		locations = m.svc.Locations()
		symptoms  []string
	)
	f := &flow{title: "New patient"}

	locationStep := &step{
		kind:    stepChoice,
		prompt:  "Please enter the number of the location you have visited recently:",
		options: append(append([]string{}, locations...), "None of the above"),
		enter: func() (string, error) {
			if len(locations) == 0 {
				return "No locations found", errSkipStep
			}
			return "", nil
		},
		onChoice: func(sel int) error {
			if sel <= len(locations) {
				np.VisitedLocation = locations[sel-1]
			}
			return nil
		},
	}

	symptomStep := &step{
		kind:   stepList,
		prompt: "What are your current symptoms? Enter 'Done' to finish entering symptoms:",
		enter: func() (string, error) {
			var err error
			rec, err = m.svc.Intake(np)
			if err != nil {
				return "", err
			}
			f.recordWrite()
			note := m.styles.Success.Render(fmt.Sprintf("Your patient id is: %d", rec.ID))
			if m.svc.Catalog().Empty() {
				return note, finishWith("Symptom database not found.")
			}
			return note, nil
		},
		onItem: func(v string) (bool, error) {
			if v == symptom.Done {
				return true, nil
			}
			symptoms = append(symptoms, v)
			return false, nil
		},
	}

	f.steps = []*step{
		textStep("Please enter your name:", field(&np.Name)),
		textStep("Please enter your date of birth:", field(&np.DateOfBirth)),
		textStep("Please enter your address:", field(&np.Address)),
		textStep("Have you traveled overseas in the past 2 weeks:", field(&np.RecentOverseasTravel)),
		locationStep,
		{
			kind:   stepText,
			prompt: "Please enter when you visited:",
			skip:   func() bool { return np.VisitedLocation == "" },
			onText: field(&np.VisitDateTime),
		},
		symptomStep,
	}
	f.finish = func() (string, error) {
		a, err := m.svc.Assess(rec.VisitedLocation != "", symptoms)
		if err != nil {
			return "", err
		}
		return renderAssessment(m.styles, a), nil
	}
	return f
}

func renderAssessment(styles ui.Styles, a clinic.Assessment) string {
	style := styles.Success
	switch a.Recommendation {
	case recommend.IsolateAndTestNow:
		style = styles.Error
	case recommend.IsolateAtHomeAdvisory, recommend.IsolateAndMonitor:
		style = styles.Warning
	case recommend.Unspecified:
		style = styles.Muted
	}
	return style.Render(a.Recommendation.Message())
}

func (m Model) submitFlow() *flow {
	var (
		rec       patient.Record
		result    patient.TestResult
		location  string
		visitedAt string
	)
	f := &flow{title: "Submit test result"}

	resultStep := &step{
		kind:    stepChoice,
		options: []string{"Positive", "Negative"},
		onChoice: func(sel int) error {
			result = patient.TestNegative
			if sel == 1 {
				result = patient.TestPositive
			}
			return nil
		},
	}
	// The prompt names the patient, known only after the id step.
	resultStep.enter = func() (string, error) {
		resultStep.prompt = fmt.Sprintf("Please select the test result for %s:", rec.Name)
		return "", nil
	}
	locationStep := &step{
		kind: stepText,
		skip: func() bool { return result != patient.TestPositive },
		onText: func(v string) error {
			if strings.TrimSpace(v) == "" {
				return errors.New("a location is required for a positive result")
			}
			return field(&location)(v)
		},
	}
	locationStep.enter = func() (string, error) {
		locationStep.prompt = fmt.Sprintf("Please enter the last location %s visited:", rec.Name)
		return "", nil
	}

	f.steps = []*step{
		textStep("Enter the Id of the patient you wish to submit a test for:", m.readID(&rec)),
		resultStep,
		locationStep,
		{
			kind:   stepText,
			prompt: "Please enter when you visited:",
			skip:   func() bool { return result != patient.TestPositive },
			onText: func(v string) error {
				if strings.TrimSpace(v) == "" {
					return errors.New("a visit time is required for a positive result")
				}
				return field(&visitedAt)(v)
			},
		},
	}

	f.finish = func() (string, error) {
		out, err := m.svc.SubmitTestResult(clinic.TestSubmission{
			PatientID:     rec.ID,
			Result:        result,
			Location:      location,
			VisitDateTime: visitedAt,
		})
		if err != nil {
			return "", err
		}
		f.recordWrite()
		msg := fmt.Sprintf("Test result %s recorded for %s.", m.styles.ResultBadge(string(out.Record.CovidTest)), out.Record.Name)
		if out.LocationRegistered {
			msg += "\n" + m.styles.Warning.Render(location+" added to the high-risk locations.")
		}
		return msg, nil
	}
	return f
}

func (m Model) updateFlow() *flow {
	var (
		rec    patient.Record
		target patient.Field
	)
	f := &flow{title: "Update patient details"}

	options := make([]string, 0, len(patient.Fields())+1)
	for _, fl := range patient.Fields() {
		options = append(options, fl.String())
	}
	options = append(options, "Quit")

	f.steps = []*step{
		textStep("Enter the Id of the patient you wish to update:", m.readID(&rec)),
		{
			kind:    stepChoice,
			prompt:  "Please select The field you wish to update:",
			options: options,
			onChoice: func(sel int) error {
				if sel == len(options) {
					return finishWith("No changes made.")
				}
				target = patient.Field(sel)
				return nil
			},
		},
		textStep("Please enter the new value:", func(v string) error {
			updated, err := m.svc.UpdateField(rec.ID, target, v)
			if err != nil {
				if errors.Is(err, clinic.ErrInvalidValue) {
					return err
				}
				return finishWith("%s", m.styles.Error.Render(err.Error()))
			}
			f.recordWrite()
			rec = updated
			return nil
		}),
	}

	f.finish = func() (string, error) {
		msg := m.styles.Success.Render("Updated.")
		if !target.Mutable() {
			msg += "\n" + m.styles.Muted.Render(target.String()+" cannot be changed; the record was left as is.")
		}
		return msg + "\n\n" + m.renderer.Render(ui.PatientMarkdown(rec)), nil
	}
	return f
}

func (m Model) locationsResult() string {
	locations := m.svc.Locations()
	if len(locations) == 0 {
		return "The current High Risk Locations for COVID are:\n" + m.styles.Muted.Render("(none)")
	}
	return "The current High Risk Locations for COVID are:\n\n" + ui.LocationsTable(locations).View(m.styles)
}

func (m Model) patientsResult() string {
	return m.styles.Title.Render("Patient Details") + "\n" + m.renderer.Render(ui.PatientsMarkdown(m.svc.Patients()))
}
