package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"covidtrack/cmd/covidtrack/ui"
	"covidtrack/internal/clinic"
	"covidtrack/internal/location"
	"covidtrack/internal/patient"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	intakeName      string
	intakeDOB       string
	intakeAddress   string
	intakeTravel    string
	intakeLocation  string
	intakeVisitedAt string
	intakeSymptoms  []string

	submitResult    string
	submitLocation  string
	submitVisitedAt string

	updateField string
	updateValue string
)

// intakeCmd registers a patient and prints a recommendation
var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Register a new patient and get a test recommendation",
	Long: `Registers a patient with the next free id, then classifies the reported
symptoms and prints the recommendation.

--location must name a known high-risk location (see 'covidtrack locations').

Example:
  covidtrack intake --name "Ann Lee" --dob 1990-01-01 --address "1 Road" \
    --travel No --location "Mall X" --visited-at "Mon 9am" --symptom cough`,
	Args: cobra.NoArgs,
	RunE: runIntake,
}

// submitCmd records a test result
var submitCmd = &cobra.Command{
	Use:   "submit [patient-id]",
	Short: "Submit a test result; positive results update the location database",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmit,
}

// updateCmd edits one patient field
var updateCmd = &cobra.Command{
	Use:   "update [patient-id]",
	Short: "Update one field of a patient",
	Long: `Updates one field of a stored patient.

Fields: name, address, location, travel, status.
The selectors id, dob and time are accepted but leave the record unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

// patientsCmd lists all patients
var patientsCmd = &cobra.Command{
	Use:   "patients",
	Short: "Display all patient details",
	Args:  cobra.NoArgs,
	RunE:  runPatients,
}

// showCmd renders a single patient
var showCmd = &cobra.Command{
	Use:   "show [patient-id]",
	Short: "Display one patient as a card",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var fieldFlags = map[string]patient.Field{
	"id":       patient.FieldPatientID,
	"name":     patient.FieldName,
	"dob":      patient.FieldDateOfBirth,
	"address":  patient.FieldAddress,
	"location": patient.FieldVisitedLocation,
	"time":     patient.FieldVisitDateTime,
	"travel":   patient.FieldRecentOverseasTravel,
	"status":   patient.FieldStatus,
}

func init() {
	intakeCmd.Flags().StringVar(&intakeName, "name", "", "Patient name")
	intakeCmd.Flags().StringVar(&intakeDOB, "dob", "", "Date of birth")
	intakeCmd.Flags().StringVar(&intakeAddress, "address", "", "Address")
	intakeCmd.Flags().StringVar(&intakeTravel, "travel", "", "Overseas travel in the past 2 weeks")
	intakeCmd.Flags().StringVar(&intakeLocation, "location", "", "High-risk location visited recently")
	intakeCmd.Flags().StringVar(&intakeVisitedAt, "visited-at", "", "When the location was visited")
	intakeCmd.Flags().StringArrayVar(&intakeSymptoms, "symptom", nil, "Current symptom (repeatable)")
	_ = intakeCmd.MarkFlagRequired("name")

	submitCmd.Flags().StringVar(&submitResult, "result", "", "Test result: positive or negative")
	submitCmd.Flags().StringVar(&submitLocation, "location", "", "Last location visited (positive only)")
	submitCmd.Flags().StringVar(&submitVisitedAt, "visited-at", "", "When the location was visited (positive only)")
	_ = submitCmd.MarkFlagRequired("result")

	names := make([]string, 0, len(fieldFlags))
	for n := range fieldFlags {
		names = append(names, n)
	}
	sort.Strings(names)
	updateCmd.Flags().StringVar(&updateField, "field", "", "Field to update: "+strings.Join(names, ", "))
	updateCmd.Flags().StringVar(&updateValue, "value", "", "New value")
	_ = updateCmd.MarkFlagRequired("field")
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("invalid patient id %q", arg)
	}
	return id, nil
}

func runIntake(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	if intakeLocation != "" && !location.Contains(svc.Locations(), intakeLocation) {
		return fmt.Errorf("unknown location %q (see 'covidtrack locations')", intakeLocation)
	}

	rec, err := svc.Intake(clinicPatient())
	if err != nil {
		return err
	}
	logger.Info("Patient registered", zap.Int("id", rec.ID))
	fmt.Printf("Your patient id is: %d\n", rec.ID)

	if svc.Catalog().Empty() {
		fmt.Println("Symptom database not found.")
		return nil
	}
	a, err := svc.Assess(rec.VisitedLocation != "", intakeSymptoms)
	if err != nil {
		return err
	}
	logger.Debug("Assessment", zap.Int("tier", int(a.Tier)), zap.Bool("visited", a.Visited), zap.Stringer("recommendation", a.Recommendation))
	fmt.Println(a.Recommendation.Message())
	return nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var result patient.TestResult
	switch strings.ToLower(submitResult) {
	case "positive":
		result = patient.TestPositive
	case "negative":
		result = patient.TestNegative
	default:
		return fmt.Errorf("invalid result %q (use positive or negative)", submitResult)
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	out, err := svc.SubmitTestResult(clinicSubmission(id, result))
	if err != nil {
		return err
	}

	logger.Info("Test result recorded", zap.Int("id", id), zap.String("result", string(result)))
	fmt.Printf("Test result %s recorded for %s.\n", out.Record.CovidTest, out.Record.Name)
	if out.LocationRegistered {
		fmt.Printf("%s added to the high-risk locations.\n", submitLocation)
	}
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	field, ok := fieldFlags[strings.ToLower(updateField)]
	if !ok {
		return fmt.Errorf("unknown field %q", updateField)
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	rec, err := svc.UpdateField(id, field, updateValue)
	if err != nil {
		return err
	}

	logger.Info("Patient updated", zap.Int("id", id), zap.Stringer("field", field), zap.Bool("changed", field.Mutable()))
	fmt.Println("Updated.")
	if !field.Mutable() {
		fmt.Printf("%s cannot be changed; the record was left as is.\n", field)
	}
	fmt.Print(ui.NewRenderer(styles().Theme, cfg.UI.Width).Render(ui.PatientMarkdown(rec)))
	return nil
}

func runPatients(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	records := svc.Patients()
	if len(records) == 0 {
		fmt.Println("No patients recorded.")
		return nil
	}
	fmt.Print(ui.PatientsTable(records).View(styles()))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	svc, err := newService()
	if err != nil {
		return err
	}
	rec, err := svc.Patient(id)
	if err != nil {
		return err
	}
	fmt.Print(ui.NewRenderer(styles().Theme, cfg.UI.Width).Render(ui.PatientMarkdown(rec)))
	return nil
}
func clinicPatient() clinic.NewPatient {
	return clinic.NewPatient{
		Name:                 intakeName,
		DateOfBirth:          intakeDOB,
		Address:              intakeAddress,
		RecentOverseasTravel: intakeTravel,
		VisitedLocation:      intakeLocation,
		VisitDateTime:        intakeVisitedAt,
	}
}

func clinicSubmission(id int, result patient.TestResult) clinic.TestSubmission {
	return clinic.TestSubmission{
		PatientID:     id,
		Result:        result,
		Location:      submitLocation,
		VisitDateTime: submitVisitedAt,
	}
}
