package menu

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"covidtrack/cmd/covidtrack/ui"
	"covidtrack/internal/clinic"
	"covidtrack/internal/watch"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	paths  clinic.Paths
	writes int
}

func newFixture(t *testing.T, patients, locations, symptoms string) (*fixture, Model) {
	t.Helper()
	dir := t.TempDir()
	fx := &fixture{paths: clinic.Paths{
		Patients:  filepath.Join(dir, "patientDetails.csv"),
		Locations: filepath.Join(dir, "locations.txt"),
		Symptoms:  filepath.Join(dir, "symptoms.csv"),
	}}
	for path, content := range map[string]string{
		fx.paths.Patients:  patients,
		fx.paths.Locations: locations,
		fx.paths.Symptoms:  symptoms,
	} {
		if content != "" {
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		}
	}

	svc, err := clinic.NewService(fx.paths, nil)
	require.NoError(t, err)
	m := New(svc,
		WithStyles(ui.NewStyles(ui.DarkTheme())),
		WithWriteHook(func() { fx.writes++ }),
	)
	return fx, m
}

func (fx *fixture) read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// enter types line and presses Enter.
func enter(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	var tm tea.Model = m
	if line != "" {
		tm, _ = tm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(line)})
	}
	tm, cmd := tm.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return tm.(Model), cmd
}

func enterAll(t *testing.T, m Model, lines ...string) Model {
	t.Helper()
	for _, line := range lines {
		m, _ = enter(t, m, line)
	}
	return m
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	tm, cmd := m.Update(tea.KeyMsg{Type: k})
	return tm.(Model), cmd
}

const catalog = "cough,fever\nfatigue\nbreathlessness\n"

func TestMenuRejectsUnknownSelection(t *testing.T) {
	_, m := newFixture(t, "", "", "")

	for _, in := range []string{"0", "7", "abc", ""} {
		m, _ = enter(t, m, in)
		assert.Equal(t, stateMenu, m.state, in)
		assert.Equal(t, unknownSelection, m.errMsg, in)
	}
	assert.Contains(t, m.View(), unknownSelection)
}

func TestMenuQuit(t *testing.T) {
	_, m := newFixture(t, "", "", "")

	m, cmd := enter(t, m, "6")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.Quitting())
	assert.Equal(t, "Goodbye\n", m.View())
}

func TestCtrlCQuitsFromFlow(t *testing.T) {
	_, m := newFixture(t, "", "", "")
	m, _ = enter(t, m, "1")

	m, cmd := press(m, tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.Quitting())
}

func TestIntakeWithoutLocations(t *testing.T) {
	fx, m := newFixture(t, "", "", catalog)

	m = enterAll(t, m, "1", "Ann", "1990-01-01", "1 Road", "No")
	assert.Equal(t, stateFlow, m.state)
	assert.Contains(t, m.View(), "No locations found")
	assert.Contains(t, m.View(), "Your patient id is: 0")

	m = enterAll(t, m, "fatigue", "sneezing", "Done")
	require.Equal(t, stateResult, m.state)
	assert.Contains(t, m.result, "Your patient id is: 0")
	assert.Contains(t, m.result, "We do not recommend you get tested")

	assert.Equal(t, "0,Ann,1990-01-01,1 Road,,,No,,\n", fx.read(t, fx.paths.Patients))
	assert.Equal(t, 1, fx.writes)

	m, _ = press(m, tea.KeySpace)
	assert.Equal(t, stateMenu, m.state)
}

func TestIntakeWithVisitedLocation(t *testing.T) {
	fx, m := newFixture(t, "4,Old,,,,,,,\n", "Mall X\nAirport\n", catalog)

	m = enterAll(t, m, "1", "Ben", "dob", "addr", "Yes")
	assert.Contains(t, m.View(), "3- None of the above")

	m, _ = enter(t, m, "5")
	assert.Equal(t, unknownSelection, m.errMsg)

	m = enterAll(t, m, "1", "Mon 9am", "cough", "Done")
	require.Equal(t, stateResult, m.state)
	assert.Contains(t, m.result, "Your patient id is: 5")
	assert.Contains(t, m.result, "Please immediately isolate and test for COVID as soon as possible.")
	assert.Equal(t, "4,Old,,,,,,,\n5,Ben,dob,addr,Mall X,Mon 9am,Yes,,\n", fx.read(t, fx.paths.Patients))
}

func TestIntakeNoneOfTheAboveSkipsVisitTime(t *testing.T) {
	fx, m := newFixture(t, "", "Mall X\n", catalog)

	m = enterAll(t, m, "1", "Cy", "dob", "addr", "No", "2", "Done")
	require.Equal(t, stateResult, m.state)
	assert.Contains(t, m.result, "We do not recommend you isolate at the moment.")
	assert.Equal(t, "0,Cy,dob,addr,,,No,,\n", fx.read(t, fx.paths.Patients))
}

func TestIntakeWithoutSymptomDatabase(t *testing.T) {
	fx, m := newFixture(t, "", "", "")

	m = enterAll(t, m, "1", "Di", "dob", "addr", "No")
	require.Equal(t, stateResult, m.state)
	assert.Contains(t, m.result, "Your patient id is: 0")
	assert.Contains(t, m.result, "Symptom database not found.")
	assert.Equal(t, "0,Di,dob,addr,,,No,,\n", fx.read(t, fx.paths.Patients))
	assert.Equal(t, 1, fx.writes)
}

func TestIntakeRejectsCommas(t *testing.T) {
	_, m := newFixture(t, "", "", catalog)

	m = enterAll(t, m, "1", "Ann, Jr")
	assert.Equal(t, stateFlow, m.state)
	assert.NotEmpty(t, m.errMsg)
	assert.Equal(t, 0, m.flow.idx)
}

func TestEscCancelsFlow(t *testing.T) {
	fx, m := newFixture(t, "", "", catalog)

	m = enterAll(t, m, "1", "Ann")
	m, _ = press(m, tea.KeyEsc)
	assert.Equal(t, stateMenu, m.state)
	assert.Nil(t, m.flow)

	_, err := os.Stat(fx.paths.Patients)
	assert.True(t, os.IsNotExist(err))
}

func TestSubmitUnknownPatient(t *testing.T) {
	_, m := newFixture(t, "1,A,,,,,,,\n", "", "")

	m, _ = enter(t, m, "2")
	m, _ = enter(t, m, "x")
	assert.Equal(t, unknownSelection, m.errMsg)

	m, _ = enter(t, m, "9")
	require.Equal(t, stateResult, m.state)
	assert.Contains(t, m.result, "Could not find patient with id: 9")
}

func TestSubmitPositiveRegistersLocation(t *testing.T) {
	fx, m := newFixture(t, "1,Ann,dob,addr,,,No,,\n", "Airport\n", "")

	m = enterAll(t, m, "2", "1")
	assert.Contains(t, m.View(), "Please select the test result for Ann:")

	m = enterAll(t, m, "1")
	assert.Contains(t, m.View(), "Please enter the last location Ann visited:")

	m, _ = enter(t, m, "")
	assert.NotEmpty(t, m.errMsg)

	m = enterAll(t, m, "Mall X", "Tue noon")
	require.Equal(t, stateResult, m.state)
	assert.Contains(t, m.result, "Mall X added to the high-risk locations.")

	assert.Equal(t, "Airport\nMall X\n", fx.read(t, fx.paths.Locations))
	assert.Equal(t, "1,Ann,dob,addr,Mall X,Tue noon,No,Positive,\n", fx.read(t, fx.paths.Patients))
	assert.Equal(t, 1, fx.writes)
}

func TestSubmitNegative(t *testing.T) {
	fx, m := newFixture(t, "1,Ann,dob,addr,,,No,,\n", "", "")

	m = enterAll(t, m, "2", "1", "2")
	require.Equal(t, stateResult, m.state)
	assert.Contains(t, m.result, "Negative")
	assert.Equal(t, "1,Ann,dob,addr,,,No,Negative,\n", fx.read(t, fx.paths.Patients))

	_, err := os.Stat(fx.paths.Locations)
	assert.True(t, os.IsNotExist(err))
}

func TestUpdateName(t *testing.T) {
	fx, m := newFixture(t, "5,Old,dob,addr,Mall X,noon,Yes,Positive,sick\n", "", "")

	m = enterAll(t, m, "4", "5")
	assert.Contains(t, m.View(), "9- Quit")

	m = enterAll(t, m, "2", "New")
	require.Equal(t, stateResult, m.state)
	assert.Contains(t, m.result, "Updated.")
	assert.Contains(t, m.result, "New")
	assert.Equal(t, "5,New,dob,addr,Mall X,noon,Yes,Positive,sick\n", fx.read(t, fx.paths.Patients))
}

func TestUpdateImmutableField(t *testing.T) {
	fx, m := newFixture(t, "5,Old,dob,addr,,,No,,\n", "", "")

	m = enterAll(t, m, "4", "5", "3", "2000-01-01")
	require.Equal(t, stateResult, m.state)
	assert.Contains(t, m.result, "Date of Birth cannot be changed")
	assert.Equal(t, "5,Old,dob,addr,,,No,,\n", fx.read(t, fx.paths.Patients))
}

func TestUpdateQuitOption(t *testing.T) {
	_, m := newFixture(t, "5,Old,,,,,,,\n", "", "")

	m = enterAll(t, m, "4", "5", "9")
	require.Equal(t, stateResult, m.state)
	assert.Contains(t, m.result, "No changes made.")
}

func TestUpdateUnknownPatient(t *testing.T) {
	_, m := newFixture(t, "", "", "")

	m = enterAll(t, m, "4", "3")
	require.Equal(t, stateResult, m.state)
	assert.Contains(t, m.result, "Could not find patient with id: 3")
}

func TestUpdateRejectsDelimiter(t *testing.T) {
	_, m := newFixture(t, "5,Old,,,,,,,\n", "", "")

	m = enterAll(t, m, "4", "5", "4", "1,Road")
	assert.Equal(t, stateFlow, m.state)
	assert.NotEmpty(t, m.errMsg)
}

func TestDisplayLocations(t *testing.T) {
	_, m := newFixture(t, "", "Mall X\nAirport\n", "")

	m, _ = enter(t, m, "3")
	require.Equal(t, stateResult, m.state)
	assert.Contains(t, m.result, "The current High Risk Locations for COVID are:")
	assert.Contains(t, m.result, "Mall X")
	assert.Contains(t, m.result, "Airport")
	assert.Contains(t, m.View(), pressAnyKey)
}

func TestDisplayPatients(t *testing.T) {
	_, m := newFixture(t, "1,Ann,,,,,,,\n2,Ben,,,,,,Positive,\n", "", "")

	m, _ = enter(t, m, "5")
	require.Equal(t, stateResult, m.state)
	assert.Contains(t, m.result, "Patient 1: Ann")
	assert.Contains(t, m.result, "Patient 2: Ben")
}

func TestResultScrollKeepsResult(t *testing.T) {
	_, m := newFixture(t, "", "Mall X\n", "")

	m, _ = enter(t, m, "3")
	m, _ = press(m, tea.KeyDown)
	assert.Equal(t, stateResult, m.state)
	m, _ = press(m, tea.KeyEnter)
	assert.Equal(t, stateMenu, m.state)
}

func TestDataChangedNotice(t *testing.T) {
	_, m := newFixture(t, "", "", "")

	tm, _ := m.Update(DataChangedMsg{Path: "/data/locations.txt"})
	m = tm.(Model)
	assert.Contains(t, m.View(), "locations.txt was changed on disk")

	m, _ = enter(t, m, "3")
	assert.NotContains(t, m.View(), "changed on disk")
}

func TestIntakeWriteAcknowledgedBeforeSymptoms(t *testing.T) {
	fx, _ := newFixture(t, "", "", catalog)

	changes := make(chan watch.Change, 8)
	w, err := watch.New([]string{fx.paths.Patients, fx.paths.Locations, fx.paths.Symptoms},
		func(c watch.Change) { changes <- c })
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	svc, err := clinic.NewService(fx.paths, nil)
	require.NoError(t, err)
	m := New(svc, WithStyles(ui.NewStyles(ui.DarkTheme())), WithWriteHook(w.Acknowledge))

	// The record is written when the symptom step opens.
	m = enterAll(t, m, "1", "Ann", "1990-01-01", "1 Road", "No")
	require.Equal(t, stateFlow, m.state)
	assert.Contains(t, m.View(), "Your patient id is: 0")
	require.FileExists(t, fx.paths.Patients)

	select {
	case c := <-changes:
		t.Fatalf("menu write reported as external change: %+v", c)
	case <-time.After(400 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(fx.paths.Locations, []byte("Mall X\n"), 0644))
	select {
	case c := <-changes:
		assert.Equal(t, fx.paths.Locations, c.Path)
	case <-time.After(3 * time.Second):
		t.Fatal("external write was not reported")
	}
}

func TestWindowResize(t *testing.T) {
	_, m := newFixture(t, "", "", "")

	tm, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = tm.(Model)
	assert.Equal(t, 120, m.viewport.Width)
	assert.Equal(t, 36, m.viewport.Height)
}
