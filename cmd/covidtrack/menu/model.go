// Package menu implements the interactive numbered menu as a bubbletea program.
package menu

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"covidtrack/cmd/covidtrack/ui"
	"covidtrack/internal/clinic"
	"covidtrack/internal/logging"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	unknownSelection = "Unknown selection, please try again"
	pressAnyKey      = "Press any key to continue..."
)

type state int

const (
	stateMenu state = iota
	stateFlow
	stateResult
)

// DataChangedMsg reports that a data file was modified outside the menu.
type DataChangedMsg struct {
	Path string
}

// Model is the menu program state.
type Model struct {
	svc      *clinic.Service
	styles   ui.Styles
	renderer *ui.Renderer
	onWrite  func()

	input    textinput.Model
	viewport viewport.Model

	state  state
	flow   *flow
	result string
	errMsg string
	notice string
	width  int
	height int
	quit   bool
}

// Option configures a Model.
type Option func(*Model)

// WithStyles sets the styles used for rendering.
func WithStyles(s ui.Styles) Option {
	return func(m *Model) { m.styles = s }
}

// WithRenderer sets the markdown renderer for patient listings.
func WithRenderer(r *ui.Renderer) Option {
	return func(m *Model) { m.renderer = r }
}

// WithWriteHook registers fn to run right after each write the menu makes to the data files.
func WithWriteHook(fn func()) Option {
	return func(m *Model) { m.onWrite = fn }
}

// New creates the menu over svc.
func New(svc *clinic.Service, opts ...Option) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 1024
	ti.Width = 60
	ti.Focus()

	m := Model{
		svc:      svc,
		styles:   ui.DefaultStyles(),
		renderer: ui.PlainRenderer(),
		input:    ti,
		viewport: viewport.New(80, 20),
		width:    80,
		height:   24,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.input.PromptStyle = m.styles.Prompt
	m.input.TextStyle = m.styles.Body
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Quitting reports whether the user chose Quit.
func (m Model) Quitting() bool {
	return m.quit
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 3)
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case DataChangedMsg:
		m.notice = fmt.Sprintf("%s was changed on disk; the next operation uses the new contents.", filepath.Base(msg.Path))
		logging.UI("Data file changed: %s", msg.Path)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quit = true
			return m, tea.Quit
		}
		switch m.state {
		case stateResult:
			return m.updateResult(msg)
		case stateFlow:
			if msg.Type == tea.KeyEsc {
				logging.UI("Flow %q cancelled", m.flow.title)
				m.flow = nil
				m.state = stateMenu
				m.errMsg = ""
				m.input.Reset()
				return m, nil
			}
		}
		if msg.Type == tea.KeyEnter {
			value := m.input.Value()
			m.input.Reset()
			if m.state == stateMenu {
				return m.selectMenu(value)
			}
			return m.submit(value)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "down", "pgup", "pgdown", "k", "j":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	m.state = stateMenu
	m.errMsg = ""
	return m, nil
}

// parseSelection reads a menu number in [1, n].
func parseSelection(value string, n int) (int, bool) {
	sel, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || sel < 1 || sel > n {
		return 0, false
	}
	return sel, true
}

func (m Model) selectMenu(value string) (tea.Model, tea.Cmd) {
	sel, ok := parseSelection(value, len(menuItems))
	if !ok {
		m.errMsg = unknownSelection
		return m, nil
	}
	m.errMsg = ""
	m.notice = ""
	logging.UI("Menu selection %d", sel)

	switch sel {
	case 1:
		return m.startFlow(m.intakeFlow())
	case 2:
		return m.startFlow(m.submitFlow())
	case 3:
		return m.showResult(m.locationsResult()), nil
	case 4:
		return m.startFlow(m.updateFlow())
	case 5:
		return m.showResult(m.patientsResult()), nil
	default:
		m.quit = true
		return m, tea.Quit
	}
}

func (m Model) startFlow(f *flow) (tea.Model, tea.Cmd) {
	f.onWrite = m.onWrite
	m.flow = f
	m.state = stateFlow
	return m.advance()
}

// advance moves to the next step that is not skipped, running its enter
// hook, or finishes the flow.
func (m Model) advance() (tea.Model, tea.Cmd) {
	f := m.flow
	for f.idx < len(f.steps) {
		s := f.steps[f.idx]
		if s.skip != nil && s.skip() {
			f.idx++
			continue
		}
		if s.enter != nil && !s.entered {
			s.entered = true
			note, err := s.enter()
			if note != "" {
				f.transcript = append(f.transcript, note)
			}
			if errors.Is(err, errSkipStep) {
				f.idx++
				continue
			}
			if err != nil {
				return m.endFlow(err), nil
			}
		}
		return m, nil
	}

	result, err := f.finish()
	if err != nil {
		return m.endFlow(err), nil
	}
	return m.complete(result), nil
}

func (m Model) submit(value string) (tea.Model, tea.Cmd) {
	f := m.flow
	s := f.steps[f.idx]

	var err error
	done := true
	switch s.kind {
	case stepChoice:
		sel, ok := parseSelection(value, len(s.options))
		if !ok {
			m.errMsg = unknownSelection
			return m, nil
		}
		err = s.onChoice(sel)
		value = s.options[sel-1]
	case stepList:
		done, err = s.onItem(value)
	default:
		err = s.onText(value)
	}

	if err != nil {
		var final endFlowError
		if errors.As(err, &final) {
			return m.endFlow(err), nil
		}
		m.errMsg = err.Error()
		return m, nil
	}

	m.errMsg = ""
	answer := m.styles.Bold.Render("> " + value)
	if s.kind == stepList && s.answered > 0 {
		f.transcript = append(f.transcript, answer)
	} else {
		f.transcript = append(f.transcript, s.prompt+"\n"+answer)
	}
	s.answered++
	if done {
		f.idx++
		return m.advance()
	}
	return m, nil
}

// endFlow shows err as the flow outcome.
func (m Model) endFlow(err error) Model {
	var body string
	var final endFlowError
	if errors.As(err, &final) {
		body = final.msg
	} else {
		logging.Get(logging.CategoryUI).Error("Flow %q failed: %v", m.flow.title, err)
		body = m.styles.Error.Render(err.Error())
	}
	return m.complete(body)
}

func (m Model) complete(body string) Model {
	f := m.flow
	var sb strings.Builder
	for _, line := range f.transcript {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if body != "" {
		sb.WriteString(body)
		sb.WriteString("\n")
	}
	m.flow = nil
	return m.showResult(sb.String())
}

func (m Model) showResult(body string) Model {
	m.state = stateResult
	m.result = body
	m.viewport.SetContent(body)
	m.viewport.GotoTop()
	return m
}

var menuItems = []string{
	"Enter your detail for COVID-Test Recommendation",
	"Submit Your Covid test status & Update the Location database",
	"Display the Updated Location (High Risk for COVID)",
	"Update COVID Patient Details",
	"Display the COVID Positive Patient Detail",
	"Quit",
}

func (m Model) View() string {
	if m.quit {
		return "Goodbye\n"
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render("COVID-19 Patient Tracker"))
	sb.WriteString("\n")
	if m.notice != "" {
		sb.WriteString(m.styles.Warning.Render(m.notice))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	switch m.state {
	case stateResult:
		sb.WriteString(m.viewport.View())
		sb.WriteString("\n")
		sb.WriteString(m.styles.Footer.Render(pressAnyKey))
		return sb.String()

	case stateFlow:
		f := m.flow
		sb.WriteString(m.styles.Title.Render(f.title))
		sb.WriteString("\n")
		for _, line := range f.transcript {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		if f.idx < len(f.steps) {
			sb.WriteString(renderStep(m.styles, f.steps[f.idx]))
		}

	default:
		for i, item := range menuItems {
			sb.WriteString(m.styles.Option.Render(fmt.Sprintf("%d- %s", i+1, item)))
			sb.WriteString("\n")
		}
		sb.WriteString(m.styles.Prompt.Render(fmt.Sprintf("Please enter a value between 1 and %d:", len(menuItems))))
		sb.WriteString("\n")
	}

	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	if m.errMsg != "" {
		sb.WriteString(m.styles.Error.Render(m.errMsg))
		sb.WriteString("\n")
	}
	sb.WriteString(m.styles.Footer.Render("enter: submit • esc: back to menu • ctrl+c: exit"))
	return sb.String()
}

func renderStep(styles ui.Styles, s *step) string {
	var sb strings.Builder
	sb.WriteString(styles.Prompt.Render(s.prompt))
	sb.WriteString("\n")
	if s.kind == stepChoice {
		for i, opt := range s.options {
			sb.WriteString(styles.Option.Render(fmt.Sprintf("%d- %s", i+1, opt)))
			sb.WriteString("\n")
		}
		sb.WriteString(styles.Muted.Render(fmt.Sprintf("Please enter a value between 1 and %d:", len(s.options))))
		sb.WriteString("\n")
	}
	return sb.String()
}
