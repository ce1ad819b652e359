// Package tui provides a terminal user interface for wavenotes
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/wavenotes/pkg/converter"
	"github.com/james-see/wavenotes/pkg/notes"
	"github.com/james-see/wavenotes/pkg/session"
)

// Waveform-inspired color scheme
var (
	waveCyan   = lipgloss.Color("#00E5FF")
	waveAmber  = lipgloss.Color("#FFB300")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(waveCyan).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(waveCyan).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(waveAmber).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(waveCyan).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(waveCyan).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateWorking
	StateTweak
	StateResult
)

// Action is what a menu entry does with the picked file
type Action int

const (
	ActionAnalyze Action = iota
	ActionClean
	ActionPreview
	ActionJSON
	ActionExit
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Action      Action
	Types       []string
}

var menuItems = []MenuItem{
	{Title: "Audio → Notes", Description: "Transcribe a recording and tweak the notes", Action: ActionAnalyze, Types: []string{".wav", ".mp3", ".flac", ".ogg", ".m4a"}},
	{Title: "Clean MIDI", Description: "Run the post-processing pipeline over a MIDI file", Action: ActionClean, Types: []string{".mid", ".midi", ".json"}},
	{Title: "Render Preview", Description: "Render a sine-wave WAV preview of a MIDI file", Action: ActionPreview, Types: []string{".mid", ".midi", ".json"}},
	{Title: "MIDI → JSON", Description: "Export cleaned notes as JSON", Action: ActionJSON, Types: []string{".mid", ".midi"}},
	{Title: "Exit", Description: "Exit the application", Action: ActionExit},
}

// Options configures the TUI
type Options struct {
	Settings notes.Settings
	Tempo    float64
	Session  session.Options
}

// Model represents the TUI model
type Model struct {
	opts         Options
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	selectedFile string
	outputFile   string
	action       MenuItem
	err          error
	width        int
	height       int

	settings notes.Settings
	sess     *session.Session
	notes    []notes.NoteEvent
	progress int
	stage    string
	status   string
	updates  chan tea.Msg
}

type progressMsg struct {
	pct int
	msg string
}

type analysisDoneMsg struct {
	sess  *session.Session
	notes []notes.NoteEvent
	err   error
}

// conversionDoneMsg signals conversion completion
type conversionDoneMsg struct {
	outputFile string
	err        error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New(opts Options) Model {
	if opts.Tempo <= 0 {
		opts.Tempo = converter.DefaultTempo
	}

	fp := filepicker.New()
	fp.AllowedTypes = menuItems[0].Types
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(waveCyan)

	return Model{
		opts:       opts,
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
		settings:   opts.Settings,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// the file picker needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateWorking
			if m.action.Action == ActionAnalyze {
				m.updates = make(chan tea.Msg, 8)
				return m, tea.Batch(m.spinner.Tick, m.startAnalysis(), waitFor(m.updates))
			}
			return m, tea.Batch(m.spinner.Tick, m.performConversion())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateTweak:
			return m.updateTweak(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		m.progress, m.stage = msg.pct, msg.msg
		return m, waitFor(m.updates)

	case analysisDoneMsg:
		if msg.err != nil {
			m.state = StateResult
			m.err = msg.err
			return m, nil
		}
		m.sess = msg.sess
		m.notes = msg.notes
		m.state = StateTweak
		m.status = ""
		return m, nil

	case conversionDoneMsg:
		if m.state == StateTweak {
			m.status = fmt.Sprintf("wrote %s", filepath.Base(msg.outputFile))
			if msg.err != nil {
				m.status = fmt.Sprintf("export failed: %v", msg.err)
			}
			return m, nil
		}
		m.state = StateResult
		m.outputFile = msg.outputFile
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		item := menuItems[m.menuIndex]
		if item.Action == ActionExit {
			return m, tea.Quit
		}
		m.action = item
		m.state = StateFilePicker
		m.filePicker.AllowedTypes = item.Types
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.outputFile = ""
		return m, nil
	case "q", "ctrl+c":
		m.closeSession()
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) closeSession() {
	if m.sess != nil {
		m.sess.Close()
		m.sess = nil
	}
}

// waitFor delivers the next message sent on ch
func waitFor(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func (m Model) startAnalysis() tea.Cmd {
	input, settings, ch := m.selectedFile, m.settings, m.updates
	opts := m.opts.Session
	return func() tea.Msg {
		sess, err := session.New(opts)
		if err != nil {
			ch <- analysisDoneMsg{err: err}
			return nil
		}
		a, err := sess.Analyze(context.Background(), input, settings, func(pct int, msg string) {
			ch <- progressMsg{pct: pct, msg: msg}
		})
		if err != nil {
			sess.Close()
			ch <- analysisDoneMsg{err: err}
			return nil
		}
		ch <- analysisDoneMsg{sess: sess, notes: a.Notes}
		return nil
	}
}

func (m Model) performConversion() tea.Cmd {
	input, action := m.selectedFile, m.action.Action
	conv := converter.New(m.settings, m.opts.Tempo)
	return func() tea.Msg {
		base := strings.TrimSuffix(input, filepath.Ext(input))

		var outputFile string
		switch action {
		case ActionClean:
			outputFile = base + "_clean.mid"
		case ActionPreview:
			outputFile = base + "_preview.wav"
		case ActionJSON:
			outputFile = base + ".json"
		default:
			return conversionDoneMsg{err: fmt.Errorf("unsupported action")}
		}

		if err := conv.ConvertFile(input, outputFile); err != nil {
			return conversionDoneMsg{err: err}
		}
		return conversionDoneMsg{outputFile: outputFile}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateWorking:
		s.WriteString(m.viewWorking())
	case StateTweak:
		s.WriteString(m.viewTweak())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT ACTION "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(waveAmber).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" SELECT FILE: %s ", strings.ToUpper(m.action.Title))))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewWorking() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" WORKING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	if m.action.Action == ActionAnalyze {
		s.WriteString(statusStyle.Render(fmt.Sprintf("  [%3d%%] %s", m.progress, m.stage)))
	} else {
		s.WriteString(statusStyle.Render(fmt.Sprintf("  %s", m.action.Title)))
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Failed: %s", m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Done!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:  %s\n", filepath.Base(m.selectedFile)))
		s.WriteString(fmt.Sprintf("Output: %s", filepath.Base(m.outputFile)))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
 __        __              _   _       _
 \ \      / /_ ___   _____| \ | | ___ | |_ ___  ___
  \ \ /\ / / _' \ \ / / _ \  \| |/ _ \| __/ _ \/ __|
   \ V  V / (_| |\ V /  __/ |\  | (_) | ||  __/\__ \
    \_/\_/ \__,_| \_/ \___|_| \_|\___/ \__\___||___/
`
	return lipgloss.NewStyle().Foreground(waveCyan).Render(logo)
}

// Run starts the TUI application
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.closeSession()
	}
	return err
}
