// Package tui provides a terminal user interface for markov2midi
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
	"github.com/james-see/markov2midi/pkg/composer"
	"github.com/james-see/markov2midi/pkg/config"
	"github.com/james-see/markov2midi/pkg/corpus"
	"github.com/james-see/markov2midi/pkg/logging"
	"github.com/james-see/markov2midi/pkg/markov"
)

// Sheet-music palette: ivory on ink with a brass accent
var (
	ivory = lipgloss.Color("#FFFFF0")
	brass = lipgloss.Color("#D4AF37")
	slate = lipgloss.Color("#8A8F98")
	ink   = lipgloss.Color("#1B1B2F")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(brass).
			Background(ink).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(slate).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(brass).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(ivory).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(brass).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(brass).
			Padding(1, 2)
)

// previewLength is how many generated notes the result view shows
const previewLength = 16

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StatePicker
	StateComposing
	StateResult
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Mode        composer.Mode
}

var menuItems = []MenuItem{
	{Title: "Combined model", Description: "One model over every note and chord tone", Mode: composer.ModeCombined},
	{Title: "Two-hand model", Description: "Separate left/right hand models, played left then right", Mode: composer.ModeHands},
	{Title: "Exit", Description: "Exit the application"},
}

// Model represents the TUI model
type Model struct {
	cfg        *config.Config
	state      State
	menuIndex  int
	filePicker filepicker.Model
	spinner    spinner.Model
	corpusDir  string
	item       MenuItem
	result     *composer.Result
	outputFile string
	err        error
	width      int
	height     int
}

// composeDoneMsg signals composition completion
type composeDoneMsg struct {
	result     *composer.Result
	outputFile string
	err        error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New(cfg *config.Config) Model {
	if cfg == nil {
		cfg = config.Load()
	}

	// Directory picker: the corpus is a folder, not a file
	fp := filepicker.New()
	fp.DirAllowed = true
	fp.FileAllowed = false
	fp.CurrentDirectory, _ = os.Getwd()
	if cfg.CorpusDir != "" {
		fp.CurrentDirectory = cfg.CorpusDir
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(brass)

	return Model{
		cfg:        cfg,
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The picker needs to receive every message while it is open
	if m.state == StatePicker {
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
			m.corpusDir = path
			m.state = StateComposing
			return m, tea.Batch(m.spinner.Tick, m.compose())
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
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case composeDoneMsg:
		m.state = StateResult
		m.result = msg.result
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
		if m.menuIndex == len(menuItems)-1 {
			return m, tea.Quit
		}
		m.item = menuItems[m.menuIndex]
		m.state = StatePicker
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
		m.result = nil
		m.corpusDir = ""
		m.outputFile = ""
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// options turns the environment configuration into composition options
func (m Model) options() (composer.Options, error) {
	opts := composer.DefaultOptions()
	opts.Mode = m.item.Mode
	opts.Length = m.cfg.Length

	chords, err := corpus.ParseChordPolicy(m.cfg.Chords)
	if err != nil {
		return opts, err
	}
	opts.Chords = chords

	if m.cfg.Threshold < 0 || m.cfg.Threshold > markov.MaxPitch {
		return opts, fmt.Errorf("threshold %d out of range", m.cfg.Threshold)
	}
	opts.Threshold = markov.Pitch(m.cfg.Threshold)

	if m.cfg.Start != "" {
		p, err := markov.ParsePitch(m.cfg.Start)
		if err != nil {
			return opts, err
		}
		opts.Start = &p
	}

	opts.Seed, err = config.ParseSeed(m.cfg.Seed)
	if err != nil {
		return opts, err
	}
	return opts, opts.Validate()
}

func (m Model) compose() tea.Cmd {
	return func() tea.Msg {
		opts, err := m.options()
		if err != nil {
			return composeDoneMsg{err: err}
		}

		// log lines would tear the alternate screen
		c := composer.New(nil, logging.Discard())
		c.SetWorkers(m.cfg.Workers)

		outputFile := m.cfg.Output
		result, err := c.ComposeDir(context.Background(), m.corpusDir, outputFile, opts)
		if err != nil {
			return composeDoneMsg{err: err}
		}
		return composeDoneMsg{result: result, outputFile: outputFile}
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
	case StatePicker:
		s.WriteString(m.viewPicker())
	case StateComposing:
		s.WriteString(m.viewComposing())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	// Footer help
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT MODEL "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(ivory).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewPicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT CORPUS DIRECTORY "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("→: open • enter: use directory • esc: back to menu"))

	return s.String()
}

func (m Model) viewComposing() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" COMPOSING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Learning from %s...\n", m.spinner.View(), filepath.Base(m.corpusDir)))
	s.WriteString(statusStyle.Render(fmt.Sprintf("  %s mode, %d notes per stream", m.item.Mode, m.cfg.Length)))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Generation failed: %s", m.err.Error())))
	} else if m.result != nil {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Generation complete!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Corpus: %s (%d files", m.corpusDir, m.result.Files))
		if n := len(m.result.Skipped); n > 0 {
			s.WriteString(fmt.Sprintf(", %d skipped", n))
		}
		s.WriteString(")\n")
		for _, st := range m.result.Streams {
			s.WriteString(fmt.Sprintf("Stream: %-5s %d transitions\n", st.Name, st.Transitions))
		}
		s.WriteString(fmt.Sprintf("Seed:   %d\n", m.result.Seed))
		s.WriteString(fmt.Sprintf("Output: %s\n", m.outputFile))
		s.WriteString(statusStyle.Render("Notes:  " + preview(m.result.Sequence)))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func preview(seq markov.Sequence) string {
	names := seq.Strings()
	if len(names) > previewLength {
		return strings.Join(names[:previewLength], " ") + " …"
	}
	return strings.Join(names, " ")
}

func asciiLogo() string {
	logo := `
                     _                ____            _     _ _
  _ __ ___   __ _ _ __| | _______   __ |___ \ _ __ ___ (_) __| (_)
 | '_ ' _ \ / _' | '__| |/ / _ \ \ / /   __) | '_ ' _ \| |/ _' | |
 | | | | | | (_| | |  |   < (_) \ V /   / __/| | | | | | | (_| | |
 |_| |_| |_|\__,_|_|  |_|\_\___/ \_/   |_____|_| |_| |_|_|\__,_|_|
`
	return lipgloss.NewStyle().Foreground(brass).Render(logo)
}

// Run starts the TUI application
func Run(cfg *config.Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
