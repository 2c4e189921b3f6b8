package prompt

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI presents selections as a filterable list and falls back to line
// prompts for yes/no and path questions.
type TUI struct {
	*Line
	in  io.Reader
	out io.Writer
}

var _ Prompt = (*TUI)(nil)

// NewTUI returns a TUI on the given terminal streams.
func NewTUI(in io.Reader, out io.Writer) *TUI {
	return &TUI{Line: NewLine(in, out), in: in, out: out}
}

// Select implements Prompt.
func (t *TUI) Select(title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("prompt: %s: nothing to choose from", title)
	}
	p := tea.NewProgram(newSelectModel(title, options), tea.WithInput(t.in), tea.WithOutput(t.out))
	final, err := p.Run()
	if err != nil {
		return -1, fmt.Errorf("prompt: %w", err)
	}
	m := final.(selectModel)
	if m.canceled {
		return -1, ErrCanceled
	}
	return m.chosen, nil
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#6BCB77")).
			MarginLeft(1)
	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginLeft(1)
)

type option struct {
	index int
	label string
}

func (o option) Title() string       { return o.label }
func (o option) Description() string { return "" }
func (o option) FilterValue() string { return o.label }

type selectModel struct {
	title    string
	list     list.Model
	chosen   int
	canceled bool
}

func newSelectModel(title string, options []string) selectModel {
	items := make([]list.Item, len(options))
	for i, o := range options {
		items[i] = option{index: i, label: o}
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetHeight(1)
	delegate.SetSpacing(0)

	height := len(options) + 6
	if height > 20 {
		height = 20
	}
	l := list.New(items, delegate, 60, height)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return selectModel{title: title, list: l, chosen: -1}
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width - 2)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.canceled = true
			return m, tea.Quit
		case "enter":
			if o, ok := m.list.SelectedItem().(option); ok {
				m.chosen = o.index
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m selectModel) View() string {
	return titleStyle.Render(m.title) + "\n" +
		m.list.View() + "\n" +
		hintStyle.Render("enter to choose, / to filter, esc to cancel")
}
