package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/replaycast/replay"
)

// keyMap defines key bindings.
type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// TodayModel is a Bubble Tea model listing the replays of one game day.
type TodayModel struct {
	listing  *replay.Listing
	cursor   int
	width    int
	quitting bool
}

// NewTodayModel creates a model for listing.
func NewTodayModel(listing *replay.Listing) TodayModel {
	return TodayModel{listing: listing}
}

// Init implements tea.Model.
func (m TodayModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m TodayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.listing.Entries)-1 {
				m.cursor++
			}
		}
	}
	return m, nil
}

// Cursor returns the selected row index.
func (m TodayModel) Cursor() int {
	return m.cursor
}

// View implements tea.Model.
func (m TodayModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Game day %s to %s",
		m.listing.Start.Format("Mon Jan 2 15:04"),
		m.listing.End.Format("Mon Jan 2 15:04"))))
	b.WriteString("\n")

	if len(m.listing.Entries) == 0 {
		b.WriteString(EmptyStyle.Render("No replays yet today"))
	} else {
		for i, e := range m.listing.Entries {
			row := RankStyle.Render(e.Ordinal) + " " + e.Name
			if i == m.cursor {
				row = SelectedStyle.Render("> " + row)
			} else {
				row = "  " + row
			}
			b.WriteString(row + "\n")
		}
		b.WriteString("\n")
		b.WriteString(m.renderDetail(m.listing.Entries[m.cursor]))
	}

	help := HelpStyle.Render(fmt.Sprintf("%s %s • %s %s • %s %s",
		keys.Up.Help().Key, keys.Up.Help().Desc,
		keys.Down.Help().Key, keys.Down.Help().Desc,
		keys.Quit.Help().Key, keys.Quit.Help().Desc))
	return b.String() + "\n" + help
}

func (m TodayModel) renderDetail(e replay.Entry) string {
	rows := []struct{ label, value string }{
		{"Path", e.Path},
		{"Modified", e.ModTime.Format("2006-01-02 15:04:05")},
		{"Size", fmt.Sprintf("%d bytes", e.Size)},
		{"Rank", e.Ordinal},
	}
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(LabelStyle.Render(r.label) + ValueStyle.Render(r.value))
	}
	return BoxStyle.Render(b.String())
}

// RunTodayTUI runs the game-day view. data must be a *replay.Listing.
func RunTodayTUI(data any) error {
	listing, ok := data.(*replay.Listing)
	if !ok {
		return fmt.Errorf("today view needs *replay.Listing, got %T", data)
	}
	_, err := tea.NewProgram(NewTodayModel(listing), tea.WithAltScreen()).Run()
	return err
}
