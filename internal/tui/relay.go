package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/valpere/chaptertran/internal/relay"
)

type keyMap struct {
	Retry    key.Binding
	Navigate key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Retry: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "retry"),
	),
	Navigate: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open destination"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "close"),
	),
}

type tickMsg time.Time

// RelayModel shows which chunk is on the clipboard and how long until the
// next one. The model owns the one-second tick; the controller holds all
// state.
type RelayModel struct {
	c        *relay.Controller
	bar      progress.Model
	interval time.Duration
	notice   string
	width    int
	quitting bool
}

// NewRelayModel expects c to be started already.
func NewRelayModel(c *relay.Controller) RelayModel {
	return RelayModel{
		c:        c,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		interval: time.Second,
	}
}

func (m RelayModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m RelayModel) Init() tea.Cmd {
	return m.tick()
}

// Update implements tea.Model.
func (m RelayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 8; w > 10 && w < 60 {
			m.bar.Width = w
		}
		return m, nil

	case tickMsg:
		switch m.c.Tick().Phase {
		case relay.Idle, relay.Complete:
			return m, nil
		}
		return m, m.tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.c.Close()
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Retry):
			if err := m.c.Retry(); err != nil {
				m.notice = err.Error()
			} else {
				m.notice = ""
			}
			return m, nil

		case key.Matches(msg, keys.Navigate):
			if m.c.State().Phase != relay.Complete {
				return m, nil
			}
			if err := m.c.Navigate(); err != nil {
				m.notice = err.Error()
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m RelayModel) View() string {
	if m.quitting {
		return ""
	}

	s := m.c.State()
	n := m.c.Len()

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Clipboard relay"))
	b.WriteString("\n")

	done := s.Index
	if s.Phase == relay.Complete {
		done = n
	}
	fmt.Fprintf(&b, "%s %d of %d\n", LabelStyle.Render("Chunk"), s.Index+1, n)
	b.WriteString(m.bar.ViewAs(float64(done) / float64(max(n, 1))))
	b.WriteString("\n\n")

	switch s.Phase {
	case relay.Relaying:
		b.WriteString(WarningStyle.Render("Copying…"))
	case relay.Counting:
		fmt.Fprintf(&b, "%s Paste it now. Next chunk in %ds.",
			SuccessStyle.Render("Copied."), s.SecondsLeft)
	case relay.Stalled:
		fmt.Fprintf(&b, "%s %v", ErrorStyle.Render("Clipboard blocked."), s.Err)
	case relay.Complete:
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("All %d chunks copied.", n)))
	case relay.Idle:
		b.WriteString("Closed.")
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(m.notice))
	}

	return BoxStyle.Render(b.String()) + "\n" + HelpStyle.Render(m.help(s.Phase))
}

func (m RelayModel) help(p relay.Phase) string {
	bindings := []key.Binding{keys.Quit}
	switch p {
	case relay.Stalled:
		bindings = append([]key.Binding{keys.Retry}, bindings...)
	case relay.Complete:
		bindings = append([]key.Binding{keys.Navigate}, bindings...)
	}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// RunRelay runs the relay screen until the user closes it, navigates after
// completion, or ctx is cancelled. The controller must already be started.
func RunRelay(ctx context.Context, c *relay.Controller) error {
	p := tea.NewProgram(NewRelayModel(c), tea.WithContext(ctx))
	_, err := p.Run()
	if ctx.Err() != nil {
		c.Close()
		return ctx.Err()
	}
	return err
}
