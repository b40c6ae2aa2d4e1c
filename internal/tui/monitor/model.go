package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/msto63/dolmetscher/internal/conversation"
	"github.com/msto63/dolmetscher/internal/session"
	"github.com/msto63/dolmetscher/pkg/core/version"
)

const (
	tickInterval   = 100 * time.Millisecond
	commandTimeout = 5 * time.Second
	meterWidth     = 30
)

// Controller is the session surface the monitor drives
type Controller interface {
	Toggle(ctx context.Context) (bool, error)
	Stop(ctx context.Context) (bool, error)
	Reset(ctx context.Context) (bool, error)
	ClearConversation(ctx context.Context) error
	SwitchLanguages(ctx context.Context) error
	StopSpeaking(ctx context.Context) error
	Configure(ctx context.Context, s session.Settings) error

	State() session.State
	Level() float64
	Settings() session.Settings
	Conversation() *conversation.Log
	Subscribe() *session.Subscription
}

// Model is the Bubbletea model of the session monitor
type Model struct {
	width  int
	height int
	ready  bool

	viewport viewport.Model
	spinner  spinner.Model

	ctl      Controller
	sub      *session.Subscription
	state    session.State
	settings session.Settings
	level    float64
	messages []conversation.Message
	status   string
	closed   bool
}

// New creates a monitor subscribed to ctl. The subscription is closed
// when the program quits.
func New(ctl Controller) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	return Model{
		spinner:  sp,
		ctl:      ctl,
		sub:      ctl.Subscribe(),
		state:    ctl.State(),
		settings: ctl.Settings(),
		messages: ctl.Conversation().Snapshot(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForEvent(m.sub),
		tick(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent blocks on the next session event
func waitForEvent(sub *session.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.C
		return eventMsg{event: ev, ok: ok}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 5
		footerHeight := 4
		viewportHeight := msg.Height - headerHeight - footerHeight
		if viewportHeight < 3 {
			viewportHeight = 3
		}

		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, viewportHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = viewportHeight
		}
		m.updateViewportContent()

	case eventMsg:
		if !msg.ok {
			m.closed = true
			m.status = "Sitzung beendet"
			return m, nil
		}
		m.applyEvent(msg.event)
		cmds = append(cmds, waitForEvent(m.sub))

	case commandDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s: %v", msg.command, msg.err)
		} else {
			m.status = ""
		}

	case tickMsg:
		m.level = m.ctl.Level()
		if !m.closed {
			cmds = append(cmds, tick())
		}

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) applyEvent(ev session.Event) {
	switch ev.Type {
	case session.EventStateChanged:
		if ev.To != nil {
			m.state = *ev.To
		}
	case session.EventMessageAppended:
		if ev.Message != nil {
			m.messages = append(m.messages, *ev.Message)
			m.updateViewportContent()
			m.viewport.GotoBottom()
		}
	case session.EventConversationCleared:
		m.messages = nil
		m.updateViewportContent()
	case session.EventSettingsChanged:
		if ev.Settings != nil {
			m.settings = *ev.Settings
		}
	case session.EventSilenceDetected:
		m.status = "Stille erkannt"
	}
}

// handleKeyPress handles keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.sub.Close()
		return m, tea.Quit

	case tea.KeySpace:
		return m, m.run("toggle", func(ctx context.Context) error {
			_, err := m.ctl.Toggle(ctx)
			return err
		})

	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "q":
			m.sub.Close()
			return m, tea.Quit
		case "s":
			return m, m.run("stop", func(ctx context.Context) error {
				_, err := m.ctl.Stop(ctx)
				return err
			})
		case "r":
			return m, m.run("reset", func(ctx context.Context) error {
				_, err := m.ctl.Reset(ctx)
				return err
			})
		case "c":
			return m, m.run("clear", m.ctl.ClearConversation)
		case "l":
			return m, m.run("switch_languages", m.ctl.SwitchLanguages)
		case "x":
			return m, m.run("stop_speaking", m.ctl.StopSpeaking)
		case "m":
			settings := m.settings
			settings.ManualMode = !settings.ManualMode
			return m, m.run("manual_mode", func(ctx context.Context) error {
				return m.ctl.Configure(ctx, settings)
			})
		}

	case tea.KeyPgUp:
		m.viewport.ViewUp()
		return m, nil
	case tea.KeyPgDown:
		m.viewport.ViewDown()
		return m, nil
	case tea.KeyUp:
		m.viewport.LineUp(1)
		return m, nil
	case tea.KeyDown:
		m.viewport.LineDown(1)
		return m, nil
	}

	return m, nil
}

// run executes a session command off the update loop
func (m Model) run(name string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return commandDoneMsg{command: name, err: fn(ctx)}
	}
}

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "Lade Monitor..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(ConversationPanelStyle.Width(m.width - 2).Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())
	return b.String()
}

func (m Model) renderHeader() string {
	pair := LanguageStyle.Render(fmt.Sprintf("%s → %s",
		m.settings.SourceLanguage.DisplayName(), m.settings.TargetLanguage.DisplayName()))

	mode := ModeStyle.Render("Auto")
	if m.settings.ManualMode {
		mode = ModeStyle.Render("Manuell")
	}

	state := RenderState(m.state)
	if m.state.Kind == session.StateProcessing {
		state = m.spinner.View() + " " + state
	}

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		LogoStyle.Render(Logo),
		strings.Repeat(" ", 3),
		pair,
		strings.Repeat(" ", 3),
		mode,
		strings.Repeat(" ", 3),
		state,
	)
	return TitlePanelStyle.Width(m.width - 4).Render(header + "\n" + m.renderMeter())
}

// renderMeter draws the input level against the silence threshold
func (m Model) renderMeter() string {
	return renderMeter(m.level, m.settings.Silence.Threshold, meterWidth)
}

func renderMeter(level, threshold float64, width int) string {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(level * float64(width))
	mark := int(threshold * float64(width))

	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i < filled && level >= threshold:
			b.WriteString(MeterLoudStyle.Render("█"))
		case i < filled:
			b.WriteString(MeterFillStyle.Render("█"))
		case i == mark:
			b.WriteString(MeterEmptyStyle.Render("│"))
		default:
			b.WriteString(MeterEmptyStyle.Render("░"))
		}
	}
	return b.String() + HelpDescStyle.Render(fmt.Sprintf(" %3.0f%%", level*100))
}

func (m Model) renderStatusBar() string {
	left := HelpDescStyle.Render(fmt.Sprintf("Nachrichten: %d", len(m.messages)))
	center := HelpDescStyle.Render(m.status)
	right := HelpDescStyle.Render("v" + version.App)

	space := m.width - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right) - 4
	if space < 2 {
		space = 2
	}
	content := left + strings.Repeat(" ", space/2) + center + strings.Repeat(" ", space-space/2) + right
	return StatusBarStyle.Width(m.width - 2).Render(content)
}

func (m Model) renderHelpBar() string {
	items := []string{
		RenderKeyHint("Leertaste", "Aufnahme"),
		RenderKeyHint("s", "Stopp"),
		RenderKeyHint("m", "Modus"),
		RenderKeyHint("l", "Sprachen tauschen"),
		RenderKeyHint("x", "Sprachausgabe stoppen"),
		RenderKeyHint("c", "Leeren"),
		RenderKeyHint("r", "Zurücksetzen"),
		RenderKeyHint("q", "Beenden"),
	}
	return HelpStyle.Render(strings.Join(items, "  "))
}

func (m *Model) updateViewportContent() {
	var content strings.Builder
	for _, msg := range m.messages {
		content.WriteString(formatMessage(msg))
		content.WriteString("\n")
	}
	m.viewport.SetContent(content.String())
}

func formatMessage(msg conversation.Message) string {
	ts := TimestampStyle.Render(msg.Timestamp.Format("15:04:05"))
	langs := LanguageStyle.Render(fmt.Sprintf("[%s→%s]", msg.SourceLanguage, msg.TargetLanguage))
	return fmt.Sprintf("%s %s %s\n         %s",
		ts, langs, OriginalStyle.Render(msg.Original), TranslatedStyle.Render(msg.Translated))
}

// Run starts the monitor until the user quits or ctx is done
func Run(ctx context.Context, ctl Controller) error {
	m := New(ctl)
	defer m.sub.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
