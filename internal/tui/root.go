// Package tui renders the kiosk screens and feeds key presses into the session.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/clive/kiosk-go/internal/config"
	"github.com/clive/kiosk-go/internal/input"
	"github.com/clive/kiosk-go/internal/model"
	"github.com/clive/kiosk-go/internal/session"
)

// triggerMsg carries an event from an external trigger source
type triggerMsg struct {
	event input.Event
}

// triggerClosedMsg is sent when the trigger source stops
type triggerClosedMsg struct{}

// Model is the root Bubble Tea model
type Model struct {
	session  *session.Controller
	keys     input.KeyMap
	keyboard input.Keyboard
	ui       config.UIConfig
	debug    *DebugPanel

	// External trigger events, nil when none is configured
	triggers <-chan input.Event

	viewport    viewport.Model
	shownResult string
	spinner     spinner.Model

	width, height int
	ready         bool
}

// Option configures the model
type Option func(*Model)

// WithTriggers feeds events from an external source into the session
func WithTriggers(events <-chan input.Event) Option {
	return func(m *Model) {
		m.triggers = events
	}
}

// WithDebugPanel shares a debug panel, typically one also wired to
// session.Options.OnTransition
func WithDebugPanel(d *DebugPanel) Option {
	return func(m *Model) {
		m.debug = d
	}
}

// NewRootModel creates the root model around a session controller
func NewRootModel(ctl *session.Controller, cfg *config.Config, opts ...Option) Model {
	keys := input.NewKeyMap(cfg.Keys)

	vp := viewport.New(80, 20)
	// Letters belong to the session; the result only scrolls on arrows and paging keys.
	vp.KeyMap = viewport.KeyMap{
		Up:       key.NewBinding(key.WithKeys("up")),
		Down:     key.NewBinding(key.WithKeys("down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", " ")),
	}

	m := Model{
		session:  ctl,
		keys:     keys,
		keyboard: input.NewKeyboard(keys),
		ui:       cfg.UI,
		viewport: vp,
		spinner:  spinner.New(spinner.WithSpinner(spinner.MiniDot)),
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.debug == nil {
		m.debug = NewDebugPanel(cfg.UI.Debug)
	}
	return m
}

// Init starts the spinner and the trigger listener
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForTrigger(m.triggers),
	)
}

// waitForTrigger blocks for the next external event
func waitForTrigger(events <-chan input.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return triggerClosedMsg{}
		}
		return triggerMsg{event: ev}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.viewport.Width = max(msg.Width-8, 10)
		m.viewport.Height = max(msg.Height-10, 3)
		m.shownResult = ""
		m.syncResult()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case triggerMsg:
		m.debug.AddEvent("trigger", msg.event.Kind.String())
		cmd := m.session.Update(msg.event)
		m.syncResult()
		return m, tea.Batch(cmd, waitForTrigger(m.triggers))

	case triggerClosedMsg:
		m.debug.AddEvent("trigger", "source closed")
		m.triggers = nil
		return m, nil

	case session.ForcedResetMsg:
		m.debug.AddEvent("reset", msg.Reason)
		cmd := m.session.Update(msg)
		m.syncResult()
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// timers, lookups, capture and analysis completions
	cmd := m.session.Update(msg)
	m.syncResult()
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Debug):
		m.debug.Toggle()
		return m, nil
	}

	if ev, ok := m.keyboard.Translate(msg); ok {
		cmd := m.session.Update(ev)
		m.syncResult()
		return m, cmd
	}

	if m.session.Screen() == model.ScreenResult {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// syncResult re-renders the result viewport when the analysis text changes
func (m *Model) syncResult() {
	result := m.session.View().AnalysisResult
	if result == m.shownResult {
		return
	}
	m.shownResult = result
	m.viewport.SetContent(renderMarkdown(result, m.viewport.Width-2))
	m.viewport.GotoTop()
}

// View renders the current screen
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	v := m.session.View()
	var body string
	switch v.Screen {
	case model.ScreenWelcome1:
		body = m.welcomeView(m.ui.WelcomeText, v.TransitionPending)
	case model.ScreenWelcome2:
		body = m.welcomeView(m.ui.WelcomeText2, false)
	case model.ScreenIdentityForm:
		body = m.identityView(v)
	case model.ScreenCameraLive:
		body = m.cameraView(v)
	case model.ScreenAnalyzing:
		body = m.analyzingView(v)
	case model.ScreenResult:
		body = m.resultView(v)
	case model.ScreenThanks:
		body = ThanksStyle.Render(m.ui.ThanksText)
	}

	header := m.renderHeader()
	status := m.renderStatusBar(v)
	mainHeight := m.height - lipgloss.Height(header) - lipgloss.Height(status)

	if m.debug.IsVisible() {
		debugWidth := m.width / 3
		main := lipgloss.Place(m.width-debugWidth, mainHeight, lipgloss.Center, lipgloss.Center, body)
		body = lipgloss.JoinHorizontal(lipgloss.Top, main, m.debug.Render(debugWidth-2, mainHeight-2))
	} else {
		body = lipgloss.Place(m.width, mainHeight, lipgloss.Center, lipgloss.Center, body)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
}

func (m Model) renderHeader() string {
	return lipgloss.NewStyle().
		PaddingLeft(1).
		Width(m.width).
		Render(TitleStyle.Render(m.ui.Title))
}

func (m Model) welcomeView(text string, fading bool) string {
	if fading {
		return WelcomeFadingStyle.Render(text)
	}
	return lipgloss.JoinVertical(lipgloss.Center,
		WelcomeStyle.Render(text),
		"",
		PromptStyle.Render(m.keys.Advance.Help().Key+" ile devam edin"),
	)
}

func (m Model) identityView(v model.ViewModel) string {
	boxes := make([]string, session.MaxIdentityLength)
	for i := range boxes {
		if i < len(v.IdentityInput) {
			boxes[i] = DigitBoxStyle.Render(string(v.IdentityInput[i]))
		} else {
			boxes[i] = DigitEmptyStyle.Render(" ")
		}
	}

	lines := []string{
		PromptStyle.Render("Okul numaranızı girin"),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, boxes...),
		"",
	}
	switch {
	case v.LookupPending:
		lines = append(lines, AnalyzingStyle.Render(m.spinner.View()+" Aranıyor…"))
	case v.LastError != "":
		lines = append(lines, ErrorStyle.Render(v.LastError))
	default:
		lines = append(lines, DimStyle.Render(m.keys.Advance.Help().Key+" ile gönderin"))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m Model) studentCard(v model.ViewModel) string {
	if v.Identity == nil {
		return ""
	}
	meta := "No " + v.Identity.ID
	if v.Identity.ClassName != "" {
		meta += " · Sınıf " + v.Identity.ClassName
	}
	return CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		CardNameStyle.Render(v.Identity.FullName()),
		CardMetaStyle.Render(meta),
	))
}

func (m Model) cameraView(v model.ViewModel) string {
	indicator := CameraIdleStyle.Render("○ Kamera hazırlanıyor")
	if v.CameraReady {
		indicator = CameraLiveStyle.Render("● Kamera açık")
	}

	lines := []string{m.studentCard(v), "", indicator, ""}
	if v.LastError != "" {
		lines = append(lines, ErrorStyle.Render(v.LastError))
	}
	lines = append(lines, PromptStyle.Render(m.keys.Advance.Help().Key+" ile fotoğraf çekin"))
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m Model) analyzingView(v model.ViewModel) string {
	return lipgloss.JoinVertical(lipgloss.Center,
		m.studentCard(v),
		"",
		AnalyzingStyle.Render(m.spinner.View()+" Analiz ediliyor…"),
	)
}

func (m Model) resultView(v model.ViewModel) string {
	hint := DimStyle.Render(m.keys.Reanalyze.Help().Key + " tekrar analiz · " +
		m.keys.Advance.Help().Key + " bitir")
	return lipgloss.JoinVertical(lipgloss.Center,
		m.studentCard(v),
		ResultStyle.Render(m.viewport.View()),
		hint,
	)
}

func (m Model) renderStatusBar(v model.ViewModel) string {
	var help []string
	help = append(help, HelpKeyStyle.Render(m.keys.Reset.Help().Key)+" reset")
	help = append(help, HelpKeyStyle.Render(m.keys.Debug.Help().Key)+" debug")
	help = append(help, HelpKeyStyle.Render(m.keys.Quit.Help().Key)+" quit")

	return StatusBarStyle.Render(DimStyle.Render(v.Screen.String()+" │ ") + strings.Join(help, DimStyle.Render(" │ ")))
}
