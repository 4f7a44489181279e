// Package tui is a terminal front-end for the conversation service: chat on
// the left, the live dashboard panel on the right, and a progress bar while a
// view transition is loading.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PabloGalante/insight-agent/internal/app/conversation"
	"github.com/PabloGalante/insight-agent/internal/app/dashboard"
	"github.com/PabloGalante/insight-agent/internal/domain"
)

const homeCommand = "/home"

type Config struct {
	Service   *conversation.Service
	UserID    domain.UserID
	StepDelay time.Duration
}

type Model struct {
	ctx       context.Context
	svc       *conversation.Service
	userID    domain.UserID
	stepDelay time.Duration

	session  *domain.Session
	greeting string
	messages []*domain.Message
	panel    dashboard.Panel

	input    textinput.Model
	history  viewport.Model
	progress progress.Model

	busy   bool // a request is in flight
	width  int
	height int
	err    error
}

type (
	startedMsg  struct{ out *conversation.StartSessionOutput }
	sentMsg     struct{ out *conversation.SendMessageOutput }
	advancedMsg struct{ out *conversation.AdvanceOutput }
	homeMsg     struct{ session *domain.Session }
	timelineMsg struct {
		messages []*domain.Message
		panel    dashboard.Panel
	}
	tickMsg struct{}
	errMsg  struct{ err error }
)

func New(ctx context.Context, cfg Config) Model {
	in := textinput.New()
	in.Placeholder = "질문을 입력하세요 (예: 왜 구글만 성과가 높아? 분석해줘)"
	in.Prompt = "You> "
	in.CharLimit = 0
	in.Width = 60
	in.Focus()

	return Model{
		ctx:       ctx,
		svc:       cfg.Service,
		userID:    cfg.UserID,
		stepDelay: cfg.StepDelay,
		panel:     dashboard.PanelFor(domain.ModeDefault),
		input:     in,
		history:   viewport.New(40, 20),
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		busy:      true,
	}
}

// Run starts a full-screen program and blocks until the user quits.
func Run(ctx context.Context, cfg Config) error {
	_, err := tea.NewProgram(New(ctx, cfg), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.startSession())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case startedMsg:
		m.session = msg.out.Session
		m.greeting = msg.out.Greeting
		m.busy = false
		m.refreshHistory()
		return m, nil

	case sentMsg:
		m.session = msg.out.Session
		m.messages = append(m.messages, msg.out.UserMessage, msg.out.AgentMessage)
		m.refreshHistory()
		if m.pending() {
			return m, m.tick()
		}
		m.busy = false
		return m, m.loadTimeline()

	case tickMsg:
		return m, m.advance()

	case advancedMsg:
		m.session = msg.out.Session
		if !msg.out.Committed && m.pending() {
			return m, m.tick()
		}
		m.busy = false
		return m, m.loadTimeline()

	case homeMsg:
		m.session = msg.session
		m.busy = false
		return m, m.loadTimeline()

	case timelineMsg:
		m.messages = msg.messages
		m.panel = msg.panel
		m.refreshHistory()
		return m, nil

	case errMsg:
		m.err = msg.err
		m.busy = false
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if m.busy || m.session == nil || strings.TrimSpace(text) == "" {
		return m, nil
	}

	m.input.SetValue("")
	m.err = nil
	m.busy = true

	if strings.TrimSpace(text) == homeCommand {
		return m, m.returnHome()
	}
	return m, m.send(text)
}

func (m Model) pending() bool {
	return m.session != nil && !m.session.View.Idle()
}

// ─────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────

func (m Model) startSession() tea.Cmd {
	return func() tea.Msg {
		out, err := m.svc.StartSession(m.ctx, conversation.StartSessionInput{UserID: m.userID, Title: "terminal"})
		if err != nil {
			return errMsg{err}
		}
		return startedMsg{out}
	}
}

func (m Model) send(text string) tea.Cmd {
	id, user := m.session.ID, m.userID
	return func() tea.Msg {
		out, err := m.svc.SendMessage(m.ctx, conversation.SendMessageInput{SessionID: id, UserID: user, Text: text})
		if err != nil {
			return errMsg{err}
		}
		return sentMsg{out}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.stepDelay, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m Model) advance() tea.Cmd {
	id := m.session.ID
	return func() tea.Msg {
		out, err := m.svc.AdvanceTransition(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return advancedMsg{out}
	}
}

func (m Model) returnHome() tea.Cmd {
	id := m.session.ID
	return func() tea.Msg {
		sess, err := m.svc.ReturnToMain(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return homeMsg{sess}
	}
}

func (m Model) loadTimeline() tea.Cmd {
	id := m.session.ID
	return func() tea.Msg {
		_, msgs, err := m.svc.GetSessionTimeline(m.ctx, id, 0)
		if err != nil {
			return errMsg{err}
		}
		dash, err := m.svc.GetDashboard(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return timelineMsg{messages: msgs, panel: dash.Panel}
	}
}

// ─────────────────────────────────────────────
// View
// ─────────────────────────────────────────────

func (m *Model) layout() {
	chatW := max(m.width*35/100, 30)
	m.history.Width = chatW
	m.history.Height = max(m.height-8, 5)
	m.input.Width = max(m.width-10, 10)
	m.progress.Width = max(m.width-chatW-12, 10)
	m.refreshHistory()
}

func (m *Model) refreshHistory() {
	m.history.SetContent(lipgloss.NewStyle().Width(m.history.Width).Render(renderHistory(m.messages, m.greeting)))
	m.history.GotoBottom()
}

func (m Model) View() string {
	chatW := m.history.Width
	boardW := max(m.width-chatW-6, 40)

	left := paneStyle.Width(chatW).Render(
		titleStyle.Render("💬 Chat & Control") + "\n" + m.history.View(),
	)

	var board strings.Builder
	board.WriteString(titleStyle.Render("📊 Intelligence Board"))
	board.WriteString("\n\n")
	if m.pending() {
		p := m.session.View.Pending
		board.WriteString(p.Label + "\n")
		board.WriteString(m.progress.ViewAs(float64(p.Progress) / 100))
		board.WriteString("\n\n")
	}
	board.WriteString(renderPanel(m.panel, boardW))
	right := paneStyle.Width(boardW).Render(board.String())

	var footer strings.Builder
	footer.WriteString(m.input.View())
	footer.WriteString("\n")
	if m.err != nil {
		footer.WriteString(errorStyle.Render(fmt.Sprintf("error: %v", m.err)))
	} else {
		footer.WriteString(captionStyle.Render("'성과 분석', '기여도', '효과 검증' 등을 물어보세요 · /home 메인으로 · esc 종료"))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		footer.String(),
	)
}
