// internal/tui/chat.go
// Package tui is the interactive terminal front-end for a chat.Orchestrator.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mwiater/foundrychat/internal/appconfig"
	"github.com/mwiater/foundrychat/internal/catalog"
	"github.com/mwiater/foundrychat/internal/chat"
	"github.com/mwiater/foundrychat/internal/logging"
	"github.com/mwiater/foundrychat/internal/markdown"
)

// viewState represents the current screen.
type viewState int

const (
	// viewModelSelector lists the loaded models.
	viewModelSelector viewState = iota
	// viewChat is the conversation.
	viewChat
)

const helpText = " enter send · /attach <path> · /detach · /continue · /info · /clear · tab models · esc quit"

// model is the Bubble Tea model for the chat screen.
type model struct {
	ctx              context.Context
	config           *appconfig.Config
	orch             *chat.Orchestrator
	renderer         *markdown.Renderer
	models           []catalog.ActiveModel
	state            viewState
	notice           string
	modelList        list.Model
	textArea         textarea.Model
	viewport         viewport.Model
	spinner          spinner.Model
	snap             chat.Snapshot
	rendered         map[string]renderedRecord
	width, height    int
	program          *tea.Program
	requestStartTime time.Time
	readFile         func(string) ([]byte, error)
}

type renderedRecord struct {
	text string
	out  string
}

// item is a selectable model in the list.
type item struct {
	title string
	desc  string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }

// refreshMsg tells the model to pull a fresh snapshot.
type refreshMsg struct{}

// sendDoneMsg is returned when a send or continue finishes.
type sendDoneMsg struct{ err error }

// tickMsg drives the elapsed timer while a request is in flight.
type tickMsg time.Time

func initialModel(ctx context.Context, cfg *appconfig.Config, orch *chat.Orchestrator, models []catalog.ActiveModel, renderer *markdown.Renderer) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ta := textarea.New()
	ta.Placeholder = "Send a message..."
	ta.Focus()
	ta.Prompt = "Ask Anything: "
	ta.ShowLineNumbers = false
	ta.CharLimit = -1
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)

	items := make([]list.Item, len(models))
	for i, am := range models {
		items[i] = item{title: am.ID, desc: fmt.Sprintf("input %d / output %d tokens", am.MaxInputTokens, am.MaxOutputTokens)}
	}
	modelList := list.New(items, list.NewDefaultDelegate(), 0, 0)
	modelList.Title = "Select a Model"

	m := &model{
		ctx:       ctx,
		config:    cfg,
		orch:      orch,
		renderer:  renderer,
		models:    models,
		state:     viewModelSelector,
		spinner:   s,
		textArea:  ta,
		modelList: modelList,
		viewport:  viewport.New(100, 5),
		rendered:  make(map[string]renderedRecord),
		readFile:  os.ReadFile,
	}
	if snap := orch.Snapshot(); snap.Model != nil || len(models) == 1 {
		if snap.Model == nil {
			orch.SelectModel(&models[0])
		}
		m.state = viewChat
	}
	m.snap = orch.Snapshot()
	return m
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the spinner.
func (m *model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles input and orchestrator notifications.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "q":
			if m.state == viewModelSelector {
				return m, tea.Quit
			}
		case "tab":
			if m.state == viewChat && len(m.models) > 1 {
				m.state = viewModelSelector
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.modelList.SetSize(msg.Width-2, msg.Height-4)
		m.textArea.SetWidth(msg.Width - 3)
		headerHeight := 3
		footerHeight := 4
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - headerHeight - footerHeight
		if m.renderer != nil {
			m.renderer.SetWidth(msg.Width - 14)
			m.rendered = make(map[string]renderedRecord)
		}

	case refreshMsg:
		m.refresh()
		return m, nil

	case sendDoneMsg:
		m.refresh()
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		m.textArea.Focus()
		m.viewport.GotoBottom()
		return m, nil

	case tickMsg:
		if m.snap.Sending {
			return m, tickCmd()
		}
		return m, nil
	}

	switch m.state {
	case viewModelSelector:
		m.modelList, cmd = m.modelList.Update(msg)
		cmds = append(cmds, cmd)
		if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
			if idx := m.modelList.Index(); idx >= 0 && idx < len(m.models) {
				m.orch.SelectModel(&m.models[idx])
				m.state = viewChat
				m.notice = ""
				m.refresh()
			}
		}

	case viewChat:
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

		if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
			text := strings.TrimSpace(m.textArea.Value())
			m.textArea.Reset()
			if send := m.submit(text); send != nil {
				m.requestStartTime = time.Now()
				cmds = append(cmds, m.spinner.Tick, send, tickCmd())
			}
		} else {
			m.textArea, cmd = m.textArea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if m.snap.Sending {
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// submit applies a line of input. Slash commands act immediately; anything
// else is sent. It returns the command that performs the request, if any.
func (m *model) submit(text string) tea.Cmd {
	if text == "" {
		return nil
	}
	m.notice = ""
	defer m.refresh()

	name, arg, _ := strings.Cut(text, " ")
	switch name {
	case "/clear":
		m.orch.ClearChat()
		m.rendered = make(map[string]renderedRecord)
		return nil
	case "/detach":
		m.orch.RemoveAttachment()
		return nil
	case "/attach":
		path := strings.TrimSpace(arg)
		data, err := m.readFile(path)
		if err != nil {
			m.notice = fmt.Sprintf("attach failed: %v", err)
			return nil
		}
		m.orch.AttachFile(filepath.Base(path), data)
		return nil
	case "/info":
		if m.snap.Model != nil {
			m.notice = chat.ModelInfo(*m.snap.Model)
		}
		return nil
	case "/continue":
		id := lastTruncated(m.snap.Records)
		if id == "" {
			m.notice = "no truncated reply to continue"
			return nil
		}
		return func() tea.Msg {
			return sendDoneMsg{err: m.orch.ContinueMessage(m.ctx, id)}
		}
	}

	m.orch.SetInput(text)
	return func() tea.Msg {
		return sendDoneMsg{err: m.orch.SendMessage(m.ctx)}
	}
}

func lastTruncated(records []chat.Record) string {
	for i := len(records) - 1; i >= 0; i-- {
		if r := records[i]; !r.IsUser && !r.IsError && r.IsTruncated {
			return r.ID
		}
	}
	return ""
}

func (m *model) refresh() {
	m.snap = m.orch.Snapshot()
	m.viewport.SetContent(m.historyView())
	m.viewport.GotoBottom()
}

// View renders the current screen.
func (m *model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}
	switch m.state {
	case viewModelSelector:
		if len(m.models) == 0 {
			errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(1)
			return errorStyle.Render("Error: no models are loaded. Start one with `foundry model run <name>`.")
		}
		return lipgloss.NewStyle().Margin(1, 2).Render(m.modelList.View())
	case viewChat:
		return m.chatView()
	default:
		return "Unknown state"
	}
}

func (m *model) chatView() string {
	var builder strings.Builder

	labelStyle := lipgloss.NewStyle().Background(lipgloss.Color("0")).Foreground(lipgloss.Color("255")).Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230")).Padding(0, 1).MarginLeft(1)

	modelName := "none"
	limit := "?"
	if m.snap.Model != nil {
		modelName = m.snap.Model.ID
		if m.snap.Model.MaxInputTokens > 0 {
			limit = fmt.Sprint(m.snap.Model.MaxInputTokens)
		}
	}
	tokenStyle := headerStyle.Background(lipgloss.Color("240"))
	if m.snap.OverBudget {
		tokenStyle = headerStyle.Background(lipgloss.Color("9"))
	}
	parts := []string{
		labelStyle.Render("Foundry:"),
		headerStyle.Render("Model: " + modelName),
		tokenStyle.Render(fmt.Sprintf("Tokens: ~%d / %s", m.snap.EstimatedTokens, limit)),
	}
	if a := m.snap.Attachment; a != nil {
		kind := "file"
		if a.IsImage() {
			kind = "image"
		}
		parts = append(parts, headerStyle.Background(lipgloss.Color("28")).Render(fmt.Sprintf("%s: %s", kind, a.Name)))
	}
	if m.config != nil && m.config.Stream {
		parts = append(parts, headerStyle.Render("stream"))
	}
	builder.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, parts...) + "\n\n")

	m.viewport.SetContent(m.historyView())
	builder.WriteString(m.viewport.View())

	if m.snap.Sending {
		timer := fmt.Sprintf("%.1f", time.Since(m.requestStartTime).Seconds())
		builder.WriteString("\n" + m.spinner.View() + fmt.Sprintf(" Assistant is thinking... %ss", timer))
	} else {
		builder.WriteString("\n" + m.textArea.View())
	}
	if m.notice != "" {
		builder.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render(m.notice))
	}
	builder.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(helpText))
	return builder.String()
}

func (m *model) historyView() string {
	var b strings.Builder
	userStyle := lipgloss.NewStyle().Bold(true)
	assistantStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	metaStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	width := m.width
	if width <= 0 {
		width = 100
	}
	for _, r := range m.snap.Records {
		var role, content string
		switch {
		case r.IsError:
			role = errorStyle.Render("Error: ")
			content = errorStyle.Render(strings.TrimPrefix(r.Text, "Error: "))
		case r.IsUser:
			role = userStyle.Render("You: ")
			content = r.Display
			if r.Image != nil {
				content += "\n[image attached]"
			}
		default:
			role = assistantStyle.Render("Assistant: ")
			content = m.renderReply(r)
		}
		wrapped := lipgloss.NewStyle().Width(width - lipgloss.Width(role) - 2).Render(content)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, role, wrapped) + "\n")

		if !r.IsUser && !r.IsError {
			meta := fmt.Sprintf("  >>> [%.1fs]", r.Elapsed.Seconds())
			if r.UsageText != "" {
				meta += " [" + r.UsageText + "]"
			}
			if r.IsTruncated {
				meta += " [truncated, type /continue]"
			}
			b.WriteString(metaStyle.Render(meta) + "\n")
		}
	}
	return b.String()
}

// renderReply draws an assistant reply through glamour when markdown is on,
// caching by record so streamed updates re-render only the changed reply.
func (m *model) renderReply(r chat.Record) string {
	if m.renderer == nil || m.config == nil || !m.config.MarkdownEnabled() {
		return r.Display
	}
	if cached, ok := m.rendered[r.ID]; ok && cached.text == r.Text {
		return cached.out
	}
	out := m.renderer.RenderOrPlain(r.Text)
	m.rendered[r.ID] = renderedRecord{text: r.Text, out: out}
	return out
}

// StartChat runs the interactive chat until the user quits.
func StartChat(ctx context.Context, cfg *appconfig.Config, orch *chat.Orchestrator, models []catalog.ActiveModel, renderer *markdown.Renderer) error {
	if cfg == nil {
		return fmt.Errorf("configuration is not loaded")
	}

	m := initialModel(ctx, cfg, orch, models, renderer)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	m.program = p

	// Observers may fire from inside Update, so never block on Send.
	orch.Subscribe(func(chat.Change) {
		go p.Send(refreshMsg{})
	})

	logging.LogEvent("tui: chat started with %d models", len(models))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
