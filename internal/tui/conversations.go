package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/concierge/internal/models"
)

var (
	userMsgStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9FAFB")).Bold(true)
	assistantMsgStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
)

// ConversationModel shows the conversation history in a scrollable viewport
type ConversationModel struct {
	client   *Client
	sessions []models.ConversationSession
	results  []models.ConversationMessage
	filter   *models.ConversationFilter
	viewport viewport.Model
}

// NewConversationModel creates a new conversation screen
func NewConversationModel(client *Client) *ConversationModel {
	return &ConversationModel{
		client:   client,
		viewport: viewport.New(80, 20),
	}
}

// Init implements tea.Model
func (m *ConversationModel) Init() tea.Cmd {
	return nil
}

// SetSize sets the dimensions
func (m *ConversationModel) SetSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = h
	m.viewport.SetContent(m.render())
}

// Refresh reloads all sessions and clears any search
func (m *ConversationModel) Refresh() tea.Cmd {
	return func() tea.Msg {
		sessions, err := m.client.ListSessions()
		if err != nil {
			return errMsg{err}
		}
		return sessionsLoadedMsg{sessions}
	}
}

// Search runs filter across all sessions
func (m *ConversationModel) Search(filter models.ConversationFilter) tea.Cmd {
	return func() tea.Msg {
		msgs, err := m.client.SearchMessages(filter)
		if err != nil {
			return errMsg{err}
		}
		return messagesFoundMsg{filter: filter, messages: msgs}
	}
}

// Update handles messages
func (m *ConversationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionsLoadedMsg:
		m.sessions = msg.sessions
		m.filter = nil
		m.results = nil
		m.viewport.SetContent(m.render())
		m.viewport.GotoTop()
		return m, nil
	case messagesFoundMsg:
		f := msg.filter
		m.filter = &f
		m.results = msg.messages
		m.viewport.SetContent(m.render())
		m.viewport.GotoTop()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the conversation screen
func (m *ConversationModel) View() string {
	return m.viewport.View()
}

func (m *ConversationModel) render() string {
	var b strings.Builder

	if m.filter != nil {
		b.WriteString(headerStyle.Render(fmt.Sprintf("Search: %d messages", len(m.results))))
		b.WriteString("\n\n")
		for _, msg := range m.results {
			b.WriteString(renderMessage(msg, m.contextColor(msg.SessionID, msg.ContextID)))
		}
		return b.String()
	}

	if len(m.sessions) == 0 {
		return "No conversations yet."
	}
	for _, s := range m.sessions {
		b.WriteString(headerStyle.Render(s.Title))
		b.WriteString("\n")
		for _, c := range s.Contexts {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color)).Render("■ " + c.Name))
			b.WriteString(" ")
		}
		b.WriteString("\n\n")
		for _, msg := range s.Messages {
			b.WriteString(renderMessage(msg, m.contextColor(s.ID, msg.ContextID)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *ConversationModel) contextColor(sessionID, contextID string) string {
	for _, s := range m.sessions {
		if s.ID != sessionID {
			continue
		}
		for _, c := range s.Contexts {
			if c.ID == contextID {
				return c.Color
			}
		}
	}
	return "240"
}

func renderMessage(msg models.ConversationMessage, color string) string {
	marker := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("│")
	style := assistantMsgStyle
	if msg.Sender == models.SenderUser {
		style = userMsgStyle
	}
	stamp := labelStyle.Render(msg.Timestamp.Local().Format(time.Kitchen))
	return fmt.Sprintf("%s %s %s\n%s   %s\n", marker, stamp, style.Render(string(msg.Sender)), marker, msg.Content)
}

type sessionsLoadedMsg struct {
	sessions []models.ConversationSession
}

type messagesFoundMsg struct {
	filter   models.ConversationFilter
	messages []models.ConversationMessage
}
