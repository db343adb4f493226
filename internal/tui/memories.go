package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/concierge/internal/models"
)

// MemoryModel shows memories ranked by importance and the tag cloud
type MemoryModel struct {
	client *Client
	items  []models.MemoryItem
	tags   []models.MemoryTag
	query  string
	bar    progress.Model
	width  int
	height int
}

// NewMemoryModel creates a new memory screen
func NewMemoryModel(client *Client) *MemoryModel {
	return &MemoryModel{
		client: client,
		bar:    progress.New(progress.WithGradient("#6366F1", "#EC4899"), progress.WithWidth(12), progress.WithoutPercentage()),
	}
}

// Init implements tea.Model
func (m *MemoryModel) Init() tea.Cmd {
	return nil
}

// SetSize sets the dimensions
func (m *MemoryModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Refresh reloads all memories and tags
func (m *MemoryModel) Refresh() tea.Cmd {
	return func() tea.Msg {
		items, err := m.client.ListMemories("", "")
		if err != nil {
			return errMsg{err}
		}
		tags, err := m.client.ListTags()
		if err != nil {
			return errMsg{err}
		}
		return memoriesLoadedMsg{items: items, tags: tags}
	}
}

// Search replaces the list with memories matching query
func (m *MemoryModel) Search(query string) tea.Cmd {
	return func() tea.Msg {
		items, err := m.client.SearchMemories(query)
		if err != nil {
			return errMsg{err}
		}
		return memoriesLoadedMsg{items: items, query: query}
	}
}

// Update handles messages
func (m *MemoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(memoriesLoadedMsg); ok {
		m.items = msg.items
		m.query = msg.query
		if msg.tags != nil {
			m.tags = msg.tags
		}
	}
	return m, nil
}

// View renders the memory screen
func (m *MemoryModel) View() string {
	var b strings.Builder

	title := "Memories"
	if m.query != "" {
		title = fmt.Sprintf("Memories matching %q", m.query)
	}
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString("  No memories. Type: note <content> to add one.\n")
	}
	for _, item := range m.items {
		b.WriteString(fmt.Sprintf("%s %s\n", m.bar.ViewAs(float64(item.Importance)/100), truncate(item.Content, max(20, m.width-20))))
		meta := item.Category
		if len(item.Tags) > 0 {
			meta += " #" + strings.Join(item.Tags, " #")
		}
		b.WriteString(labelStyle.Render("             "+meta) + "\n")
	}

	if len(m.tags) > 0 {
		b.WriteString(sectionStyle.Render("Tags"))
		b.WriteString("\n")
		b.WriteString(renderTagCloud(m.tags))
		b.WriteString("\n")
	}
	return b.String()
}

// renderTagCloud draws tags most important first, brighter and bolder the
// more important they are.
func renderTagCloud(tags []models.MemoryTag) string {
	sorted := append([]models.MemoryTag(nil), tags...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Importance > sorted[j].Importance })

	parts := make([]string, 0, len(sorted))
	for _, t := range sorted {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
		switch {
		case t.Importance >= 90:
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
		case t.Importance >= 75:
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
		}
		parts = append(parts, style.Render(fmt.Sprintf("%s(%d)", t.Name, t.Count)))
	}
	return "  " + strings.Join(parts, "  ")
}

type memoriesLoadedMsg struct {
	items []models.MemoryItem
	tags  []models.MemoryTag
	query string
}
