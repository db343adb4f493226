package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/concierge/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginTop(1)

	stepCursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

// TaskDetailModel manages the task detail screen
type TaskDetailModel struct {
	client  *Client
	taskID  string
	task    *models.Task
	stepIdx int
	overall progress.Model
	stepBar progress.Model
	width   int
	height  int
	loading bool
	scroll  int
}

// NewTaskDetailModel creates a new task detail model
func NewTaskDetailModel(client *Client) *TaskDetailModel {
	return &TaskDetailModel{
		client:  client,
		overall: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		stepBar: progress.New(progress.WithSolidFill("#06B6D4"), progress.WithWidth(20)),
	}
}

// Init initializes the task detail model
func (m *TaskDetailModel) Init() tea.Cmd {
	return nil
}

// SetTask sets the task ID to display
func (m *TaskDetailModel) SetTask(id string) {
	m.taskID = id
	m.task = nil
	m.stepIdx = 0
	m.scroll = 0
}

// TaskID returns the id of the displayed task
func (m *TaskDetailModel) TaskID() string {
	return m.taskID
}

// SelectedStep returns the step under the cursor, or nil
func (m *TaskDetailModel) SelectedStep() *models.Step {
	if m.task == nil || m.stepIdx >= len(m.task.Steps) {
		return nil
	}
	return &m.task.Steps[m.stepIdx]
}

// SetSize sets the dimensions
func (m *TaskDetailModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if w > 20 {
		m.overall.Width = min(60, w-20)
	}
}

// Refresh fetches task details
func (m *TaskDetailModel) Refresh() tea.Cmd {
	m.loading = true
	id := m.taskID
	return func() tea.Msg {
		task, err := m.client.GetTask(id)
		if err != nil {
			return errMsg{err}
		}
		return taskDetailLoadedMsg{task}
	}
}

// Update handles messages
func (m *TaskDetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDetailLoadedMsg:
		if msg.task.ID != m.taskID {
			return m, nil
		}
		m.loading = false
		m.task = msg.task
		if m.stepIdx >= len(m.task.Steps) {
			m.stepIdx = max(0, len(m.task.Steps)-1)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.task != nil && m.stepIdx < len(m.task.Steps)-1 {
				m.stepIdx++
			}
		case "k", "up":
			if m.stepIdx > 0 {
				m.stepIdx--
			}
		case "pgdown":
			m.scroll++
		case "pgup":
			if m.scroll > 0 {
				m.scroll--
			}
		}
	}
	return m, nil
}

// View renders the task detail
func (m *TaskDetailModel) View() string {
	if m.task == nil {
		return "Loading task details..."
	}

	var b strings.Builder
	t := m.task

	// Header
	b.WriteString(headerStyle.Render(t.Title))
	b.WriteString("\n\n")

	// Task fields
	b.WriteString(m.renderField("ID", t.ID))
	b.WriteString(m.renderField("Status", formatStatus(t.Status)))
	b.WriteString(m.renderField("Progress", m.overall.ViewAs(float64(taskProgress(*t))/100)))
	if t.Description != "" {
		b.WriteString(m.renderField("Description", t.Description))
	}
	b.WriteString(m.renderField("Priority", strings.Repeat("★", t.Priority)))
	if t.DueDate != nil {
		b.WriteString(m.renderField("Due", t.DueDate.Local().Format(time.DateOnly)))
	}
	if len(t.Tags) > 0 {
		b.WriteString(m.renderField("Tags", strings.Join(t.Tags, ", ")))
	}
	b.WriteString(m.renderField("Updated", t.UpdatedAt.Local().Format(time.DateTime)))

	// Steps section
	if len(t.Steps) > 0 {
		b.WriteString(sectionStyle.Render("Steps"))
		b.WriteString("\n")
		for i, st := range t.Steps {
			cursor := "  "
			if i == m.stepIdx {
				cursor = stepCursorStyle.Render("▶ ")
			}
			current := " "
			if st.ID == t.CurrentStepID {
				current = "★"
			}
			b.WriteString(fmt.Sprintf("%s%s %-24s %s %s\n",
				cursor, current, truncate(st.Title, 24), m.stepBar.ViewAs(float64(st.Progress)/100), formatStatus(st.Status)))
			if len(st.Dependencies) > 0 {
				b.WriteString(labelStyle.Render(fmt.Sprintf("      after %s", strings.Join(st.Dependencies, ", "))))
				b.WriteString("\n")
			}
		}
	}

	// Apply scroll
	lines := strings.Split(b.String(), "\n")
	if m.scroll >= len(lines) {
		m.scroll = len(lines) - 1
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
	visible := lines[m.scroll:]
	if m.height > 0 && len(visible) > m.height {
		visible = visible[:m.height]
	}

	return strings.Join(visible, "\n")
}

func (m *TaskDetailModel) renderField(label, value string) string {
	return fmt.Sprintf("%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

type taskDetailLoadedMsg struct {
	task *models.Task
}
