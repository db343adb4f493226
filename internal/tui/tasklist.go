package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/concierge/internal/models"
	"github.com/fentz26/concierge/internal/progress"
)

var (
	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	statusPending    = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // Cyan
	statusCompleted  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
	statusFailed     = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // Red
	statusCancelled  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // Grey
)

// TaskItem implements list.Item for the task list
type TaskItem struct {
	Task    models.Task
	Current bool
}

func (i TaskItem) FilterValue() string { return i.Task.Title }
func (i TaskItem) Title() string {
	if i.Current {
		return "★ " + i.Task.Title
	}
	return i.Task.Title
}
func (i TaskItem) Description() string {
	t := i.Task
	desc := fmt.Sprintf("%s • %d%%", formatStatus(t.Status), taskProgress(t))
	if idx := t.FindStep(t.CurrentStepID); idx >= 0 {
		desc += " • " + t.Steps[idx].Title
	}
	return desc
}

func taskProgress(t models.Task) int {
	return progress.OverallProgress(t.Steps)
}

func formatStatus(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusPending:
		return statusPending.Render("○ pending")
	case models.TaskStatusInProgress:
		return statusInProgress.Render("◑ in progress")
	case models.TaskStatusCompleted:
		return statusCompleted.Render("● completed")
	case models.TaskStatusFailed:
		return statusFailed.Render("✗ failed")
	case models.TaskStatusCancelled:
		return statusCancelled.Render("⊘ cancelled")
	default:
		return string(status)
	}
}

// TaskListModel manages the task list screen
type TaskListModel struct {
	client      *Client
	list        list.Model
	tasks       []models.Task
	currentID   string
	filter      models.TaskStatus
	filterIndex int
	loading     bool
}

var filters = append([]models.TaskStatus{""}, models.TaskStatuses...)

// NewTaskListModel creates a new task list model
func NewTaskListModel(client *Client) *TaskListModel {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Tasks [all]"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.Styles.Title = listTitleStyle

	return &TaskListModel{
		client: client,
		list:   l,
	}
}

// Init initializes the task list
func (m *TaskListModel) Init() tea.Cmd {
	return m.Refresh()
}

// SetSize sets the list dimensions
func (m *TaskListModel) SetSize(w, h int) {
	m.list.SetSize(w, h)
}

// SelectedTask returns the currently selected task
func (m *TaskListModel) SelectedTask() *models.Task {
	if item, ok := m.list.SelectedItem().(TaskItem); ok {
		return &item.Task
	}
	return nil
}

// Tasks returns the loaded tasks
func (m *TaskListModel) Tasks() []models.Task {
	return m.tasks
}

// CycleFilter cycles through status filters
func (m *TaskListModel) CycleFilter() tea.Cmd {
	m.filterIndex = (m.filterIndex + 1) % len(filters)
	m.filter = filters[m.filterIndex]
	label := string(m.filter)
	if label == "" {
		label = "all"
	}
	m.list.Title = fmt.Sprintf("Tasks [%s]", label)
	return m.Refresh()
}

// Refresh fetches tasks and the current task from the API
func (m *TaskListModel) Refresh() tea.Cmd {
	m.loading = true
	filter := string(m.filter)
	return func() tea.Msg {
		tasks, err := m.client.ListTasks(filter)
		if err != nil {
			return errMsg{err}
		}
		currentID := ""
		if cur, err := m.client.CurrentTask(); err == nil {
			currentID = cur.ID
		}
		return tasksLoadedMsg{tasks: tasks, currentID: currentID}
	}
}

// Update handles messages
func (m *TaskListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksLoadedMsg:
		m.loading = false
		m.tasks = msg.tasks
		m.currentID = msg.currentID
		items := make([]list.Item, len(m.tasks))
		for i, t := range m.tasks {
			items[i] = TaskItem{Task: t, Current: t.ID == m.currentID}
		}
		return m, m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the task list
func (m *TaskListModel) View() string {
	if m.loading && len(m.tasks) == 0 {
		return "Loading tasks..."
	}
	return m.list.View()
}

type tasksLoadedMsg struct {
	tasks     []models.Task
	currentID string
}
