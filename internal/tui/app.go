// Package tui provides the interactive terminal UI for Concierge.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 1)

	onlineStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

type view int

const (
	viewNone view = iota
	viewTasks
	viewDetail
	viewMemories
	viewConversations
)

var tabs = []struct {
	view  view
	label string
}{
	{viewTasks, "Tasks"},
	{viewMemories, "Memories"},
	{viewConversations, "Conversations"},
}

// App is the main TUI application model.
type App struct {
	client        *Client
	tasks         *TaskListModel
	detail        *TaskDetailModel
	memories      *MemoryModel
	conversations *ConversationModel
	cmdbar        *CmdBarModel
	suggestions   *Suggestions
	mode          view
	width         int
	height        int
	message       string
	daemonOnline  bool
}

// New creates a new TUI application.
func New(apiAddr string) *App {
	client := NewClient(apiAddr)
	return &App{
		client:        client,
		tasks:         NewTaskListModel(client),
		detail:        NewTaskDetailModel(client),
		memories:      NewMemoryModel(client),
		conversations: NewConversationModel(client),
		cmdbar:        NewCmdBarModel(),
		suggestions:   NewSuggestions(),
		mode:          viewTasks,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.tasks.Init(),
		a.memories.Refresh(),
		a.conversations.Refresh(),
		a.checkDaemon(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, handled := a.handleKey(msg); handled {
			return a, cmd
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentHeight := max(5, msg.Height-8)
		a.cmdbar.SetWidth(msg.Width - 8)
		a.tasks.SetSize(msg.Width, contentHeight)
		a.detail.SetSize(msg.Width, contentHeight)
		a.memories.SetSize(msg.Width, contentHeight)
		a.conversations.SetSize(msg.Width, contentHeight)
		return a, nil

	case tasksLoadedMsg:
		_, cmd := a.tasks.Update(msg)
		a.refreshReferences()
		return a, cmd

	case taskDetailLoadedMsg:
		a.detail.Update(msg)
		a.refreshReferences()
		return a, nil

	case memoriesLoadedMsg:
		a.memories.Update(msg)
		return a, nil

	case sessionsLoadedMsg, messagesFoundMsg:
		_, cmd := a.conversations.Update(msg)
		return a, cmd

	case daemonStatusMsg:
		a.daemonOnline = msg.online
		return a, a.tickCmd()

	case tickMsg:
		return a, a.checkDaemon()

	case cmdResultMsg:
		a.message = msg.message
		if msg.view != viewNone {
			a.mode = msg.view
		}
		cmds := []tea.Cmd{a.tasks.Refresh()}
		if msg.followUp != nil {
			follow := msg.followUp
			cmds = append(cmds, func() tea.Msg { return follow })
		} else if a.mode == viewMemories {
			cmds = append(cmds, a.memories.Refresh())
		}
		return a, tea.Batch(cmds...)

	case errMsg:
		a.message = "Error: " + msg.err.Error()
		return a, nil
	}

	var cmd tea.Cmd
	a.cmdbar, cmd = a.cmdbar.Update(msg)
	a.suggestions.Update(a.cmdbar.Value())
	return a, cmd
}

// handleKey processes navigation keys. Keys that are not consumed fall
// through to the command bar.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	typing := a.cmdbar.Value() != ""

	switch msg.String() {
	case "ctrl+c":
		return tea.Quit, true

	case "esc":
		if typing {
			a.cmdbar.SetValue("")
			a.suggestions.Update("")
			return nil, true
		}
		switch a.mode {
		case viewDetail:
			a.mode = viewTasks
			return a.tasks.Refresh(), true
		case viewMemories:
			a.mode = viewTasks
			return a.memories.Refresh(), true
		case viewConversations:
			a.mode = viewTasks
			return a.conversations.Refresh(), true
		}
		return nil, true

	case "up", "down":
		if a.suggestions.IsVisible() {
			if msg.String() == "up" {
				a.suggestions.Prev()
			} else {
				a.suggestions.Next()
			}
			return nil, true
		}
		return a.forward(msg), true

	case "pgup", "pgdown":
		return a.forward(msg), true

	case "tab":
		if a.suggestions.IsVisible() {
			a.cmdbar.SetValue(a.suggestions.Accept())
			a.suggestions.Update(a.cmdbar.Value())
			return nil, true
		}
		a.mode = nextTab(a.mode)
		return nil, true

	case "shift+tab":
		if a.mode == viewTasks || a.mode == viewDetail {
			return a.tasks.CycleFilter(), true
		}
		return nil, true

	case "enter":
		if a.suggestions.IsVisible() {
			a.cmdbar.SetValue(a.suggestions.Accept())
			a.suggestions.Update(a.cmdbar.Value())
			return nil, true
		}
		if input := a.cmdbar.Submit(); input != "" {
			a.suggestions.Update("")
			return a.cmdbar.Execute(a.client, input, a.target()), true
		}
		if a.mode == viewTasks {
			if task := a.tasks.SelectedTask(); task != nil {
				a.mode = viewDetail
				a.detail.SetTask(task.ID)
				return a.detail.Refresh(), true
			}
		}
		return nil, true
	}
	return nil, false
}

// forward sends a navigation key to the active screen.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.mode {
	case viewTasks:
		_, cmd = a.tasks.Update(msg)
	case viewDetail:
		_, cmd = a.detail.Update(msg)
	case viewConversations:
		_, cmd = a.conversations.Update(msg)
	}
	return cmd
}

// target is the task and step commands act on.
func (a *App) target() commandTarget {
	switch a.mode {
	case viewDetail:
		t := commandTarget{TaskID: a.detail.TaskID()}
		if st := a.detail.SelectedStep(); st != nil {
			t.StepID = st.ID
		}
		return t
	case viewTasks:
		if task := a.tasks.SelectedTask(); task != nil {
			return commandTarget{TaskID: task.ID, StepID: task.CurrentStepID}
		}
	}
	return commandTarget{}
}

func (a *App) refreshReferences() {
	var refs []SuggestionItem
	for _, t := range a.tasks.Tasks() {
		refs = append(refs, SuggestionItem{Text: t.ID, Description: t.Title, Type: "task"})
	}
	if a.detail.task != nil {
		for _, st := range a.detail.task.Steps {
			refs = append(refs, SuggestionItem{Text: st.ID, Description: st.Title, Type: "step"})
		}
	}
	a.suggestions.SetReferences(refs)
}

func nextTab(current view) view {
	if current == viewDetail {
		current = viewTasks
	}
	for i, t := range tabs {
		if t.view == current {
			return tabs[(i+1)%len(tabs)].view
		}
	}
	return viewTasks
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	// Header with daemon status
	daemonStatus := onlineStyle.Render("● DAEMON")
	if !a.daemonOnline {
		daemonStatus = offlineStyle.Render("○ DAEMON")
	}

	header := titleStyle.Render("Concierge")
	for _, t := range tabs {
		active := t.view == a.mode || (t.view == viewTasks && a.mode == viewDetail)
		if active {
			header += activeTabStyle.Render(t.label)
		} else {
			header += tabStyle.Render(t.label)
		}
	}
	header += "  " + daemonStatus

	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(0, a.width)) + "\n")

	switch a.mode {
	case viewTasks:
		b.WriteString(a.tasks.View())
	case viewDetail:
		b.WriteString(a.detail.View())
	case viewMemories:
		b.WriteString(a.memories.View())
	case viewConversations:
		b.WriteString(a.conversations.View())
	}

	// Message bar
	b.WriteString("\n")
	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString(msgStyle.Render(a.message))
	}

	// Input box
	b.WriteString("\n")
	b.WriteString(a.cmdbar.View())

	// Suggestions dropdown renders below the input
	if a.suggestions.IsVisible() {
		b.WriteString("\n")
		b.WriteString(a.suggestions.Render(a.width))
	}
	b.WriteString("\n")

	var status string
	switch a.mode {
	case viewTasks:
		status = fmt.Sprintf(" Tasks: %d | ↑↓:nav | Enter:open | Shift+Tab:filter | Tab:next view | Ctrl+C:quit", len(a.tasks.Tasks()))
	case viewDetail:
		status = " ↑↓:step | start/done/fail/cancel/reset | progress <n> | focus | Esc:back"
	case viewMemories:
		status = " note <content> #tag | find <term> | Esc:back"
	case viewConversations:
		status = " PgUp/PgDn:scroll | search <words> @sender #context | Esc:back"
	}
	b.WriteString(statusBarStyle.Width(a.width).Render(status))

	return b.String()
}

func (a *App) checkDaemon() tea.Cmd {
	return func() tea.Msg {
		ok, err := a.client.CheckHealth()
		return daemonStatusMsg{online: err == nil && ok}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type errMsg struct {
	err error
}

type daemonStatusMsg struct {
	online bool
}

type tickMsg time.Time
