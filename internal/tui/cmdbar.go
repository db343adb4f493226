package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/concierge/internal/models"
)

var (
	cmdBarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

// stepCommands maps command words to the step status they apply.
var stepCommands = map[string]models.TaskStatus{
	"start":  models.TaskStatusInProgress,
	"done":   models.TaskStatusCompleted,
	"fail":   models.TaskStatusFailed,
	"cancel": models.TaskStatusCancelled,
	"reset":  models.TaskStatusPending,
}

// CmdBarModel manages the command input bar
type CmdBarModel struct {
	input textinput.Model
}

// NewCmdBarModel creates a new command bar
func NewCmdBarModel() *CmdBarModel {
	ti := textinput.New()
	ti.Placeholder = "Type / for commands: add, done, progress, note, find, search"
	ti.Prompt = promptStyle.Render("› ")
	ti.CharLimit = 256
	ti.Width = 80
	ti.Focus()
	return &CmdBarModel{
		input: ti,
	}
}

// Value returns the current input
func (m *CmdBarModel) Value() string {
	return m.input.Value()
}

// SetValue replaces the input and moves the cursor to the end
func (m *CmdBarModel) SetValue(v string) {
	m.input.SetValue(v)
	m.input.CursorEnd()
}

// SetWidth sets the input width
func (m *CmdBarModel) SetWidth(w int) {
	m.input.Width = w
}

// Submit returns the current input and clears it
func (m *CmdBarModel) Submit() string {
	val := strings.TrimSpace(strings.TrimPrefix(m.input.Value(), "/"))
	m.input.SetValue("")
	return val
}

// Update handles messages
func (m *CmdBarModel) Update(msg tea.Msg) (*CmdBarModel, tea.Cmd) {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command bar
func (m *CmdBarModel) View() string {
	return cmdBarStyle.Render(m.input.View())
}

// commandTarget is what a command acts on when no id is given.
type commandTarget struct {
	TaskID string
	StepID string
}

// Execute processes a command
func (m *CmdBarModel) Execute(client *Client, input string, target commandTarget) tea.Cmd {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmd := parts[0]
	args := parts[1:]

	if status, ok := stepCommands[cmd]; ok {
		return func() tea.Msg {
			stepID := target.StepID
			if len(args) > 0 {
				stepID = args[0]
			}
			if target.TaskID == "" || stepID == "" {
				return cmdResultMsg{message: "No step selected"}
			}
			task, err := client.UpdateStepStatus(target.TaskID, stepID, status)
			if err != nil {
				return cmdResultMsg{message: fmt.Sprintf("Error: %v", err)}
			}
			return cmdResultMsg{
				message:  fmt.Sprintf("✓ %s is %s, task %d%% %s", stepID, status, taskProgress(*task), task.Status),
				followUp: taskDetailLoadedMsg{task},
			}
		}
	}

	return func() tea.Msg {
		switch cmd {
		case "add":
			if len(args) < 1 {
				return cmdResultMsg{message: "Usage: add <title> | <step> | <step>"}
			}
			segments := strings.Split(strings.Join(args, " "), "|")
			title := strings.TrimSpace(segments[0])
			var steps []string
			for _, s := range segments[1:] {
				if s = strings.TrimSpace(s); s != "" {
					steps = append(steps, s)
				}
			}
			id, err := client.CreateTask(title, steps)
			if err != nil {
				return cmdResultMsg{message: fmt.Sprintf("Error: %v", err)}
			}
			return cmdResultMsg{message: fmt.Sprintf("✓ Created task: %s", truncate(id, 11))}

		case "progress":
			if target.TaskID == "" {
				return cmdResultMsg{message: "No task selected"}
			}
			if len(args) != 1 {
				return cmdResultMsg{message: "Usage: progress <0-100>"}
			}
			value, err := strconv.Atoi(args[0])
			if err != nil {
				return cmdResultMsg{message: "Usage: progress <0-100>"}
			}
			task, err := client.UpdateTaskProgress(target.TaskID, value)
			if err != nil {
				return cmdResultMsg{message: fmt.Sprintf("Error: %v", err)}
			}
			return cmdResultMsg{
				message:  fmt.Sprintf("✓ Task is %s", task.Status),
				followUp: taskDetailLoadedMsg{task},
			}

		case "focus":
			taskID := target.TaskID
			if len(args) > 0 {
				taskID = args[0]
			}
			if taskID == "" {
				return cmdResultMsg{message: "No task selected"}
			}
			if err := client.SetCurrentTask(taskID); err != nil {
				return cmdResultMsg{message: fmt.Sprintf("Error: %v", err)}
			}
			return cmdResultMsg{message: "✓ Current task set"}

		case "note":
			if len(args) < 1 {
				return cmdResultMsg{message: "Usage: note <content> #tag"}
			}
			var words, tags []string
			for _, a := range args {
				if strings.HasPrefix(a, "#") && len(a) > 1 {
					tags = append(tags, a[1:])
				} else {
					words = append(words, a)
				}
			}
			if _, err := client.AddMemory(strings.Join(words, " "), tags); err != nil {
				return cmdResultMsg{message: fmt.Sprintf("Error: %v", err)}
			}
			return cmdResultMsg{message: "✓ Noted", view: viewMemories}

		case "find":
			if len(args) < 1 {
				return cmdResultMsg{message: "Usage: find <term>"}
			}
			query := strings.Join(args, " ")
			items, err := client.SearchMemories(query)
			if err != nil {
				return cmdResultMsg{message: fmt.Sprintf("Error: %v", err)}
			}
			return cmdResultMsg{
				message:  fmt.Sprintf("Found %d memories", len(items)),
				view:     viewMemories,
				followUp: memoriesLoadedMsg{items: items, query: query},
			}

		case "search":
			filter := parseSearch(args)
			msgs, err := client.SearchMessages(filter)
			if err != nil {
				return cmdResultMsg{message: fmt.Sprintf("Error: %v", err)}
			}
			return cmdResultMsg{
				message:  fmt.Sprintf("Found %d messages", len(msgs)),
				view:     viewConversations,
				followUp: messagesFoundMsg{filter: filter, messages: msgs},
			}

		case "q", "quit", "exit":
			return tea.Quit()

		default:
			return cmdResultMsg{message: fmt.Sprintf("Unknown: %s (type / for commands)", cmd)}
		}
	}
}

// parseSearch turns "words @sender #context" into a conversation filter.
func parseSearch(args []string) models.ConversationFilter {
	var f models.ConversationFilter
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "@") && len(a) > 1:
			f.Senders = append(f.Senders, models.SenderType(a[1:]))
		case strings.HasPrefix(a, "#") && len(a) > 1:
			f.ContextIDs = append(f.ContextIDs, a[1:])
		default:
			f.Keywords = append(f.Keywords, a)
		}
	}
	return f
}

type cmdResultMsg struct {
	message string
	// view, when set, switches the screen.
	view view
	// followUp is delivered to the screens after the result is shown.
	followUp tea.Msg
}
