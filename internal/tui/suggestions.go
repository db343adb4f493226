package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Suggestions provides autocomplete for the word being typed
type Suggestions struct {
	items        []SuggestionItem
	references   []SuggestionItem
	filtered     []SuggestionItem
	selectedIdx  int
	visible      bool
	prefix       string // "/" or "@"
	currentInput string
}

// SuggestionItem represents a single autocomplete suggestion
type SuggestionItem struct {
	Text        string
	Description string
	Type        string // "command", "task", "step", "sender"
}

var commandSuggestions = []SuggestionItem{
	{Text: "add", Description: "Create a task: add <title> | <step> | <step>", Type: "command"},
	{Text: "start", Description: "Start the selected step", Type: "command"},
	{Text: "done", Description: "Complete the selected step", Type: "command"},
	{Text: "fail", Description: "Mark the selected step failed", Type: "command"},
	{Text: "cancel", Description: "Cancel the selected step", Type: "command"},
	{Text: "reset", Description: "Set the selected step back to pending", Type: "command"},
	{Text: "progress", Description: "Set overall task progress: progress <0-100>", Type: "command"},
	{Text: "focus", Description: "Make the selected task the current task", Type: "command"},
	{Text: "note", Description: "Remember something: note <content> #tag", Type: "command"},
	{Text: "find", Description: "Search memories", Type: "command"},
	{Text: "search", Description: "Search conversations: search <words> @sender #context", Type: "command"},
	{Text: "quit", Description: "Leave Concierge", Type: "command"},
}

var senderSuggestions = []SuggestionItem{
	{Text: "user", Description: "Messages you sent", Type: "sender"},
	{Text: "assistant", Description: "Messages the assistant sent", Type: "sender"},
	{Text: "system", Description: "System messages", Type: "sender"},
}

// NewSuggestions creates a new suggestions handler
func NewSuggestions() *Suggestions {
	return &Suggestions{
		items:      commandSuggestions,
		references: senderSuggestions,
	}
}

// SetReferences replaces the task and step ids offered after "@"
func (s *Suggestions) SetReferences(items []SuggestionItem) {
	s.references = append(append([]SuggestionItem(nil), items...), senderSuggestions...)
	if s.prefix == "@" {
		s.Update(s.currentInput)
	}
}

// Update updates suggestions based on current input
func (s *Suggestions) Update(input string) {
	s.currentInput = input
	word := lastWord(input)

	switch {
	case strings.HasPrefix(input, "/") && !strings.Contains(input, " "):
		s.prefix = "/"
		s.items = commandSuggestions
		s.visible = true
		s.filter(strings.ToLower(strings.TrimPrefix(input, "/")))
	case strings.HasPrefix(word, "@"):
		s.prefix = "@"
		s.items = s.references
		s.visible = true
		s.filter(strings.ToLower(strings.TrimPrefix(word, "@")))
	default:
		s.visible = false
		s.filtered = nil
		s.prefix = ""
	}
}

// Accept returns the input with the word being typed replaced by the
// selected suggestion.
func (s *Suggestions) Accept() string {
	selected := s.Selected()
	if selected == nil {
		return s.currentInput
	}
	head := strings.TrimSuffix(s.currentInput, lastWord(s.currentInput))
	if s.prefix == "@" && selected.Type == "sender" {
		return head + "@" + selected.Text + " "
	}
	return head + selected.Text + " "
}

func lastWord(input string) string {
	if i := strings.LastIndex(input, " "); i >= 0 {
		return input[i+1:]
	}
	return input
}

// filter keeps items matching query. Prefix matches on the text come
// first, then other text matches, then description matches.
func (s *Suggestions) filter(query string) {
	s.selectedIdx = 0
	if query == "" {
		s.filtered = s.items
		return
	}

	var prefix, inText, inDesc []SuggestionItem
	for _, item := range s.items {
		text := strings.ToLower(item.Text)
		switch {
		case strings.HasPrefix(text, query):
			prefix = append(prefix, item)
		case strings.Contains(text, query):
			inText = append(inText, item)
		case strings.Contains(strings.ToLower(item.Description), query):
			inDesc = append(inDesc, item)
		}
	}
	s.filtered = append(append(prefix, inText...), inDesc...)
}

// Next moves to the next suggestion
func (s *Suggestions) Next() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx = (s.selectedIdx + 1) % len(s.filtered)
}

// Prev moves to the previous suggestion
func (s *Suggestions) Prev() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx--
	if s.selectedIdx < 0 {
		s.selectedIdx = len(s.filtered) - 1
	}
}

// Selected returns the currently selected suggestion
func (s *Suggestions) Selected() *SuggestionItem {
	if !s.visible || len(s.filtered) == 0 || s.selectedIdx >= len(s.filtered) {
		return nil
	}
	return &s.filtered[s.selectedIdx]
}

// IsVisible returns whether suggestions are currently visible
func (s *Suggestions) IsVisible() bool {
	return s.visible && len(s.filtered) > 0
}

const maxVisibleSuggestions = 5

var (
	suggestionBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#6366F1")).
				Padding(0, 1)

	suggestionSelectedStyle = lipgloss.NewStyle().
				Background(primaryColor).
				Foreground(fgColor).
				Bold(true)

	suggestionItemStyle = lipgloss.NewStyle().Foreground(fgColor)

	suggestionDescStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Italic(true)
)

// window returns the range of filtered items to draw so the selection is
// always on screen.
func (s *Suggestions) window() (int, int) {
	n := len(s.filtered)
	if n <= maxVisibleSuggestions {
		return 0, n
	}
	start := min(max(0, s.selectedIdx-maxVisibleSuggestions+1), n-maxVisibleSuggestions)
	return start, start + maxVisibleSuggestions
}

// Render renders the suggestions dropdown
func (s *Suggestions) Render(width int) string {
	if !s.IsVisible() {
		return ""
	}

	var b strings.Builder
	header := "Commands"
	if s.prefix == "@" {
		header = "References"
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")

	start, end := s.window()
	if start > 0 {
		b.WriteString(suggestionDescStyle.Render(fmt.Sprintf("  ... %d above", start)))
		b.WriteString("\n")
	}
	for i := start; i < end; i++ {
		item := s.filtered[i]
		var line string
		if i == s.selectedIdx {
			line = suggestionSelectedStyle.Render("▶ " + item.Text)
			if item.Description != "" {
				line += " " + suggestionSelectedStyle.Render(item.Description)
			}
		} else {
			line = suggestionItemStyle.Render("  " + item.Text)
			if item.Description != "" {
				line += " " + suggestionDescStyle.Render(item.Description)
			}
		}
		if item.Type != "command" {
			line += " " + suggestionDescStyle.Render("("+item.Type+")")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if rest := len(s.filtered) - end; rest > 0 {
		b.WriteString(suggestionDescStyle.Render(fmt.Sprintf("  ... and %d more", rest)))
	}

	return suggestionBoxStyle.Width(max(20, width-4)).Render(strings.TrimRight(b.String(), "\n"))
}
