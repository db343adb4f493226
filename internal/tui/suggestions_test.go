package tui

import "testing"

func TestSuggestionsCommands(t *testing.T) {
	s := NewSuggestions()

	s.Update("/do")
	if !s.IsVisible() {
		t.Fatal("Expected suggestions to be visible")
	}
	if got := s.Selected(); got == nil || got.Text != "done" {
		t.Fatalf("Expected 'done' to be selected, got %+v", got)
	}
	if got := s.Accept(); got != "done " {
		t.Errorf("Expected accepted input 'done ', got %q", got)
	}

	s.Update("done ")
	if s.IsVisible() {
		t.Error("Expected suggestions to hide once a command is typed")
	}
}

func TestSuggestionsReferences(t *testing.T) {
	s := NewSuggestions()
	s.SetReferences([]SuggestionItem{
		{Text: "task-001", Type: "task"},
		{Text: "step-002", Type: "step"},
	})

	s.Update("done @step")
	if got := s.Selected(); got == nil || got.Text != "step-002" {
		t.Fatalf("Expected step-002, got %+v", got)
	}
	if got := s.Accept(); got != "done step-002 " {
		t.Errorf("Expected 'done step-002 ', got %q", got)
	}

	s.Update("search hawaii @assis")
	if got := s.Accept(); got != "search hawaii @assistant " {
		t.Errorf("Expected sender reference to keep its @, got %q", got)
	}
}

func TestSuggestionsNavigation(t *testing.T) {
	s := NewSuggestions()
	s.Update("/")

	first := s.Selected().Text
	s.Prev()
	last := s.Selected().Text
	if last == first {
		t.Fatal("Expected Prev to wrap to the last suggestion")
	}
	s.Next()
	if s.Selected().Text != first {
		t.Errorf("Expected Next to wrap back to %q, got %q", first, s.Selected().Text)
	}

	s.Update("")
	if s.Selected() != nil {
		t.Error("Expected no selection for empty input")
	}
}

func TestParseSearch(t *testing.T) {
	f := parseSearch([]string{"hawaii", "@assistant", "#ctx-002", "beach"})

	if len(f.Keywords) != 2 || f.Keywords[0] != "hawaii" || f.Keywords[1] != "beach" {
		t.Errorf("Unexpected keywords %v", f.Keywords)
	}
	if len(f.Senders) != 1 || f.Senders[0] != "assistant" {
		t.Errorf("Unexpected senders %v", f.Senders)
	}
	if len(f.ContextIDs) != 1 || f.ContextIDs[0] != "ctx-002" {
		t.Errorf("Unexpected context ids %v", f.ContextIDs)
	}
}

func TestSuggestionsRanking(t *testing.T) {
	s := NewSuggestions()

	// "re" starts "reset", appears inside "progress" and only in the
	// description of "note".
	s.Update("/re")
	if got := s.Selected(); got == nil || got.Text != "reset" {
		t.Fatalf("Expected prefix match 'reset' first, got %+v", got)
	}
	var sawNote bool
	for _, item := range s.filtered {
		if item.Text == "note" {
			sawNote = true
		}
	}
	if !sawNote {
		t.Error("Expected description matches to be included")
	}
}

func TestSuggestionsWindowFollowsSelection(t *testing.T) {
	s := NewSuggestions()
	s.Update("/")

	for i := 0; i < maxVisibleSuggestions+2; i++ {
		s.Next()
	}
	start, end := s.window()
	if end-start != maxVisibleSuggestions {
		t.Fatalf("Expected a window of %d, got %d..%d", maxVisibleSuggestions, start, end)
	}
	if s.selectedIdx < start || s.selectedIdx >= end {
		t.Errorf("Selection %d outside window %d..%d", s.selectedIdx, start, end)
	}
}
