package tui

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/fentz26/concierge/internal/controlplane"
	"github.com/fentz26/concierge/internal/models"
	"github.com/fentz26/concierge/internal/seed"
	"github.com/fentz26/concierge/internal/store"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	st, err := store.New(store.MemoryPath, nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fx, err := seed.Default()
	if err != nil {
		t.Fatalf("Failed to parse fixtures: %v", err)
	}
	if err := seed.Load(context.Background(), st, fx, nil); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}

	svc, err := controlplane.NewService(controlplane.ServiceConfig{Store: st})
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	srv := httptest.NewServer(controlplane.NewServer(svc, controlplane.ServerConfig{DB: st}).Handler())
	t.Cleanup(srv.Close)

	return NewClient(srv.URL)
}

func TestClientTasks(t *testing.T) {
	c := newTestClient(t)

	tasks, err := c.ListTasks("")
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}

	task, err := c.UpdateStepStatus("task-001", "step-002", models.TaskStatusCompleted)
	if err != nil {
		t.Fatalf("UpdateStepStatus failed: %v", err)
	}
	if task.CurrentStepID != "step-003" {
		t.Errorf("Expected current step step-003, got %s", task.CurrentStepID)
	}
	if got := taskProgress(*task); got != 66 {
		t.Errorf("Expected 66%% progress, got %d", got)
	}

	if _, err := c.UpdateStepStatus("task-001", "step-999", models.TaskStatusCompleted); err == nil {
		t.Error("Expected error for unknown step")
	}
	if _, err := c.UpdateTaskProgress("task-001", 150); err == nil {
		t.Error("Expected error for out of range progress")
	}

	id, err := c.CreateTask("Groceries", []string{"List", "Shop"})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if err := c.SetCurrentTask(id); err != nil {
		t.Fatalf("SetCurrentTask failed: %v", err)
	}
	current, err := c.CurrentTask()
	if err != nil {
		t.Fatalf("CurrentTask failed: %v", err)
	}
	if current.ID != id || len(current.Steps) != 2 {
		t.Errorf("Unexpected current task %+v", current)
	}
}

func TestClientMemoriesAndConversations(t *testing.T) {
	c := newTestClient(t)

	items, err := c.SearchMemories("sushi")
	if err != nil {
		t.Fatalf("SearchMemories failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "mem-002" {
		t.Errorf("Unexpected search result %+v", items)
	}

	if _, err := c.AddMemory("Allergic to peanuts", []string{"food"}); err != nil {
		t.Fatalf("AddMemory failed: %v", err)
	}
	items, err = c.ListMemories("", "food")
	if err != nil {
		t.Fatalf("ListMemories failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected 2 food memories, got %d", len(items))
	}

	msgs, err := c.SearchMessages(parseSearch([]string{"hawaii", "@assistant"}))
	if err != nil {
		t.Fatalf("SearchMessages failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "msg-004" {
		t.Errorf("Unexpected messages %+v", msgs)
	}

	ok, err := c.CheckHealth()
	if err != nil || !ok {
		t.Errorf("Expected healthy daemon, got ok=%v err=%v", ok, err)
	}
}

func TestPathOf(t *testing.T) {
	if got, want := pathOf("tasks", "buy milk", "progress"), "/tasks/buy%20milk/progress"; got != want {
		t.Errorf("pathOf = %q, want %q", got, want)
	}
}

