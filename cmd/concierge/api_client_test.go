package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func withAPI(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	prev := apiAddr
	apiAddr = srv.URL
	t.Cleanup(func() { apiAddr = prev })
}

func TestAPIPutSendsJSON(t *testing.T) {
	withAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("Expected PUT, got %s", r.Method)
		}
		if r.URL.Path != "/api/tasks/task-001/progress" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"progress":40}` {
			t.Errorf("Unexpected body %s", body)
		}
		w.Write([]byte(`{"id":"task-001"}`))
	})

	resp, err := apiPut("/tasks/task-001/progress", map[string]int{"progress": 40})
	if err != nil {
		t.Fatalf("apiPut failed: %v", err)
	}
	if string(resp) != `{"id":"task-001"}` {
		t.Errorf("Unexpected response %s", resp)
	}
}

func TestAPIErrorIncludesStatus(t *testing.T) {
	withAPI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "task not found", http.StatusNotFound)
	})

	_, err := apiGet("/tasks/nope")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "task not found") {
		t.Errorf("Unexpected error %v", err)
	}
}

func TestCheckHealthUnavailable(t *testing.T) {
	withAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"ok":false,"db":"sql: database is closed","version":"0.1.0"}`))
	})

	health, err := CheckHealth()
	if err == nil {
		t.Fatal("Expected error for unavailable daemon")
	}
	if health == nil || health.OK || health.Version != "0.1.0" {
		t.Errorf("Expected the payload alongside the error, got %+v", health)
	}
	if isDaemonRunning() {
		t.Error("Expected daemon to be reported as not running")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" food, ,japanese ,")
	if len(got) != 2 || got[0] != "food" || got[1] != "japanese" {
		t.Errorf("Unexpected list %v", got)
	}
	if splitList("") != nil {
		t.Error("Expected nil for empty input")
	}
}

func TestAPIPath(t *testing.T) {
	got := apiPath("tasks", "task 1", "steps", "a/b", "status")
	if want := "/tasks/task%201/steps/a%2Fb/status"; got != want {
		t.Errorf("apiPath = %q, want %q", got, want)
	}
}

