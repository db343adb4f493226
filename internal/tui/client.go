package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fentz26/concierge/internal/controlplane"
	"github.com/fentz26/concierge/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// Client wraps HTTP calls to the Concierge API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with timeout.
// baseURL is the daemon address without the API prefix.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

// --- Tasks ---

// ListTasks fetches tasks, optionally filtered by status
func (c *Client) ListTasks(status string) ([]models.Task, error) {
	path := "/tasks"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var tasks []models.Task
	err := c.do(http.MethodGet, path, nil, &tasks)
	return tasks, err
}

// GetTask fetches a single task
func (c *Client) GetTask(id string) (*models.Task, error) {
	var task models.Task
	if err := c.do(http.MethodGet, pathOf("tasks", id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask creates a task with one step per title and returns its id
func (c *Client) CreateTask(title string, steps []string) (string, error) {
	type step struct {
		Title string `json:"title"`
	}
	body := struct {
		Title string `json:"title"`
		Steps []step `json:"steps"`
	}{Title: title}
	for _, s := range steps {
		body.Steps = append(body.Steps, step{Title: s})
	}

	var task models.Task
	if err := c.do(http.MethodPost, "/tasks", body, &task); err != nil {
		return "", err
	}
	return task.ID, nil
}

// UpdateStepStatus sets a step status and returns the recomputed task
func (c *Client) UpdateStepStatus(taskID, stepID string, status models.TaskStatus) (*models.Task, error) {
	var task models.Task
	body := map[string]string{"status": string(status)}
	if err := c.do(http.MethodPut, pathOf("tasks", taskID, "steps", stepID, "status"), body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTaskProgress sets the overall progress of a task
func (c *Client) UpdateTaskProgress(taskID string, value int) (*models.Task, error) {
	var task models.Task
	if err := c.do(http.MethodPut, pathOf("tasks", taskID, "progress"), map[string]int{"progress": value}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CurrentTask fetches the task the user is focused on
func (c *Client) CurrentTask() (*models.Task, error) {
	var task models.Task
	if err := c.do(http.MethodGet, "/tasks/current", nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// SetCurrentTask selects the task the user is focused on
func (c *Client) SetCurrentTask(taskID string) error {
	return c.do(http.MethodPut, "/tasks/current", map[string]string{"task_id": taskID}, nil)
}

// --- Memories ---

// ListMemories fetches memories filtered by category and tag
func (c *Client) ListMemories(category, tag string) ([]models.MemoryItem, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if tag != "" {
		q.Set("tag", tag)
	}
	path := "/memories"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var items []models.MemoryItem
	err := c.do(http.MethodGet, path, nil, &items)
	return items, err
}

// SearchMemories searches memory content
func (c *Client) SearchMemories(query string) ([]models.MemoryItem, error) {
	var items []models.MemoryItem
	err := c.do(http.MethodGet, "/memories?q="+url.QueryEscape(query), nil, &items)
	return items, err
}

// AddMemory stores a note as a memory item
func (c *Client) AddMemory(content string, tags []string) (string, error) {
	body := map[string]interface{}{
		"content":    content,
		"importance": 50,
		"tags":       tags,
		"source":     "tui",
	}
	var item models.MemoryItem
	if err := c.do(http.MethodPost, "/memories", body, &item); err != nil {
		return "", err
	}
	return item.ID, nil
}

// ListTags fetches the tag cloud
func (c *Client) ListTags() ([]models.MemoryTag, error) {
	var tags []models.MemoryTag
	err := c.do(http.MethodGet, "/memories/tags", nil, &tags)
	return tags, err
}

// --- Conversations ---

// ListSessions fetches all conversation sessions
func (c *Client) ListSessions() ([]models.ConversationSession, error) {
	var sessions []models.ConversationSession
	err := c.do(http.MethodGet, "/conversations/sessions", nil, &sessions)
	return sessions, err
}

// SearchMessages runs a conversation filter
func (c *Client) SearchMessages(filter models.ConversationFilter) ([]models.ConversationMessage, error) {
	var msgs []models.ConversationMessage
	err := c.do(http.MethodPost, "/conversations/search", filter, &msgs)
	return msgs, err
}

// CheckHealth checks if the daemon is healthy
func (c *Client) CheckHealth() (bool, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var health controlplane.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false, err
	}
	return health.OK && resp.StatusCode == http.StatusOK, nil
}

// pathOf builds an API path with every segment escaped.
func pathOf(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(escaped, "/")
}

func (c *Client) do(method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+controlplane.APIPrefix+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s", bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
