package controlplane

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fentz26/concierge/internal/log"
	"github.com/fentz26/concierge/internal/models"
)

// APIPrefix is where the JSON API is mounted.
const APIPrefix = "/api"

// Pinger checks the backing database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerConfig is the configuration of the HTTP server.
type ServerConfig struct {
	Addr    string
	Version string
	DB      Pinger
	Logger  log.Logger
}

// Server provides the HTTP API.
type Server struct {
	service *Service
	db      Pinger
	addr    string
	version string
	logger  log.Logger
	server  *http.Server
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Noop
	}
	s := &Server{
		service: service,
		db:      cfg.DB,
		addr:    cfg.Addr,
		version: cfg.Version,
		logger:  cfg.Logger.WithValues(log.Kv{"svc": "controlplane.Server"}),
	}
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()

	// Task endpoints
	api.HandleFunc("/tasks", s.handleTasks)
	api.HandleFunc("/tasks/", s.handleTaskByID)

	// Memory endpoints
	api.HandleFunc("/memories", s.handleMemories)
	api.HandleFunc("/memories/categories", s.onlyGet(s.listCategories))
	api.HandleFunc("/memories/tags", s.onlyGet(s.listTags))
	api.HandleFunc("/user/profile", s.onlyGet(s.getUserProfile))

	// Conversation endpoints
	api.HandleFunc("/conversations/sessions", s.onlyGet(s.listSessions))
	api.HandleFunc("/conversations/sessions/", s.handleSessionByID)
	api.HandleFunc("/conversations/search", s.searchMessages)

	mux := http.NewServeMux()
	mux.Handle(APIPrefix+"/", http.StripPrefix(APIPrefix, api))
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start starts the HTTP server and blocks until it stops.
// It returns nil once Shutdown has been called, even if Shutdown came first.
func (s *Server) Start() error {
	s.logger.Infof("Listening on %s", s.addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := HealthResponse{OK: true, DB: "ok", Version: s.version, Time: time.Now().UTC().Format(time.RFC3339)}
	status := http.StatusOK
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			resp.OK = false
			resp.DB = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}

// handleTasks handles POST /tasks and GET /tasks
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createTask(w, r)
	case http.MethodGet:
		s.listTasks(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTaskByID handles /tasks/{id}/*
func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/tasks/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "task id required", http.StatusBadRequest)
		return
	}

	taskID := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case taskID == currentTaskRoute && action == "" && r.Method == http.MethodGet:
		s.currentTask(w, r)
	case taskID == currentTaskRoute && action == "" && r.Method == http.MethodPut:
		s.setCurrentTask(w, r)
	case action == "" && r.Method == http.MethodGet:
		s.getTask(w, r, taskID)
	case action == "progress" && len(parts) == 2 && r.Method == http.MethodPut:
		s.updateTaskProgress(w, r, taskID)
	case action == "steps" && len(parts) == 4 && parts[2] != "" && parts[3] == "status" && r.Method == http.MethodPut:
		s.updateStepStatus(w, r, taskID, parts[2])
	case action == "history" && len(parts) == 2 && r.Method == http.MethodGet:
		s.taskHistory(w, r, taskID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// handleMemories handles POST /memories and GET /memories
func (s *Server) handleMemories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.addMemory(w, r)
	case http.MethodGet:
		s.listMemories(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSessionByID handles /conversations/sessions/{id}/messages
func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/conversations/sessions/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[0] == "" || parts[1] != "messages" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.sessionMessages(w, r, parts[0])
}

// --- Task Handlers ---

type createTaskRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Priority    int               `json:"priority"`
	DueDate     *time.Time        `json:"due_date"`
	Tags        []string          `json:"tags"`
	Metadata    map[string]string `json:"metadata"`
	Steps       []struct {
		ID           string   `json:"id"`
		Title        string   `json:"title"`
		Description  string   `json:"description"`
		Dependencies []string `json:"dependencies"`
	} `json:"steps"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	task := models.Task{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
	}
	for _, st := range req.Steps {
		task.Steps = append(task.Steps, models.Step{
			ID:           st.ID,
			Title:        st.Title,
			Description:  st.Description,
			Dependencies: st.Dependencies,
		})
	}

	created, err := s.service.CreateTask(r.Context(), task)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	tasks, err := s.service.ListTasks(r.Context(), status)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request, taskID string) {
	task, err := s.service.GetTask(r.Context(), taskID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) currentTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.service.CurrentTask(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type setCurrentTaskRequest struct {
	TaskID string `json:"task_id"`
}

func (s *Server) setCurrentTask(w http.ResponseWriter, r *http.Request) {
	var req setCurrentTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TaskID == "" {
		http.Error(w, "invalid json: task_id required", http.StatusBadRequest)
		return
	}
	if err := s.service.SetCurrentTask(r.Context(), req.TaskID); err != nil {
		s.writeError(w, err)
		return
	}
	s.currentTask(w, r)
}

type updateProgressRequest struct {
	Progress *int `json:"progress"`
}

func (s *Server) updateTaskProgress(w http.ResponseWriter, r *http.Request, taskID string) {
	var req updateProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Progress == nil {
		http.Error(w, "invalid json: progress required", http.StatusBadRequest)
		return
	}

	task, err := s.service.UpdateTaskProgress(r.Context(), taskID, *req.Progress)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type updateStepStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) updateStepStatus(w http.ResponseWriter, r *http.Request, taskID, stepID string) {
	var req updateStepStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	task, err := s.service.UpdateStepStatus(r.Context(), taskID, stepID, models.TaskStatus(req.Status))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) taskHistory(w http.ResponseWriter, r *http.Request, taskID string) {
	entries, err := s.service.TaskHistory(r.Context(), taskID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []models.PDREntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Memory Handlers ---

type addMemoryRequest struct {
	Content      string   `json:"content"`
	Importance   int      `json:"importance"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
	Source       string   `json:"source"`
	RelatedItems []string `json:"related_items"`
}

func (s *Server) addMemory(w http.ResponseWriter, r *http.Request) {
	var req addMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	item, err := s.service.AddMemory(r.Context(), models.MemoryItem{
		Content:      req.Content,
		Importance:   req.Importance,
		Category:     req.Category,
		Tags:         req.Tags,
		Source:       req.Source,
		RelatedItems: req.RelatedItems,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) listMemories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var items []models.MemoryItem
	var err error
	if text := q.Get("q"); text != "" {
		items, err = s.service.SearchMemories(r.Context(), text)
	} else {
		items, err = s.service.ListMemories(r.Context(), q.Get("category"), q.Get("tag"))
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	if items == nil {
		items = []models.MemoryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.service.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if cats == nil {
		cats = []models.MemoryCategory{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.service.ListTags(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if tags == nil {
		tags = []models.MemoryTag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) getUserProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.GetUserProfile(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- Conversation Handlers ---

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []models.ConversationSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) sessionMessages(w http.ResponseWriter, r *http.Request, sessionID string) {
	msgs, err := s.service.GetSessionMessages(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.ConversationMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) searchMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var filter models.ConversationFilter
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	msgs, err := s.service.SearchMessages(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// --- helpers ---

func (s *Server) onlyGet(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case IsInvalid(err):
		status = http.StatusBadRequest
	case IsNotFound(err):
		status = http.StatusNotFound
	default:
		s.logger.Errorf("request failed: %v", err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
