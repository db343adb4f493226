package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/concierge/internal/models"
	"github.com/fentz26/concierge/internal/progress"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new task",
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show task details and steps",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskStepCmd = &cobra.Command{
	Use:   "step [task-id] [step-id] [status]",
	Short: "Set the status of a step",
	Long:  `Sets a step status (pending, in_progress, completed, failed, cancelled) and recomputes the task progress.`,
	Args:  cobra.ExactArgs(3),
	RunE:  runTaskStep,
}

var taskProgressCmd = &cobra.Command{
	Use:   "progress [task-id] [0-100]",
	Short: "Set the overall progress of a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskProgress,
}

var taskCurrentCmd = &cobra.Command{
	Use:   "current [task-id]",
	Short: "Show the current task, or select one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTaskCurrent,
}

var taskHistoryCmd = &cobra.Command{
	Use:   "history [task-id]",
	Short: "Show the decision records of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskHistory,
}

var (
	taskTitle    string
	taskDesc     string
	taskStatus   string
	taskPriority int
	taskSteps    []string
)

func init() {
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskShowCmd, taskStepCmd, taskProgressCmd, taskCurrentCmd, taskHistoryCmd)

	taskAddCmd.Flags().StringVar(&taskTitle, "title", "", "Task title (required)")
	taskAddCmd.Flags().StringVar(&taskDesc, "desc", "", "Task description")
	taskAddCmd.Flags().IntVar(&taskPriority, "priority", 3, "Priority from 1 (low) to 5 (high)")
	taskAddCmd.Flags().StringArrayVar(&taskSteps, "step", nil, "Step title, repeat for each step in order")
	taskAddCmd.MarkFlagRequired("title")

	taskListCmd.Flags().StringVar(&taskStatus, "status", "", "Filter by status (pending, in_progress, completed, failed, cancelled)")
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	type stepBody struct {
		Title string `json:"title"`
	}
	body := struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Priority    int        `json:"priority"`
		Steps       []stepBody `json:"steps"`
	}{Title: taskTitle, Description: taskDesc, Priority: taskPriority}
	for _, s := range taskSteps {
		body.Steps = append(body.Steps, stepBody{Title: s})
	}

	resp, err := apiPost("/tasks", body)
	if err != nil {
		return err
	}

	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}

	fmt.Printf("Created task: %s\n", task.ID)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	path := "/tasks"
	if taskStatus != "" {
		path += "?status=" + taskStatus
	}

	resp, err := apiGet(path)
	if err != nil {
		return err
	}

	var tasks []models.Task
	if err := json.Unmarshal(resp, &tasks); err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPROGRESS\tCURRENT STEP")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\n",
			truncateID(t.ID), truncate(t.Title, 40), t.Status, progress.OverallProgress(t.Steps), t.CurrentStepID)
	}
	w.Flush()
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	resp, err := apiGet(apiPath("tasks", args[0]))
	if err != nil {
		return err
	}

	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}
	printTask(task)
	return nil
}

func runTaskStep(cmd *cobra.Command, args []string) error {
	body := map[string]string{"status": args[2]}

	resp, err := apiPut(apiPath("tasks", args[0], "steps", args[1], "status"), body)
	if err != nil {
		return err
	}

	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}
	printTask(task)
	return nil
}

func runTaskProgress(cmd *cobra.Command, args []string) error {
	value, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("progress must be an integer: %w", err)
	}

	resp, err := apiPut(apiPath("tasks", args[0], "progress"), map[string]int{"progress": value})
	if err != nil {
		return err
	}

	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}
	fmt.Printf("Task %s is now %s\n", task.ID, task.Status)
	return nil
}

func runTaskCurrent(cmd *cobra.Command, args []string) error {
	var resp []byte
	var err error
	if len(args) == 1 {
		resp, err = apiPut("/tasks/current", map[string]string{"task_id": args[0]})
	} else {
		resp, err = apiGet("/tasks/current")
	}
	if err != nil {
		return err
	}

	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}
	printTask(task)
	return nil
}

func runTaskHistory(cmd *cobra.Command, args []string) error {
	resp, err := apiGet(apiPath("tasks", args[0], "history"))
	if err != nil {
		return err
	}

	var entries []models.PDREntry
	if err := json.Unmarshal(resp, &entries); err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No records found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOUTCOME\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Action, e.Outcome, truncate(e.Details, 60))
	}
	w.Flush()
	return nil
}

func printTask(task models.Task) {
	fmt.Printf("ID:          %s\n", task.ID)
	fmt.Printf("Title:       %s\n", task.Title)
	fmt.Printf("Description: %s\n", task.Description)
	fmt.Printf("Status:      %s\n", task.Status)
	fmt.Printf("Progress:    %d%% of steps completed\n", progress.OverallProgress(task.Steps))
	fmt.Printf("Priority:    %d\n", task.Priority)
	if task.DueDate != nil {
		fmt.Printf("Due:         %s\n", task.DueDate.Local().Format(time.DateOnly))
	}
	if len(task.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(task.Tags, ", "))
	}
	fmt.Printf("Updated:     %s\n", task.UpdatedAt.Local().Format(time.DateTime))

	if len(task.Steps) == 0 {
		return
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tSTEP\tTITLE\tSTATUS\tPROGRESS\tDEPENDS ON")
	for _, st := range task.Steps {
		marker := " "
		if st.ID == task.CurrentStepID {
			marker = ">"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
			marker, st.ID, truncate(st.Title, 30), st.Status, st.Progress, strings.Join(st.Dependencies, ","))
	}
	w.Flush()
}

// --- Helpers ---

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
