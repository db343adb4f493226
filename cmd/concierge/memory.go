package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/concierge/internal/models"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Manage memory items",
}

var memoryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a memory item",
	RunE:  runMemoryAdd,
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List memory items, most important first",
	RunE:  runMemoryList,
}

var memoryCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List memory categories",
	RunE:  runMemoryCategories,
}

var memoryTagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List memory tags",
	RunE:  runMemoryTags,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the user profile",
	RunE:  runProfile,
}

var (
	memContent    string
	memTags       string
	memCategory   string
	memImportance int
	memSource     string
	memTag        string
	memQuery      string
)

func init() {
	memoryCmd.AddCommand(memoryAddCmd, memoryListCmd, memoryCategoriesCmd, memoryTagsCmd, profileCmd)

	memoryAddCmd.Flags().StringVar(&memContent, "content", "", "Memory content (required)")
	memoryAddCmd.Flags().StringVar(&memTags, "tags", "", "Comma-separated tag ids")
	memoryAddCmd.Flags().StringVar(&memCategory, "category", "", "Category id")
	memoryAddCmd.Flags().IntVar(&memImportance, "importance", 50, "Importance from 0 to 100")
	memoryAddCmd.Flags().StringVar(&memSource, "source", "cli", "Where the memory came from")
	memoryAddCmd.MarkFlagRequired("content")

	memoryListCmd.Flags().StringVar(&memCategory, "category", "", "Filter by category id")
	memoryListCmd.Flags().StringVar(&memTag, "tag", "", "Filter by tag id")
	memoryListCmd.Flags().StringVar(&memQuery, "q", "", "Search content (ignores other filters)")
}

func runMemoryAdd(cmd *cobra.Command, args []string) error {
	body := map[string]interface{}{
		"content":    memContent,
		"importance": memImportance,
		"category":   memCategory,
		"tags":       splitList(memTags),
		"source":     memSource,
	}

	resp, err := apiPost("/memories", body)
	if err != nil {
		return err
	}

	var item models.MemoryItem
	if err := json.Unmarshal(resp, &item); err != nil {
		return err
	}

	fmt.Printf("Created memory item: %s\n", item.ID)
	return nil
}

func runMemoryList(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	if memQuery != "" {
		q.Set("q", memQuery)
	} else {
		if memCategory != "" {
			q.Set("category", memCategory)
		}
		if memTag != "" {
			q.Set("tag", memTag)
		}
	}
	path := "/memories"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := apiGet(path)
	if err != nil {
		return err
	}

	var items []models.MemoryItem
	if err := json.Unmarshal(resp, &items); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("No memory items found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tIMPORTANCE\tCATEGORY\tCONTENT\tTAGS")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			truncateID(item.ID),
			item.Importance,
			item.Category,
			truncate(item.Content, 50),
			strings.Join(item.Tags, ","))
	}
	w.Flush()
	return nil
}

func runMemoryCategories(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/memories/categories")
	if err != nil {
		return err
	}

	var cats []models.MemoryCategory
	if err := json.Unmarshal(resp, &cats); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOLOR\tDESCRIPTION")
	for _, c := range cats {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Color, truncate(c.Description, 50))
	}
	w.Flush()
	return nil
}

func runMemoryTags(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/memories/tags")
	if err != nil {
		return err
	}

	var tags []models.MemoryTag
	if err := json.Unmarshal(resp, &tags); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOUNT\tIMPORTANCE")
	for _, t := range tags {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", t.ID, t.Name, t.Count, t.Importance)
	}
	w.Flush()
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/user/profile")
	if err != nil {
		return err
	}

	var p models.UserProfile
	if err := json.Unmarshal(resp, &p); err != nil {
		return err
	}

	fmt.Printf("ID:        %s\n", p.ID)
	fmt.Printf("Name:      %s\n", p.Name)
	fmt.Printf("Interests: %s\n", strings.Join(p.Interests, ", "))
	for k, v := range p.Preferences {
		fmt.Printf("  %s = %v\n", k, v)
	}
	for _, d := range p.ImportantDates {
		fmt.Printf("Date:      %s %s (%s)\n", d.Date.Format(time.DateOnly), d.Description, d.Type)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
