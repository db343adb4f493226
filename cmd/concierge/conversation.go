package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/concierge/internal/models"
)

var conversationCmd = &cobra.Command{
	Use:     "conversation",
	Aliases: []string{"conv"},
	Short:   "Browse conversation history",
}

var convSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List conversation sessions",
	RunE:  runConvSessions,
}

var convMessagesCmd = &cobra.Command{
	Use:   "messages [session-id]",
	Short: "Show the messages of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvMessages,
}

var convSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search messages across sessions",
	RunE:  runConvSearch,
}

var (
	searchFrom     string
	searchTo       string
	searchSenders  string
	searchContexts string
	searchKeywords string
)

func init() {
	conversationCmd.AddCommand(convSessionsCmd, convMessagesCmd, convSearchCmd)

	convSearchCmd.Flags().StringVar(&searchFrom, "from", "", "Earliest message time (RFC3339)")
	convSearchCmd.Flags().StringVar(&searchTo, "to", "", "Latest message time (RFC3339)")
	convSearchCmd.Flags().StringVar(&searchSenders, "sender", "", "Comma-separated senders (user, assistant, system)")
	convSearchCmd.Flags().StringVar(&searchContexts, "context", "", "Comma-separated context ids")
	convSearchCmd.Flags().StringVar(&searchKeywords, "keywords", "", "Comma-separated keywords, any may match")
}

func runConvSessions(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/conversations/sessions")
	if err != nil {
		return err
	}

	var sessions []models.ConversationSession
	if err := json.Unmarshal(resp, &sessions); err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTARTED\tMESSAGES\tCONTEXTS")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
			truncateID(s.ID), truncate(s.Title, 40), s.StartTime.Local().Format(time.DateTime), len(s.Messages), len(s.Contexts))
	}
	w.Flush()
	return nil
}

func runConvMessages(cmd *cobra.Command, args []string) error {
	resp, err := apiGet(apiPath("conversations", "sessions", args[0], "messages"))
	if err != nil {
		return err
	}
	return printMessages(resp)
}

func runConvSearch(cmd *cobra.Command, args []string) error {
	var filter models.ConversationFilter
	if searchFrom != "" || searchTo != "" {
		filter.DateRange = &models.DateRange{}
		if searchFrom != "" {
			t, err := time.Parse(time.RFC3339, searchFrom)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			filter.DateRange.Start = &t
		}
		if searchTo != "" {
			t, err := time.Parse(time.RFC3339, searchTo)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}
			filter.DateRange.End = &t
		}
	}
	for _, s := range splitList(searchSenders) {
		filter.Senders = append(filter.Senders, models.SenderType(s))
	}
	filter.ContextIDs = splitList(searchContexts)
	filter.Keywords = splitList(searchKeywords)

	resp, err := apiPost("/conversations/search", filter)
	if err != nil {
		return err
	}
	return printMessages(resp)
}

func printMessages(resp []byte) error {
	var msgs []models.ConversationMessage
	if err := json.Unmarshal(resp, &msgs); err != nil {
		return err
	}

	if len(msgs) == 0 {
		fmt.Println("No messages found")
		return nil
	}

	for _, m := range msgs {
		fmt.Printf("[%s] %s (%s/%s)\n", m.Timestamp.Local().Format(time.DateTime), m.Sender, m.SessionID, m.ContextID)
		fmt.Printf("  %s\n", m.Content)
	}
	return nil
}
