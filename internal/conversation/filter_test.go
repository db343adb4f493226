package conversation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fentz26/concierge/internal/conversation"
	"github.com/fentz26/concierge/internal/models"
)

func at(h, m int) time.Time {
	return time.Date(2025, 5, 10, h, m, 0, 0, time.UTC)
}

func testSessions() []models.ConversationSession {
	return []models.ConversationSession{
		{
			ID: "session-001",
			Messages: []models.ConversationMessage{
				{ID: "msg-001", Content: "Good morning! What is the weather today?", Sender: models.SenderUser, Timestamp: at(9, 0), ContextID: "ctx-001"},
				{ID: "msg-002", Content: "Sunny, 24 degrees.", Sender: models.SenderAssistant, Timestamp: at(9, 1), ContextID: "ctx-001"},
				{ID: "msg-003", Content: "Any SUSHI place nearby?", Sender: models.SenderUser, Timestamp: at(9, 10), ContextID: "ctx-002"},
			},
		},
		{
			ID: "session-002",
			Messages: []models.ConversationMessage{
				{ID: "msg-004", Content: "Reminder set.", Sender: models.SenderSystem, Timestamp: at(12, 0)},
			},
		},
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestFilter(t *testing.T) {
	tests := map[string]struct {
		filter models.ConversationFilter
		expIDs []string
	}{
		"An empty filter should match every message in order.": {
			filter: models.ConversationFilter{},
			expIDs: []string{"msg-001", "msg-002", "msg-003", "msg-004"},
		},
		"Filtering by sender should keep only those senders.": {
			filter: models.ConversationFilter{Senders: []models.SenderType{models.SenderUser}},
			expIDs: []string{"msg-001", "msg-003"},
		},
		"Filtering by context should keep only those contexts.": {
			filter: models.ConversationFilter{ContextIDs: []string{"ctx-002"}},
			expIDs: []string{"msg-003"},
		},
		"Keywords should match case-insensitively.": {
			filter: models.ConversationFilter{Keywords: []string{"sushi"}},
			expIDs: []string{"msg-003"},
		},
		"Any keyword should be enough.": {
			filter: models.ConversationFilter{Keywords: []string{"weather", "reminder"}},
			expIDs: []string{"msg-001", "msg-004"},
		},
		"Blank keywords should be ignored.": {
			filter: models.ConversationFilter{Keywords: []string{" ", ""}},
			expIDs: []string{"msg-001", "msg-002", "msg-003", "msg-004"},
		},
		"Date range bounds should be inclusive.": {
			filter: models.ConversationFilter{DateRange: &models.DateRange{Start: ptr(at(9, 1)), End: ptr(at(9, 10))}},
			expIDs: []string{"msg-002", "msg-003"},
		},
		"An open ended date range should only bound one side.": {
			filter: models.ConversationFilter{DateRange: &models.DateRange{Start: ptr(at(10, 0))}},
			expIDs: []string{"msg-004"},
		},
		"Criteria should be combined.": {
			filter: models.ConversationFilter{
				Senders:  []models.SenderType{models.SenderUser},
				Keywords: []string{"morning", "sushi"},
				DateRange: &models.DateRange{
					End: ptr(at(9, 5)),
				},
			},
			expIDs: []string{"msg-001"},
		},
		"Nothing matching should return an empty result.": {
			filter: models.ConversationFilter{Senders: []models.SenderType{models.SenderSystem}, ContextIDs: []string{"ctx-001"}},
			expIDs: []string{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := conversation.Filter(testSessions(), test.filter)

			ids := []string{}
			for _, m := range got {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, test.expIDs, ids)
		})
	}
}

func TestFilterFillsSessionID(t *testing.T) {
	got := conversation.Filter(testSessions(), models.ConversationFilter{Senders: []models.SenderType{models.SenderSystem}})

	if assert.Len(t, got, 1) {
		assert.Equal(t, "session-002", got[0].SessionID)
	}
}
