// Package conversation evaluates message search filters over sessions.
package conversation

import (
	"strings"

	"github.com/fentz26/concierge/internal/models"
)

// Match reports whether msg satisfies every criterion of f.
// An empty criterion matches all messages.
func Match(f models.ConversationFilter, msg models.ConversationMessage) bool {
	if dr := f.DateRange; dr != nil {
		if dr.Start != nil && msg.Timestamp.Before(*dr.Start) {
			return false
		}
		if dr.End != nil && msg.Timestamp.After(*dr.End) {
			return false
		}
	}

	if len(f.Senders) > 0 && !containsSender(f.Senders, msg.Sender) {
		return false
	}

	if len(f.ContextIDs) > 0 && !containsString(f.ContextIDs, msg.ContextID) {
		return false
	}

	if kws := keywords(f.Keywords); len(kws) > 0 {
		content := strings.ToLower(msg.Content)
		found := false
		for _, kw := range kws {
			if strings.Contains(content, kw) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// Filter returns the messages of all sessions that match f, in session
// order and then message order.
func Filter(sessions []models.ConversationSession, f models.ConversationFilter) []models.ConversationMessage {
	out := []models.ConversationMessage{}
	for _, sess := range sessions {
		for _, msg := range sess.Messages {
			if msg.SessionID == "" {
				msg.SessionID = sess.ID
			}
			if Match(f, msg) {
				out = append(out, msg)
			}
		}
	}
	return out
}

// keywords lowercases the non-blank keywords.
func keywords(raw []string) []string {
	var out []string
	for _, kw := range raw {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			out = append(out, strings.ToLower(kw))
		}
	}
	return out
}

func containsSender(list []models.SenderType, s models.SenderType) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
