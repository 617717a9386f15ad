// Package store persists conversations and the current-document record.
package store

import (
	"errors"
	"strings"

	"docqa/internal/models"
)

// ErrNotFound marks lookups for conversations that do not exist or were
// soft-deleted.
var ErrNotFound = errors.New("not found")

const (
	// DefaultListLimit bounds a conversation listing when the caller does
	// not ask for a limit; MaxListLimit caps what it may ask for.
	DefaultListLimit = 50
	MaxListLimit     = 100

	titleMaxLen = 50
)

// Store is the persistence boundary shared by the HTTP API. Both the
// SQLite and the in-memory implementation satisfy it.
type Store interface {
	CreateConversation(title string) (*models.Conversation, error)
	AppendExchange(id, userMsg, assistantMsg string) (*models.Conversation, error)
	ListConversations(skip, limit int) ([]models.ConversationSummary, error)
	GetConversation(id string) (*models.Conversation, error)
	RenameConversation(id, title string) (*models.Conversation, error)
	DeleteConversation(id string, permanent bool) error

	SetDocument(doc models.DocumentInfo) error
	CurrentDocument() (models.DocumentInfo, bool, error)
	ClearDocument() error

	Close() error
}

// TitleFromMessage derives a conversation title from its first user
// message: at most 50 characters, cut back to a word boundary, with "..."
// appended when truncated.
func TitleFromMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "New Chat"
	}
	if len(msg) <= titleMaxLen {
		return msg
	}
	cut := msg[:titleMaxLen]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

// ClampList normalizes skip/limit for listings.
func ClampList(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return skip, limit
}
