package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"docqa/internal/models"
)

// MemStore is the in-memory Store used in tests and when no database path
// is configured. Conversations do not survive a restart.
type MemStore struct {
	mu    sync.RWMutex
	convs map[string]*models.Conversation
	doc   *models.DocumentInfo
}

func NewMem() *MemStore {
	return &MemStore{convs: make(map[string]*models.Conversation)}
}

func (s *MemStore) CreateConversation(title string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	c := &models.Conversation{
		ID:      uuid.NewString(),
		Title:   title,
		Created: now,
		Updated: now,
	}
	s.convs[c.ID] = c
	return cloneConv(c), nil
}

func (s *MemStore) AppendExchange(id, userMsg, assistantMsg string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok || c.Deleted {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	now := time.Now().UTC()
	c.Messages = append(c.Messages,
		models.ChatMessage{Role: models.RoleUser, Content: userMsg, Timestamp: now},
		models.ChatMessage{Role: models.RoleAssistant, Content: assistantMsg, Timestamp: now},
	)
	c.Updated = now
	return cloneConv(c), nil
}

func (s *MemStore) ListConversations(skip, limit int) ([]models.ConversationSummary, error) {
	skip, limit = ClampList(skip, limit)
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*models.Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		if !c.Deleted {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Updated.Equal(all[j].Updated) {
			return all[i].Updated.After(all[j].Updated)
		}
		return all[i].ID < all[j].ID
	})
	if skip >= len(all) {
		return []models.ConversationSummary{}, nil
	}
	all = all[skip:]
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]models.ConversationSummary, len(all))
	for i, c := range all {
		out[i] = models.ConversationSummary{
			ID: c.ID, Title: c.Title,
			Created: c.Created, Updated: c.Updated,
			MessageCount: len(c.Messages),
		}
	}
	return out, nil
}

func (s *MemStore) GetConversation(id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[id]
	if !ok || c.Deleted {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return cloneConv(c), nil
}

func (s *MemStore) RenameConversation(id, title string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok || c.Deleted {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	c.Title = title
	c.Updated = time.Now().UTC()
	return cloneConv(c), nil
}

func (s *MemStore) DeleteConversation(id string, permanent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok || (c.Deleted && !permanent) {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if permanent {
		delete(s.convs, id)
		return nil
	}
	c.Deleted = true
	c.Updated = time.Now().UTC()
	return nil
}

func (s *MemStore) SetDocument(doc models.DocumentInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := doc
	s.doc = &d
	return nil
}

func (s *MemStore) CurrentDocument() (models.DocumentInfo, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return models.DocumentInfo{}, false, nil
	}
	return *s.doc, true, nil
}

func (s *MemStore) ClearDocument() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = nil
	return nil
}

func (s *MemStore) Close() error { return nil }

func cloneConv(c *models.Conversation) *models.Conversation {
	out := *c
	out.Messages = make([]models.ChatMessage, len(c.Messages))
	copy(out.Messages, c.Messages)
	return &out
}
