package retrieval

import (
	"context"
	"errors"
	"os"
	"sync"

	"docqa/internal/models"
)

// ErrNoDocument distinguishes "nothing ingested yet" from an empty result.
var ErrNoDocument = errors.New("no document loaded")

// Manager owns the single process-wide retriever slot. The slot is either
// empty or holds one complete aggregate; swaps are atomic under the write
// lock and queries hold the read lock for their whole run, so a reader can
// never observe a half-replaced index.
type Manager struct {
	mu  sync.RWMutex
	cur *Retriever
}

func NewManager() *Manager { return &Manager{} }

// Query searches the current document. Returns ErrNoDocument when the slot
// is empty.
func (m *Manager) Query(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return nil, ErrNoDocument
	}
	return m.cur.Search(ctx, query, k)
}

// Document reports the loaded document's metadata, if any.
func (m *Manager) Document() (models.DocumentInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return models.DocumentInfo{}, false
	}
	return m.cur.doc, true
}

// Replace installs next as the current aggregate and retires the previous
// one: its vector storage is released and its backing file deleted. Both
// happen after the swap, so the old file outlives any failed build that
// never reaches Replace. Returns the displaced document's metadata.
func (m *Manager) Replace(next *Retriever) (models.DocumentInfo, bool) {
	m.mu.Lock()
	old := m.cur
	m.cur = next
	m.mu.Unlock()
	if old == nil {
		return models.DocumentInfo{}, false
	}
	old.release()
	if p := old.doc.Path; p != "" && (next == nil || p != next.doc.Path) {
		_ = os.Remove(p)
	}
	return old.doc, true
}

// Clear empties the slot, releasing storage and deleting the backing file.
func (m *Manager) Clear() (models.DocumentInfo, bool) {
	return m.Replace(nil)
}
