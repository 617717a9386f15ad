package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"docqa/internal/models"
	sqlm "docqa/internal/storage/sqlite"
)

// SQLiteStore persists conversations and the current-document row in a
// single SQLite file. One connection keeps modernc's driver busy-safe.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := (sqlm.Manager{}).UpToLatest(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// WithTx commits on nil error and rolls back otherwise. The callback must
// not hold the tx beyond return.
func (s *SQLiteStore) WithTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) CreateConversation(title string) (*models.Conversation, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	ts := now.Format(time.RFC3339Nano)
	_, err := s.db.Exec(`INSERT INTO conversations(id,title,created_at,updated_at,deleted) VALUES(?,?,?,?,0)`,
		id, title, ts, ts)
	if err != nil {
		return nil, err
	}
	return &models.Conversation{ID: id, Title: title, Created: now, Updated: now}, nil
}

func (s *SQLiteStore) AppendExchange(id, userMsg, assistantMsg string) (*models.Conversation, error) {
	now := time.Now().UTC()
	ts := now.Format(time.RFC3339Nano)
	err := s.WithTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE conversations SET updated_at=? WHERE id=? AND deleted=0`, ts, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
		}
		if _, err := tx.Exec(`INSERT INTO conversation_messages(conv_id,role,content,created_at) VALUES(?,?,?,?)`,
			id, string(models.RoleUser), userMsg, ts); err != nil {
			return err
		}
		_, err = tx.Exec(`INSERT INTO conversation_messages(conv_id,role,content,created_at) VALUES(?,?,?,?)`,
			id, string(models.RoleAssistant), assistantMsg, ts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetConversation(id)
}

func (s *SQLiteStore) ListConversations(skip, limit int) ([]models.ConversationSummary, error) {
	skip, limit = ClampList(skip, limit)
	rows, err := s.db.Query(`
        SELECT c.id, c.title, c.created_at, c.updated_at,
               (SELECT COUNT(1) FROM conversation_messages m WHERE m.conv_id = c.id)
        FROM conversations c
        WHERE c.deleted = 0
        ORDER BY c.updated_at DESC, c.id
        LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.ConversationSummary{}
	for rows.Next() {
		var cs models.ConversationSummary
		var created, updated string
		if err := rows.Scan(&cs.ID, &cs.Title, &created, &updated, &cs.MessageCount); err != nil {
			return nil, err
		}
		cs.Created, _ = time.Parse(time.RFC3339Nano, created)
		cs.Updated, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetConversation(id string) (*models.Conversation, error) {
	row := s.db.QueryRow(`SELECT id, title, created_at, updated_at FROM conversations WHERE id=? AND deleted=0`, id)
	var c models.Conversation
	var created, updated string
	if err := row.Scan(&c.ID, &c.Title, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	c.Created, _ = time.Parse(time.RFC3339Nano, created)
	c.Updated, _ = time.Parse(time.RFC3339Nano, updated)

	rows, err := s.db.Query(`SELECT role, content, created_at FROM conversation_messages WHERE conv_id=? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m models.ChatMessage
		var role, ts string
		if err := rows.Scan(&role, &m.Content, &ts); err != nil {
			return nil, err
		}
		m.Role = models.Role(role)
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		c.Messages = append(c.Messages, m)
	}
	return &c, rows.Err()
}

func (s *SQLiteStore) RenameConversation(id, title string) (*models.Conversation, error) {
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.Exec(`UPDATE conversations SET title=?, updated_at=? WHERE id=? AND deleted=0`, title, ts, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return s.GetConversation(id)
}

func (s *SQLiteStore) DeleteConversation(id string, permanent bool) error {
	if permanent {
		return s.WithTx(func(tx *sql.Tx) error {
			if _, err := tx.Exec(`DELETE FROM conversation_messages WHERE conv_id=?`, id); err != nil {
				return err
			}
			res, err := tx.Exec(`DELETE FROM conversations WHERE id=?`, id)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
			}
			return nil
		})
	}
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.Exec(`UPDATE conversations SET deleted=1, updated_at=? WHERE id=? AND deleted=0`, ts, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) SetDocument(doc models.DocumentInfo) error {
	_, err := s.db.Exec(`
        INSERT INTO current_document(id,filename,size,path,chunk_count,uploaded_at)
        VALUES(1,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET
            filename=excluded.filename, size=excluded.size, path=excluded.path,
            chunk_count=excluded.chunk_count, uploaded_at=excluded.uploaded_at`,
		doc.Filename, doc.Size, doc.Path, doc.ChunkCount,
		doc.UploadedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) CurrentDocument() (models.DocumentInfo, bool, error) {
	row := s.db.QueryRow(`SELECT filename, size, path, chunk_count, uploaded_at FROM current_document WHERE id=1`)
	var d models.DocumentInfo
	var uploaded string
	if err := row.Scan(&d.Filename, &d.Size, &d.Path, &d.ChunkCount, &uploaded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DocumentInfo{}, false, nil
		}
		return models.DocumentInfo{}, false, err
	}
	d.UploadedAt, _ = time.Parse(time.RFC3339Nano, uploaded)
	return d, true, nil
}

func (s *SQLiteStore) ClearDocument() error {
	_, err := s.db.Exec(`DELETE FROM current_document WHERE id=1`)
	return err
}
