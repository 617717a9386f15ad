package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Conversation struct {
	ID       string        `json:"chat_id"`
	Title    string        `json:"title"`
	Messages []ChatMessage `json:"messages"`
	Created  time.Time     `json:"created_at"`
	Updated  time.Time     `json:"updated_at"`
	Deleted  bool          `json:"-"`
}

// ConversationSummary is the list view: no message bodies, just counts.
type ConversationSummary struct {
	ID           string    `json:"chat_id"`
	Title        string    `json:"title"`
	Created      time.Time `json:"created_at"`
	Updated      time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// DocumentInfo describes the currently loaded document. Path is the backing
// file on disk and never leaves the process.
type DocumentInfo struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"file_size"`
	Path       string    `json:"-"`
	ChunkCount int       `json:"chunks_count"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Chunk is one window of document text. Ordinal is its position in the
// chunk sequence and doubles as the index key.
type Chunk struct {
	Ordinal int    `json:"ordinal"`
	Text    string `json:"text"`
}

type ScoredChunk struct {
	Ordinal int     `json:"ordinal"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

type UploadResult struct {
	Message        string `json:"message"`
	ChunksCount    int    `json:"chunks_count"`
	IsUpdate       bool   `json:"is_update"`
	PreviousChunks int    `json:"previous_chunks,omitempty"`
	Filename       string `json:"filename"`
	FileSize       int64  `json:"file_size"`
}

type HealthStatus struct {
	Status      string `json:"status"`
	HasDocument bool   `json:"has_document"`
	ChunksCount int    `json:"chunks_count"`
	Filename    string `json:"filename,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
}

type AskResult struct {
	ChatID  string        `json:"chat_id"`
	Answer  string        `json:"answer"`
	Title   string        `json:"title"`
	Sources []ScoredChunk `json:"sources,omitempty"`
}
