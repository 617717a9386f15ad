package llm

import (
	"context"
	"errors"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ErrUnavailable marks provider calls that failed after retries. Callers
// match it with errors.Is; the HTTP boundary maps it to 502.
var ErrUnavailable = errors.New("llm provider unavailable")

type ChatOptions struct {
	Stream      bool
	Temperature float32
	MaxTokens   int
}

// ChatProvider provides chat completion APIs.
type ChatProvider interface {
	Chat(ctx context.Context, model string, messages []Message, opts ChatOptions) (ChatStream, error)
}

// Embedder provides embedding generation APIs.
type Embedder interface {
	Embeddings(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

// ChatStream yields token deltas, or a single final message if non-streaming.
type ChatStream interface {
	Recv() (delta string, done bool, err error)
	Close() error
}
