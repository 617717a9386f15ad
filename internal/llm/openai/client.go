// Package openai adapts the OpenAI API (or any compatible gateway) to the
// llm provider interfaces.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"docqa/internal/llm"
)

const (
	maxAttempts  = 3
	retryBackoff = 200 * time.Millisecond
)

type Client struct {
	api *goopenai.Client
}

// New builds a client for the given key. An empty baseURL targets the
// public OpenAI endpoint; set it to point at a local gateway instead.
func New(apiKey, baseURL string) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{api: goopenai.NewClientWithConfig(cfg)}
}

// Chat implements llm.ChatProvider.
func (c *Client) Chat(ctx context.Context, model string, messages []llm.Message, opts llm.ChatOptions) (llm.ChatStream, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    toSDKMessages(messages),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.Stream {
		s, err := c.api.CreateChatCompletionStream(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%w: chat stream: %v", llm.ErrUnavailable, err)
		}
		return &chatStream{s: s}, nil
	}
	var resp goopenai.ChatCompletionResponse
	err := withRetry(ctx, func() error {
		var err error
		resp, err = c.api.CreateChatCompletion(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: chat: %v", llm.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: chat returned no choices", llm.ErrUnavailable)
	}
	return &staticStream{s: resp.Choices[0].Message.Content}, nil
}

// Embeddings implements llm.Embedder. Vectors come back in input order.
func (c *Client) Embeddings(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	var resp goopenai.EmbeddingResponse
	err := withRetry(ctx, func() error {
		var err error
		resp, err = c.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
			Model: goopenai.EmbeddingModel(model),
			Input: inputs,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings: %v", llm.ErrUnavailable, err)
	}
	out := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", llm.ErrUnavailable, d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		copy(vec, d.Embedding)
		out[d.Index] = vec
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("%w: no embedding for input %d", llm.ErrUnavailable, i)
		}
	}
	return out, nil
}

// withRetry runs fn up to maxAttempts times, backing off on rate limits and
// server errors. Client errors fail immediately.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff << (attempt - 1)):
			}
		}
		err = fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
	}
	return err
}

func retryable(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	// transport-level failure
	return true
}

func toSDKMessages(messages []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, goopenai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

type chatStream struct {
	s *goopenai.ChatCompletionStream
}

func (s *chatStream) Recv() (string, bool, error) {
	resp, err := s.s.Recv()
	if errors.Is(err, io.EOF) {
		return "", true, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", false, nil
	}
	return resp.Choices[0].Delta.Content, false, nil
}

func (s *chatStream) Close() error { return s.s.Close() }

// staticStream adapts a non-streaming completion to the stream interface:
// one delta carrying the whole message, then done.
type staticStream struct{ s string }

func (s *staticStream) Recv() (string, bool, error) {
	if s.s == "" {
		return "", true, nil
	}
	v := s.s
	s.s = ""
	return v, false, nil
}

func (s *staticStream) Close() error { return nil }
