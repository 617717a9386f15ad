package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"docqa/internal/llm"
)

func TestEmbeddingsRetriesOn429(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limit","type":"requests"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []any{map[string]any{"object": "embedding", "index": 0, "embedding": []float32{1, 0}}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("test-key", srv.URL)
	vecs, err := c.Embeddings(context.Background(), "m", []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 1 {
		t.Fatalf("got %v", vecs)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, saw %d", got)
	}
}

func TestEmbeddingsFailsFastOnClientError(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("test-key", srv.URL)
	_, err := c.Embeddings(context.Background(), "nope", []string{"a"})
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("client errors must not retry, saw %d attempts", got)
	}
}

func TestChatPersistentFailureIsUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("test-key", srv.URL)
	_, err := c.Chat(context.Background(), "m", []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, llm.ChatOptions{})
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}
