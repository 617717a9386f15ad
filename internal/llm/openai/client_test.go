package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"docqa/internal/llm"
)

func TestChatNonStreaming(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model       string  `json:"model"`
			Temperature float32 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "gpt-4o-mini" || req.MaxTokens != 500 {
			t.Errorf("request not forwarded: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "c1",
			"object":  "chat.completion",
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": "hello"}, "finish_reason": "stop"}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("test-key", srv.URL)
	st, err := c.Chat(context.Background(), "gpt-4o-mini", []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, llm.ChatOptions{Temperature: 0.1, MaxTokens: 500})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	s, done, err := st.Recv()
	if err != nil || done {
		t.Fatalf("unexpected: %q done=%v err=%v", s, done, err)
	}
	if s != "hello" {
		t.Fatalf("got %q", s)
	}
	if _, done, _ = st.Recv(); !done {
		t.Fatalf("static stream must finish after one delta")
	}
}

func TestChatStreaming(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"he", "llo"} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", delta)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("test-key", srv.URL)
	st, err := c.Chat(context.Background(), "gpt-4o-mini", []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, llm.ChatOptions{Stream: true})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	var got string
	for {
		delta, done, err := st.Recv()
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		if done {
			break
		}
		got += delta
	}
	if got != "hello" {
		t.Fatalf("streamed %q, want hello", got)
	}
}

func TestEmbeddingsOrderedByIndex(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// deliberately out of order; the client must reassemble by index
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []any{
				map[string]any{"object": "embedding", "index": 1, "embedding": []float32{0.3, 0.4}},
				map[string]any{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2}},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("test-key", srv.URL)
	vecs, err := c.Embeddings(context.Background(), "text-embedding-3-small", []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors", len(vecs))
	}
	if vecs[0][0] != 0.1 || vecs[1][0] != 0.3 {
		t.Fatalf("vectors not in input order: %v", vecs)
	}
}

func TestEmbeddingsEmptyInput(t *testing.T) {
	c := New("test-key", "http://127.0.0.1:0")
	vecs, err := c.Embeddings(context.Background(), "m", nil)
	if err != nil {
		t.Fatalf("empty input must not call the provider: %v", err)
	}
	if len(vecs) != 0 {
		t.Fatalf("got %v", vecs)
	}
}
