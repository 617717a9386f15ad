package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"docqa/internal/llm"
	"docqa/internal/models"
	"docqa/internal/store"
	"docqa/internal/version"
)

// maxUploadBytes bounds the multipart upload body.
const maxUploadBytes = 32 << 20

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	st := models.HealthStatus{Status: "ok"}
	if doc, ok := a.mgr.Document(); ok {
		st.HasDocument = true
		st.ChunksCount = doc.ChunkCount
		st.Filename = doc.Filename
		st.FileSize = doc.Size
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"version": version.String()})
}

func (a *API) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r) {
		return
	}
	switch r.Method {
	case http.MethodPost:
		a.handleUpload(w, r)
	case http.MethodDelete:
		a.handleClear(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	}
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "multipart form with a 'file' field required")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "'file' field required")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to read upload")
		return
	}
	res, err := a.pipe.Ingest(r.Context(), hdr.Filename, data)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleClear(w http.ResponseWriter, r *http.Request) {
	old, had, err := a.pipe.Clear()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !had {
		writeError(w, http.StatusNotFound, "no_document", "no document loaded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Document cleared",
		"filename": old.Filename,
	})
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "q required")
		return
	}
	k := a.cfg.TopK
	if v := r.URL.Query().Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "k must be a positive integer")
			return
		}
		k = n
	}
	results, err := a.mgr.Query(r.Context(), q, k)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if results == nil {
		results = []models.ScoredChunk{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type askRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chat_id,omitempty"`
	TopK    int    `json:"top_k,omitempty"`
	Stream  bool   `json:"stream,omitempty"`
}

func (a *API) handleAsk(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message required")
		return
	}
	k := req.TopK
	if k <= 0 {
		k = a.cfg.TopK
	}

	results, err := a.mgr.Query(r.Context(), req.Message, k)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var conv *models.Conversation
	var history []llm.HistoryPair
	if req.ChatID != "" {
		conv, err = a.st.GetConversation(req.ChatID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		history = llm.WindowHistory(conv.Messages, a.cfg.MaxHistoryPairs)
	} else {
		conv, err = a.st.CreateConversation(store.TitleFromMessage(req.Message))
		if err != nil {
			writeDomainError(w, err)
			return
		}
	}

	prompt := llm.BuildAnswerPrompt(req.Message, llm.JoinContext(results), history)
	msgs := []llm.Message{{Role: llm.RoleUser, Content: prompt}}
	opts := llm.ChatOptions{
		Stream:      req.Stream,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	}
	stream, err := a.chat.Chat(r.Context(), a.cfg.ChatModel, msgs, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer stream.Close()

	if req.Stream {
		a.streamAnswer(w, stream, conv, req.Message, results)
		return
	}

	var buf strings.Builder
	for {
		delta, done, err := stream.Recv()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		buf.WriteString(delta)
		if done {
			break
		}
	}
	answer := buf.String()
	if _, err := a.st.AppendExchange(conv.ID, req.Message, answer); err != nil {
		a.lg.Warn("ask.persist", "chat_id", conv.ID, "error", err.Error())
	}
	writeJSON(w, http.StatusOK, models.AskResult{
		ChatID:  conv.ID,
		Answer:  answer,
		Title:   conv.Title,
		Sources: results,
	})
}

// streamAnswer relays token deltas over SSE and persists the completed
// exchange before the final done event. The done event carries the
// conversation metadata the client needs to continue the chat.
func (a *API) streamAnswer(w http.ResponseWriter, stream llm.ChatStream, conv *models.Conversation, question string, sources []models.ScoredChunk) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	fl, _ := w.(http.Flusher)
	flush := func() {
		if fl != nil {
			fl.Flush()
		}
	}
	var buf strings.Builder
	for {
		delta, done, err := stream.Recv()
		if err != nil {
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", jsonEscape(err.Error()))
			flush()
			return
		}
		if delta != "" {
			buf.WriteString(delta)
			fmt.Fprintf(w, "event: token\ndata: %s\n\n", jsonEscape(delta))
			flush()
		}
		if done {
			break
		}
	}
	if _, err := a.st.AppendExchange(conv.ID, question, buf.String()); err != nil {
		a.lg.Warn("ask.persist", "chat_id", conv.ID, "error", err.Error())
	}
	meta, _ := json.Marshal(models.AskResult{ChatID: conv.ID, Title: conv.Title, Sources: sources})
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", meta)
	flush()
}

func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	if len(b) >= 2 {
		return string(b[1 : len(b)-1])
	}
	return string(b)
}

func (a *API) handleChats(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := a.st.ListConversations(skip, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleChatByID(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/chats/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown chat path")
		return
	}
	switch r.Method {
	case http.MethodGet:
		conv, err := a.st.GetConversation(id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conv)
	case http.MethodPatch:
		var req struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
			return
		}
		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "title cannot be empty")
			return
		}
		conv, err := a.st.RenameConversation(id, req.Title)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conv)
	case http.MethodDelete:
		permanent := r.URL.Query().Get("permanent") == "1" || r.URL.Query().Get("permanent") == "true"
		if err := a.st.DeleteConversation(id, permanent); err != nil {
			writeDomainError(w, err)
			return
		}
		msg := "Chat deleted successfully"
		if permanent {
			msg = "Chat permanently deleted"
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	}
}
