// Package client is the typed HTTP client for the docqa API, shared by
// the CLI subcommands and the chat TUI.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"docqa/internal/models"
)

// Client talks to one docqa server. The zero timeout on the embedded
// http.Client is deliberate: ask requests stream for as long as the
// model generates.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// New builds a client for base. The optional API token is read from
// DOCQA_API_TOKEN so the CLI and the server share one setting.
func New(base string) *Client {
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: os.Getenv("DOCQA_API_TOKEN"),
		http:  &http.Client{},
	}
}

// apiError mirrors the server's error body.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var e apiError
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("%s: %s", e.Error, e.Message)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}

// Upload sends the file at path as a multipart form.
func (c *Client) Upload(ctx context.Context, path string) (models.UploadResult, error) {
	var res models.UploadResult
	data, err := os.ReadFile(path)
	if err != nil {
		return res, err
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return res, err
	}
	if _, err := fw.Write(data); err != nil {
		return res, err
	}
	mw.Close()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/documents", &body)
	if err != nil {
		return res, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return res, c.do(req, &res)
}

// ClearDocument removes the active document.
func (c *Client) ClearDocument(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.base+"/documents", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Status fetches the health summary.
func (c *Client) Status(ctx context.Context) (models.HealthStatus, error) {
	var st models.HealthStatus
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/healthz", nil)
	if err != nil {
		return st, err
	}
	return st, c.do(req, &st)
}

// Search runs retrieval only.
func (c *Client) Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	u := c.base + "/search?q=" + url.QueryEscape(query)
	if k > 0 {
		u += "&k=" + strconv.Itoa(k)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var res struct {
		Results []models.ScoredChunk `json:"results"`
	}
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return res.Results, nil
}

// Ask sends a question and waits for the complete answer.
func (c *Client) Ask(ctx context.Context, message, chatID string, topK int) (models.AskResult, error) {
	var res models.AskResult
	req, err := c.askRequest(ctx, message, chatID, topK, false)
	if err != nil {
		return res, err
	}
	return res, c.do(req, &res)
}

// AskStream sends a question and calls onToken for every delta. The
// returned result carries the conversation metadata from the done event;
// its Answer is the concatenation of the deltas.
func (c *Client) AskStream(ctx context.Context, message, chatID string, topK int, onToken func(string)) (models.AskResult, error) {
	var res models.AskResult
	req, err := c.askRequest(ctx, message, chatID, topK, true)
	if err != nil {
		return res, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return res, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return res, decodeError(resp)
	}

	var answer strings.Builder
	var event string
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data := strings.TrimPrefix(line, "data: ")
			switch event {
			case "token":
				var tok string
				if err := json.Unmarshal([]byte(`"`+data+`"`), &tok); err != nil {
					tok = data
				}
				answer.WriteString(tok)
				if onToken != nil {
					onToken(tok)
				}
			case "error":
				return res, fmt.Errorf("stream error: %s", data)
			case "done":
				if err := json.Unmarshal([]byte(data), &res); err != nil {
					return res, fmt.Errorf("decode done event: %w", err)
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return res, err
	}
	res.Answer = answer.String()
	return res, nil
}

func (c *Client) askRequest(ctx context.Context, message, chatID string, topK int, stream bool) (*http.Request, error) {
	body, err := json.Marshal(map[string]any{
		"message": message,
		"chat_id": chatID,
		"top_k":   topK,
		"stream":  stream,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/ask", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Chats lists conversation summaries.
func (c *Client) Chats(ctx context.Context, skip, limit int) ([]models.ConversationSummary, error) {
	u := fmt.Sprintf("%s/chats?skip=%d&limit=%d", c.base, skip, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var list []models.ConversationSummary
	return list, c.do(req, &list)
}

// Chat fetches one conversation with its messages.
func (c *Client) Chat(ctx context.Context, id string) (*models.Conversation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/chats/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var conv models.Conversation
	if err := c.do(req, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// RenameChat updates a conversation title.
func (c *Client) RenameChat(ctx context.Context, id, title string) (*models.Conversation, error) {
	body, _ := json.Marshal(map[string]string{"title": title})
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.base+"/chats/"+url.PathEscape(id), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var conv models.Conversation
	if err := c.do(req, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// DeleteChat removes a conversation, permanently when requested.
func (c *Client) DeleteChat(ctx context.Context, id string, permanent bool) error {
	u := c.base + "/chats/" + url.PathEscape(id)
	if permanent {
		u += "?permanent=1"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// WithTimeout returns a derived context for the short, non-streaming
// calls the CLI makes.
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 30*time.Second)
}
