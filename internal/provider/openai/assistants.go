package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Run statuses reported by the provider.
const (
	RunQueued         = "queued"
	RunInProgress     = "in_progress"
	RunRequiresAction = "requires_action"
	RunCancelling     = "cancelling"
	RunCancelled      = "cancelled"
	RunFailed         = "failed"
	RunCompleted      = "completed"
	RunIncomplete     = "incomplete"
	RunExpired        = "expired"
)

// Thread is a provider-side conversation.
type Thread struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
}

// Assistant is a provider-side persona bound to a model.
type Assistant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	Instructions string `json:"instructions"`
}

// AssistantRequest creates an assistant.
type AssistantRequest struct {
	Name         string `json:"name,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Model        string `json:"model"`
}

// Run is one execution of an assistant over a thread.
type Run struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Status    string    `json:"status"`
	LastError *RunError `json:"last_error,omitempty"`
}

// RunError describes why a run failed.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Message is a thread message.
type Message struct {
	ID       string           `json:"id"`
	Role     string           `json:"role"`
	ThreadID string           `json:"thread_id"`
	Content  []MessageContent `json:"content"`
}

// MessageContent is a single content block. Only text blocks carry Text.
type MessageContent struct {
	Type      string     `json:"type"`
	Text      *TextBlock `json:"text,omitempty"`
	ImageFile *struct {
		FileID string `json:"file_id"`
	} `json:"image_file,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

// TextBlock holds the text value of a content block.
type TextBlock struct {
	Value string `json:"value"`
}

// IsText reports whether the block carries text.
func (c MessageContent) IsText() bool {
	return c.Text != nil
}

// MessageList is a page of thread messages, newest first by default.
type MessageList struct {
	Data    []Message `json:"data"`
	HasMore bool      `json:"has_more"`
}

// CreateThread creates an empty thread.
func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	var thread Thread
	if err := c.doJSON(ctx, http.MethodPost, "/threads", struct{}{}, &thread, true); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	return &thread, nil
}

// CreateAssistant registers an assistant.
func (c *Client) CreateAssistant(ctx context.Context, req AssistantRequest) (*Assistant, error) {
	var assistant Assistant
	if err := c.doJSON(ctx, http.MethodPost, "/assistants", req, &assistant, true); err != nil {
		return nil, fmt.Errorf("create assistant: %w", err)
	}
	return &assistant, nil
}

// CreateMessage appends a message to a thread.
func (c *Client) CreateMessage(ctx context.Context, threadID, role, content string) (*Message, error) {
	payload := map[string]string{"role": role, "content": content}

	var msg Message
	path := "/threads/" + url.PathEscape(threadID) + "/messages"
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &msg, true); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return &msg, nil
}

// CreateRun starts the assistant on a thread.
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	payload := map[string]string{"assistant_id": assistantID}

	var run Run
	path := "/threads/" + url.PathEscape(threadID) + "/runs"
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &run, true); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return &run, nil
}

// RetrieveRun fetches the current state of a run.
func (c *Client) RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var run Run
	path := "/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &run, true); err != nil {
		return nil, fmt.Errorf("retrieve run: %w", err)
	}
	return &run, nil
}

// ListMessages returns the thread's messages, newest first.
func (c *Client) ListMessages(ctx context.Context, threadID string) (*MessageList, error) {
	var list MessageList
	path := "/threads/" + url.PathEscape(threadID) + "/messages?order=desc"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list, true); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return &list, nil
}
