package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/oneiro/internal/domain"
	"github.com/bnema/oneiro/internal/ports"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"

	betaHeader        = "assistants=v2"
	maxResponseBytes  = 1 << 20
	messagesPageSize  = 20
	defaultReqTimeout = 30 * time.Second
)

var (
	ErrMissingCredentials = errors.New("assistant api key is required")
	ErrMissingAssistantID = errors.New("assistant id is required")
)

type Config struct {
	BaseURL        string
	APIKey         string
	AssistantID    string
	RequestTimeout time.Duration
}

// Client talks to the Assistants v2 API over plain HTTP.
type Client struct {
	baseURL        string
	apiKey         string
	assistantID    string
	requestTimeout time.Duration
	httpClient     *http.Client
}

var _ ports.Assistant = (*Client)(nil)

func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingCredentials
	}
	if strings.TrimSpace(cfg.AssistantID) == "" {
		return nil, ErrMissingAssistantID
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if err := validateBaseURL(baseURL); err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultReqTimeout
	}

	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         cfg.APIKey,
		assistantID:    cfg.AssistantID,
		requestTimeout: timeout,
		httpClient:     httpClient,
	}, nil
}

type threadObject struct {
	ID string `json:"id"`
}

type messageObject struct {
	ID      string          `json:"id"`
	Role    string          `json:"role"`
	Content []contentObject `json:"content"`
}

type contentObject struct {
	Type string `json:"type"`
	Text *struct {
		Value string `json:"value"`
	} `json:"text,omitempty"`
}

type messageList struct {
	Data []messageObject `json:"data"`
}

type runObject struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	Status   string `json:"status"`
}

type createMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type createRunRequest struct {
	AssistantID            string `json:"assistant_id"`
	AdditionalInstructions string `json:"additional_instructions"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) OpenThread(ctx context.Context) (domain.ThreadHandle, error) {
	var thread threadObject
	if err := c.do(ctx, "create thread", http.MethodPost, "/threads", struct{}{}, &thread); err != nil {
		return domain.ThreadHandle{}, err
	}
	if thread.ID == "" {
		return domain.ThreadHandle{}, fmt.Errorf("%w: create thread: response missing id", domain.ErrServiceUnavailable)
	}

	return domain.ThreadHandle{ID: thread.ID}, nil
}

func (c *Client) PostMessage(ctx context.Context, thread domain.ThreadHandle, text string, profile *domain.Profile) (string, error) {
	if err := requireRemote(thread); err != nil {
		return "", err
	}

	body := createMessageRequest{Role: "user", Content: ComposeMessage(text, profile)}
	var message messageObject
	path := "/threads/" + url.PathEscape(thread.ID) + "/messages"
	if err := c.do(ctx, "post message", http.MethodPost, path, body, &message); err != nil {
		return "", err
	}

	return message.ID, nil
}

func (c *Client) StartRun(ctx context.Context, thread domain.ThreadHandle, round int) (domain.RunHandle, error) {
	if err := requireRemote(thread); err != nil {
		return domain.RunHandle{}, err
	}

	body := createRunRequest{AssistantID: c.assistantID, AdditionalInstructions: Instructions(round)}
	var run runObject
	path := "/threads/" + url.PathEscape(thread.ID) + "/runs"
	if err := c.do(ctx, "start run", http.MethodPost, path, body, &run); err != nil {
		return domain.RunHandle{}, err
	}
	if run.ID == "" {
		return domain.RunHandle{}, fmt.Errorf("%w: start run: response missing id", domain.ErrServiceUnavailable)
	}

	return domain.RunHandle{ID: run.ID, ThreadID: thread.ID}, nil
}

func (c *Client) PollRun(ctx context.Context, run domain.RunHandle) (domain.RunStatus, error) {
	var out runObject
	path := "/threads/" + url.PathEscape(run.ThreadID) + "/runs/" + url.PathEscape(run.ID)
	if err := c.do(ctx, "poll run", http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}

	return domain.RunStatus(out.Status), nil
}

func (c *Client) LatestAssistantMessage(ctx context.Context, thread domain.ThreadHandle) (string, error) {
	if err := requireRemote(thread); err != nil {
		return "", err
	}

	var list messageList
	path := fmt.Sprintf("/threads/%s/messages?order=desc&limit=%d", url.PathEscape(thread.ID), messagesPageSize)
	if err := c.do(ctx, "list messages", http.MethodGet, path, nil, &list); err != nil {
		return "", err
	}

	for _, message := range list.Data {
		if message.Role != string(domain.SenderAssistant) {
			continue
		}
		if text := messageText(message); text != "" {
			return text, nil
		}
	}

	return "", domain.ErrNoResponse
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, out any) error {
	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", betaHeader)
	req.Header.Set("User-Agent", "oneiro")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrServiceUnavailable, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %s: read response: %w", domain.ErrServiceUnavailable, op, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s: %s", domain.ErrServiceUnavailable, op, describeAPIError(resp.StatusCode, data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %w", domain.ErrServiceUnavailable, op, err)
	}

	return nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.requestTimeout)
}

func requireRemote(thread domain.ThreadHandle) error {
	if thread.Degraded || thread.ID == "" {
		return fmt.Errorf("%w: thread %q is not a remote thread", domain.ErrServiceUnavailable, thread.ID)
	}
	return nil
}

func messageText(message messageObject) string {
	parts := make([]string, 0, len(message.Content))
	for _, content := range message.Content {
		if content.Type != "text" || content.Text == nil {
			continue
		}
		if value := strings.TrimSpace(content.Text.Value); value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, "\n\n")
}

func describeAPIError(statusCode int, body []byte) string {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
		return fmt.Sprintf("status %d", statusCode)
	}
	return fmt.Sprintf("status %d: %s", statusCode, apiErr.Error.Message)
}

func validateBaseURL(baseURL string) error {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parse assistant base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("assistant base url must use http or https")
	}
	if parsed.Host == "" {
		return errors.New("assistant base url host is required")
	}
	return nil
}
