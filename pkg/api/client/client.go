package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client provides typed access to the supplies API for interactive tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:5000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg := extractError(resp.Body)
		return APIError{Status: resp.StatusCode, Message: msg}
	}

	if v == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

// Credentials is the body of register and login requests.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/auth/register", Credentials{Username: username, Password: password}, "", nil)
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", Credentials{Username: username, Password: password}, "", &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("login response did not include a token")
	}
	return resp.Token, nil
}

// Item mirrors the API item payload.
type Item struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	PrimaryLevel int       `json:"primaryLevel"`
	Comment      string    `json:"comment"`
	Acquired     bool      `json:"acquired"`
	CreatedAt    time.Time `json:"createdAt"`
	Owner        string    `json:"owner"`
}

// ListByLevel returns the caller's items for one primary level.
func (c *Client) ListByLevel(ctx context.Context, token string, level int) ([]Item, error) {
	path := fmt.Sprintf("/items/%d", level)
	var items []Item
	if err := c.do(ctx, http.MethodGet, path, nil, token, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SearchParams holds optional search filters; zero values are omitted.
type SearchParams struct {
	Level *int
	Query string
	Type  string
	Sort  string
}

func (p SearchParams) encode() string {
	values := url.Values{}
	if p.Level != nil {
		values.Set("level", strconv.Itoa(*p.Level))
	}
	if p.Query != "" {
		values.Set("q", p.Query)
	}
	if p.Type != "" {
		values.Set("type", p.Type)
	}
	if p.Sort != "" {
		values.Set("sort", p.Sort)
	}
	return values.Encode()
}

// Search returns the caller's items matching params.
func (c *Client) Search(ctx context.Context, token string, params SearchParams) ([]Item, error) {
	path := "/items/search"
	if query := params.encode(); query != "" {
		path += "?" + query
	}
	var items []Item
	if err := c.do(ctx, http.MethodGet, path, nil, token, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateItemInput captures the payload for item creation.
type CreateItemInput struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	PrimaryLevel int    `json:"primaryLevel"`
	Comment      string `json:"comment,omitempty"`
}

// CreateItem adds an item to the caller's list.
func (c *Client) CreateItem(ctx context.Context, token string, input CreateItemInput) (Item, error) {
	var item Item
	if err := c.do(ctx, http.MethodPost, "/items", input, token, &item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// UpdateItemInput lists fields to change; nil fields are left untouched.
type UpdateItemInput struct {
	Name     *string `json:"name,omitempty"`
	Type     *string `json:"type,omitempty"`
	Comment  *string `json:"comment,omitempty"`
	Acquired *bool   `json:"acquired,omitempty"`
}

// UpdateItem changes the provided fields of an item.
func (c *Client) UpdateItem(ctx context.Context, token, itemID string, input UpdateItemInput) (Item, error) {
	path := fmt.Sprintf("/items/%s", url.PathEscape(itemID))
	var item Item
	if err := c.do(ctx, http.MethodPut, path, input, token, &item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// DeleteItem removes an item.
func (c *Client) DeleteItem(ctx context.Context, token, itemID string) error {
	path := fmt.Sprintf("/items/%s", url.PathEscape(itemID))
	return c.do(ctx, http.MethodDelete, path, nil, token, nil)
}
