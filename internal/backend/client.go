package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fdiadmin/internal/middleware"
	"fdiadmin/internal/models"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000/api"
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
)

var (
	ErrTransport         = errors.New("api unreachable")
	ErrMalformedResponse = errors.New("api returned a non-JSON body")
	ErrNotAList          = errors.New("api listing is not a JSON array")
	ErrMissingToken      = errors.New("login response has no access token")
)

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api status %d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("api status %d", e.Code)
}

// Observer receives one call per API request.
type Observer interface {
	ObserveRequest(endpoint, outcome string, elapsed time.Duration)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// Client binds each administrative action to exactly one API request.
// It holds no mutable state, so one value may be shared between sessions;
// WithToken derives a per-session copy.
type Client struct {
	baseURL  string
	http     *http.Client
	token    string
	observer Observer
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var out models.Health
	if err := c.do(ctx, "health", http.MethodGet, "/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers lists every user, or only those with the given status when it is non-empty.
func (c *Client) ListUsers(ctx context.Context, status models.Status) ([]models.User, error) {
	var query url.Values
	endpoint := "list_users"
	if status != "" {
		query = url.Values{"status": {string(status)}}
		endpoint = "list_users_" + string(status)
	}

	var raw json.RawMessage
	if err := c.do(ctx, endpoint, http.MethodGet, "/users", query, nil, &raw); err != nil {
		return nil, err
	}
	if !isJSONArray(raw) {
		return nil, ErrNotAList
	}

	var users []models.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return users, nil
}

// Login exchanges the admin password for an access token.
func (c *Client) Login(ctx context.Context, password string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	body := map[string]string{"password": password}
	if err := c.do(ctx, "login", http.MethodPost, "/users/login", nil, body, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", ErrMissingToken
	}
	return out.AccessToken, nil
}

func (c *Client) ApproveUser(ctx context.Context, userID int, approve bool) (*models.ApproveResult, error) {
	body := struct {
		UserID  int  `json:"user_id"`
		Approve bool `json:"approve"`
	}{UserID: userID, Approve: approve}

	var out models.ApproveResult
	if err := c.do(ctx, "approve_user", http.MethodPost, "/users/approve_user", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangeUserLevel passes both values in the query string with an empty JSON body.
func (c *Client) ChangeUserLevel(ctx context.Context, userID int, level models.Level) (*models.LevelChange, error) {
	query := url.Values{
		"user_id": {strconv.Itoa(userID)},
		"level":   {strconv.Itoa(int(level))},
	}

	var out models.LevelChange
	if err := c.do(ctx, "change_level", http.MethodPost, "/users/change_level", query, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, userID int, record models.UserRecord) (json.RawMessage, error) {
	var out json.RawMessage
	path := "/users/" + strconv.Itoa(userID)
	if err := c.do(ctx, "update_user", http.MethodPut, path, nil, record, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteUser(ctx context.Context, userID int) (*models.DeleteResult, error) {
	var out models.DeleteResult
	path := "/users/" + strconv.Itoa(userID)
	if err := c.do(ctx, "delete_user", http.MethodDelete, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PublishContent(ctx context.Context, title, body string, link *string, levels []models.Level) (*models.PublishResult, error) {
	if levels == nil {
		levels = []models.Level{}
	}
	req := models.PublishRequest{Title: title, Body: body, Link: link, Levels: levels}

	var out models.PublishResult
	if err := c.do(ctx, "publish_content", http.MethodPost, "/contents/publish_content", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendNotification(ctx context.Context, contentID int, level models.Level) (*models.NotificationResult, error) {
	body := struct {
		ContentID int          `json:"content_id"`
		Level     models.Level `json:"level"`
	}{ContentID: contentID, Level: level}

	var out models.NotificationResult
	if err := c.do(ctx, "send_notification", http.MethodPost, "/contents/send_notification", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context) ([]models.Content, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "history", http.MethodGet, "/contents/history", nil, nil, &raw); err != nil {
		return nil, err
	}
	if !isJSONArray(raw) {
		return nil, ErrNotAList
	}

	var items []models.Content
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return items, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, body, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveRequest(endpoint, outcomeOf(err), time.Since(start))
		}
	}()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return fmt.Errorf("encoding %s request: %w", endpoint, marshalErr)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("building %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("Error closing API response body: %v", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: reading %s %s: %v", ErrTransport, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Detail: detailOf(data)}
	}

	if !json.Valid(data) {
		return fmt.Errorf("%w: %s %s", ErrMalformedResponse, method, path)
	}
	if out == nil {
		return nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, method, path, err)
	}
	return nil
}

// detailOf extracts the API's {"detail": ...} message, which may be a string or a validation list.
func detailOf(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	return string(body.Detail)
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func outcomeOf(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &statusErr):
		return "status_" + strconv.Itoa(statusErr.Code)
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrMalformedResponse), errors.Is(err, ErrNotAList):
		return "malformed"
	default:
		return "error"
	}
}
