package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"fdiadmin/internal/middleware"
	"fdiadmin/internal/models"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
	Header http.Header
}

type fakeAPI struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeAPI(t *testing.T, handler http.HandlerFunc) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(body),
			Header: r.Header.Clone(),
		})
		f.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) client(opts ...Option) *Client {
	return New(f.server.URL+"/api", opts...)
}

func (f *fakeAPI) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("Expected at least one request, got none")
	}
	return f.requests[len(f.requests)-1]
}

func jsonReply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func TestRequestShapes(t *testing.T) {
	link := "https://example.com"

	tests := []struct {
		name       string
		reply      string
		call       func(ctx context.Context, c *Client) error
		wantMethod string
		wantPath   string
		wantQuery  string
		wantBody   string
	}{
		{
			name:       "health",
			reply:      `{"status":"ok"}`,
			call:       func(ctx context.Context, c *Client) error { _, err := c.Health(ctx); return err },
			wantMethod: http.MethodGet,
			wantPath:   "/api/health",
		},
		{
			name:       "list all users",
			reply:      `[]`,
			call:       func(ctx context.Context, c *Client) error { _, err := c.ListUsers(ctx, ""); return err },
			wantMethod: http.MethodGet,
			wantPath:   "/api/users",
		},
		{
			name:       "list pending users",
			reply:      `[]`,
			call:       func(ctx context.Context, c *Client) error { _, err := c.ListUsers(ctx, models.StatusPending); return err },
			wantMethod: http.MethodGet,
			wantPath:   "/api/users",
			wantQuery:  "status=pending",
		},
		{
			name:       "login",
			reply:      `{"access_token":"t"}`,
			call:       func(ctx context.Context, c *Client) error { _, err := c.Login(ctx, "secret"); return err },
			wantMethod: http.MethodPost,
			wantPath:   "/api/users/login",
			wantBody:   `{"password":"secret"}`,
		},
		{
			name:       "approve",
			reply:      `{"user_id":7,"status":"active"}`,
			call:       func(ctx context.Context, c *Client) error { _, err := c.ApproveUser(ctx, 7, true); return err },
			wantMethod: http.MethodPost,
			wantPath:   "/api/users/approve_user",
			wantBody:   `{"user_id":7,"approve":true}`,
		},
		{
			name:       "change level",
			reply:      `{"user_id":3,"level":4}`,
			call:       func(ctx context.Context, c *Client) error { _, err := c.ChangeUserLevel(ctx, 3, models.Level4); return err },
			wantMethod: http.MethodPost,
			wantPath:   "/api/users/change_level",
			wantQuery:  "level=4&user_id=3",
			wantBody:   `{}`,
		},
		{
			name:  "update",
			reply: `{"id":5}`,
			call: func(ctx context.Context, c *Client) error {
				_, err := c.UpdateUser(ctx, 5, models.UserRecord{ID: 5, TelegramID: 55, FirstName: "Ann", Level: models.Level2})
				return err
			},
			wantMethod: http.MethodPut,
			wantPath:   "/api/users/5",
			wantBody:   `{"id":5,"telegram_id":55,"first_name":"Ann","last_name":"","phone":"","email":"","indirizzo":"","varie":"","level":2}`,
		},
		{
			name:       "delete",
			reply:      `{"deleted":true,"user_id":9}`,
			call:       func(ctx context.Context, c *Client) error { _, err := c.DeleteUser(ctx, 9); return err },
			wantMethod: http.MethodDelete,
			wantPath:   "/api/users/9",
		},
		{
			name:  "publish",
			reply: `{"content_id":1,"levels":[2,3]}`,
			call: func(ctx context.Context, c *Client) error {
				_, err := c.PublishContent(ctx, "T", "B", &link, []models.Level{2, 3})
				return err
			},
			wantMethod: http.MethodPost,
			wantPath:   "/api/contents/publish_content",
			wantBody:   `{"title":"T","body":"B","link":"https://example.com","levels":[2,3]}`,
		},
		{
			name:       "send notification",
			reply:      `{"content_id":1,"level":2,"channel_id":"-100","status":"sent"}`,
			call:       func(ctx context.Context, c *Client) error { _, err := c.SendNotification(ctx, 1, models.Level2); return err },
			wantMethod: http.MethodPost,
			wantPath:   "/api/contents/send_notification",
			wantBody:   `{"content_id":1,"level":2}`,
		},
		{
			name:       "history",
			reply:      `[]`,
			call:       func(ctx context.Context, c *Client) error { _, err := c.History(ctx); return err },
			wantMethod: http.MethodGet,
			wantPath:   "/api/contents/history",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, jsonReply(tt.reply))
			if err := tt.call(context.Background(), api.client()); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			got := api.last(t)
			if got.Method != tt.wantMethod {
				t.Errorf("Expected method %s, got %s", tt.wantMethod, got.Method)
			}
			if got.Path != tt.wantPath {
				t.Errorf("Expected path %s, got %s", tt.wantPath, got.Path)
			}
			if got.Query != tt.wantQuery {
				t.Errorf("Expected query %q, got %q", tt.wantQuery, got.Query)
			}
			if got.Body != tt.wantBody {
				t.Errorf("Expected body %s, got %s", tt.wantBody, got.Body)
			}
		})
	}
}

func TestListUsersDecodes(t *testing.T) {
	api := newFakeAPI(t, jsonReply(`[{"id":1,"telegram_id":111,"first_name":"Mario","indirizzo":"Via Roma","level":2}]`))

	users, err := api.client().ListUsers(context.Background(), "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("Expected 1 user, got %d", len(users))
	}
	u := users[0]
	if u.TelegramID != 111 || models.Deref(u.FirstName) != "Mario" || models.Deref(u.Address) != "Via Roma" {
		t.Errorf("Unexpected user decoded: %+v", u)
	}
	if u.LastName != nil {
		t.Errorf("Expected missing last name to stay nil, got %q", *u.LastName)
	}
}

func TestListUsersRejectsNonArray(t *testing.T) {
	api := newFakeAPI(t, jsonReply(`{"detail":"nope"}`))

	_, err := api.client().ListUsers(context.Background(), "")
	if !errors.Is(err, ErrNotAList) {
		t.Errorf("Expected ErrNotAList, got %v", err)
	}
}

func TestLoginWithoutTokenIsSemanticFailure(t *testing.T) {
	api := newFakeAPI(t, jsonReply(`{}`))

	token, err := api.client().Login(context.Background(), "pw")
	if !errors.Is(err, ErrMissingToken) {
		t.Errorf("Expected ErrMissingToken, got %v", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Error("Missing token must not be reported as a transport failure")
	}
	if token != "" {
		t.Errorf("Expected empty token, got %q", token)
	}
}

func TestNonJSONBody(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html>gateway</html>")
	})

	_, err := api.client().Health(context.Background())
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

func TestStatusErrorCarriesDetail(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"User not found"}`)
	})

	_, err := api.client().DeleteUser(context.Background(), 42)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected *StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("Expected code 404, got %d", statusErr.Code)
	}
	if statusErr.Detail != "User not found" {
		t.Errorf("Expected detail %q, got %q", "User not found", statusErr.Detail)
	}
}

func TestTransportFailure(t *testing.T) {
	api := newFakeAPI(t, jsonReply(`{}`))
	c := api.client()
	api.server.Close()

	_, err := c.Health(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", err)
	}
}

func TestTokenAndRequestIDHeaders(t *testing.T) {
	api := newFakeAPI(t, jsonReply(`{"status":"ok"}`))

	ctx := middleware.WithRequestID(context.Background(), "req-1")
	if _, err := api.client().WithToken("abc").Health(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got := api.last(t)
	if auth := got.Header.Get("Authorization"); auth != "Bearer abc" {
		t.Errorf("Expected bearer header, got %q", auth)
	}
	if id := got.Header.Get(middleware.RequestIDHeader); id != "req-1" {
		t.Errorf("Expected request id req-1, got %q", id)
	}
}

func TestWithTokenDoesNotMutateParent(t *testing.T) {
	api := newFakeAPI(t, jsonReply(`{"status":"ok"}`))
	parent := api.client()
	_ = parent.WithToken("abc")

	if _, err := parent.Health(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if auth := api.last(t).Header.Get("Authorization"); auth != "" {
		t.Errorf("Expected no Authorization header on parent client, got %q", auth)
	}
}

type observation struct {
	endpoint string
	outcome  string
}

type recordingObserver struct {
	mu  sync.Mutex
	got []observation
}

func (o *recordingObserver) ObserveRequest(endpoint, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.got = append(o.got, observation{endpoint, outcome})
}

func TestObserverOutcomes(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/users/1" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"detail":"boom"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	obs := &recordingObserver{}
	c := api.client(WithObserver(obs))

	_, _ = c.Health(context.Background())
	_, _ = c.DeleteUser(context.Background(), 1)

	want := []observation{{"health", "ok"}, {"delete_user", "status_500"}}
	if len(obs.got) != len(want) {
		t.Fatalf("Expected %d observations, got %d", len(want), len(obs.got))
	}
	for i := range want {
		if obs.got[i] != want[i] {
			t.Errorf("Observation %d: expected %+v, got %+v", i, want[i], obs.got[i])
		}
	}
}
