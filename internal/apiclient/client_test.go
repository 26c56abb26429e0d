package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/backoffice/internal/apitest"
	"github.com/tansive/backoffice/internal/common/logtrace"
	"github.com/tansive/backoffice/internal/session"
	"github.com/tidwall/gjson"
)

func newTestClient(t *testing.T, s *apitest.Server, sess session.Session) (*Client, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore(sess)
	c, err := NewClient(s.URL, store)
	require.NoError(t, err)
	return c, store
}

func lastRequest(t *testing.T, s *apitest.Server) apitest.RecordedRequest {
	t.Helper()
	req, ok := s.LastRequest()
	require.True(t, ok, "server received no request")
	return req
}

func TestNewClient(t *testing.T) {
	store := session.NewMemoryStore(session.Session{})
	tests := []struct {
		name        string
		baseURL     string
		wantBase    string
		expectError bool
	}{
		{name: "plain", baseURL: "http://localhost:8000", wantBase: "http://localhost:8000"},
		{name: "trailing slash", baseURL: "https://api.example.com/", wantBase: "https://api.example.com"},
		{name: "with path", baseURL: "http://api.example.com/v1/", wantBase: "http://api.example.com/v1"},
		{name: "no scheme", baseURL: "api.example.com", expectError: true},
		{name: "ftp", baseURL: "ftp://api.example.com", expectError: true},
		{name: "empty", baseURL: "", expectError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.baseURL, store)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, c.BaseURL())
		})
	}

	_, err := NewClient("http://localhost:8000", nil)
	assert.Error(t, err)
}

func TestURL(t *testing.T) {
	c, err := NewClient("http://api.example.com", session.NewMemoryStore(session.Session{}))
	require.NoError(t, err)
	assert.Equal(t, "http://api.example.com/projects", c.URL("projects"))
	assert.Equal(t, "http://api.example.com/projects", c.URL("/projects"))
	assert.Equal(t, "http://api.example.com/projects?page=2", c.URL("/projects?page=2"))
}

func TestAuthorizationHeader(t *testing.T) {
	s := apitest.NewServer()
	defer s.Close()

	t.Run("token present", func(t *testing.T) {
		c, _ := newTestClient(t, s, session.Session{Token: "tok-123", DisplayName: "Ada"})
		_, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Endpoint: "/echo"})
		require.NoError(t, err)

		req := lastRequest(t, s)
		assert.Equal(t, []string{"Bearer tok-123"}, req.Header.Values("Authorization"))
	})

	t.Run("token absent", func(t *testing.T) {
		c, _ := newTestClient(t, s, session.Session{})
		raw, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Endpoint: "/echo"})
		require.NoError(t, err)
		assert.Equal(t, "GET", gjson.GetBytes(raw, "method").String())

		req := lastRequest(t, s)
		values, present := req.Header["Authorization"]
		assert.True(t, present, "Authorization header must be sent")
		assert.Equal(t, []string{""}, values)
	})

	t.Run("caller cannot override", func(t *testing.T) {
		c, _ := newTestClient(t, s, session.Session{Token: "tok-123"})
		_, err := c.Do(context.Background(), &Request{
			Method:   http.MethodGet,
			Endpoint: "/echo",
			Headers:  map[string]string{"authorization": "Basic Zm9vOmJhcg=="},
		})
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok-123", lastRequest(t, s).Header.Get("Authorization"))
	})
}

func TestContentTypeNegotiation(t *testing.T) {
	s := apitest.NewServer()
	defer s.Close()
	c, _ := newTestClient(t, s, session.Session{Token: "tok"})
	ctx := context.Background()

	t.Run("json body gets application/json", func(t *testing.T) {
		_, err := c.Do(ctx, &Request{
			Method:   http.MethodPost,
			Endpoint: "/echo",
			Body:     JSONBody(map[string]any{"title": "Launch", "tags": []string{"a"}}),
		})
		require.NoError(t, err)
		req := lastRequest(t, s)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"title":"Launch","tags":["a"]}`, string(req.Body))
	})

	t.Run("explicit content type is kept", func(t *testing.T) {
		_, err := c.Do(ctx, &Request{
			Method:   http.MethodPatch,
			Endpoint: "/echo",
			Headers:  map[string]string{"content-type": "application/merge-patch+json"},
			Body:     JSONBody(map[string]string{"title": "x"}),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"application/merge-patch+json"}, lastRequest(t, s).Header.Values("Content-Type"))
	})

	t.Run("form body never carries application/json", func(t *testing.T) {
		form := NewForm().AddField("caption", "hello").AddFile("file", "a.txt", "text/plain", strings.NewReader("data"))
		_, err := c.Do(ctx, &Request{
			Method:   http.MethodPost,
			Endpoint: "/echo",
			Headers:  map[string]string{"Content-Type": "application/json"},
			Body:     form,
		})
		require.NoError(t, err)

		req := lastRequest(t, s)
		values := req.Header.Values("Content-Type")
		require.Len(t, values, 1)
		assert.True(t, strings.HasPrefix(values[0], "multipart/form-data; boundary="), values[0])
		assert.Contains(t, string(req.Body), `name="caption"`)
		assert.Contains(t, string(req.Body), `name="file"; filename="a.txt"`)
	})
}

func TestFailureResponses(t *testing.T) {
	s := apitest.NewServer()
	defer s.Close()
	c, _ := newTestClient(t, s, session.Session{Token: "tok"})

	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantStatus int
	}{
		{name: "detail", status: 500, body: `{"detail":"Server exploded"}`, wantMsg: "Server exploded", wantStatus: 500},
		{name: "unparsable", status: 500, body: `<html>Bad Gateway</html>`, wantMsg: FallbackErrorMessage, wantStatus: 500},
		{name: "empty body", status: 503, body: ``, wantMsg: FallbackErrorMessage, wantStatus: 503},
		{name: "json without detail", status: 400, body: `{"error":"nope"}`, wantMsg: FallbackErrorMessage, wantStatus: 400},
		{name: "empty detail", status: 400, body: `{"detail":""}`, wantMsg: FallbackErrorMessage, wantStatus: 400},
		{name: "structured detail", status: 422, body: `{"detail":[{"msg":"field required"}]}`, wantMsg: `[{"msg":"field required"}]`, wantStatus: 422},
		{name: "forbidden", status: 403, body: `{"detail":"Forbidden"}`, wantMsg: "Forbidden", wantStatus: 403},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.Respond(http.MethodGet, "/projects", tt.status, tt.body)

			raw, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Endpoint: "projects"})
			assert.Nil(t, raw)
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.ErrorIs(t, err, ErrRequestFailed)
			assert.NotErrorIs(t, err, ErrUnauthenticated)
			assert.Equal(t, tt.wantStatus, StatusCode(err))
		})
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	s := apitest.NewServer()
	defer s.Close()
	c, store := newTestClient(t, s, session.Session{Token: "expired", DisplayName: "Ada"})

	_, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Endpoint: "/users/me"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.True(t, store.Get(context.Background()).IsZero())

	// A second rejection with the session already gone is harmless.
	_, err = c.Do(context.Background(), &Request{Method: http.MethodGet, Endpoint: "/users/me"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, []string{""}, lastRequest(t, s).Header.Values("Authorization"))
}

func TestSuccessResponses(t *testing.T) {
	s := apitest.NewServer()
	defer s.Close()
	c, _ := newTestClient(t, s, session.Session{Token: "tok"})
	ctx := context.Background()

	t.Run("json", func(t *testing.T) {
		s.Respond(http.MethodGet, "/projects", 200, `[{"id":1,"name":"Portfolio"}]`)
		raw, err := c.Do(ctx, &Request{Endpoint: "/projects"})
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":1,"name":"Portfolio"}]`, string(raw))

		type project struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		}
		projects, err := DoJSON[[]project](ctx, c, &Request{Endpoint: "/projects"})
		require.NoError(t, err)
		assert.Equal(t, []project{{ID: 1, Name: "Portfolio"}}, projects)
	})

	t.Run("no content", func(t *testing.T) {
		s.Respond(http.MethodDelete, "/projects/1", 204, ``)
		raw, err := c.Do(ctx, &Request{Method: "delete", Endpoint: "/projects/1"})
		require.NoError(t, err)
		assert.Equal(t, json.RawMessage("null"), raw)
	})

	t.Run("not json", func(t *testing.T) {
		s.Respond(http.MethodGet, "/health", 200, `ok`)
		_, err := c.Do(ctx, &Request{Endpoint: "/health"})
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("decode mismatch", func(t *testing.T) {
		s.Respond(http.MethodGet, "/count", 200, `"seven"`)
		_, err := DoJSON[int](ctx, c, &Request{Endpoint: "/count"})
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})
}

func TestTransportErrorsPassThrough(t *testing.T) {
	s := apitest.NewServer()
	c, store := newTestClient(t, s, session.Session{Token: "tok", DisplayName: "Ada"})
	s.Close()

	_, err := c.Do(context.Background(), &Request{Endpoint: "/projects"})
	require.Error(t, err)
	var urlErr *url.Error
	assert.True(t, errors.As(err, &urlErr), "expected *url.Error, got %T", err)
	assert.NotErrorIs(t, err, ErrRequestFailed)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, "tok", store.Get(context.Background()).Token)
	assert.Equal(t, "Unable to reach the server. Please try again.", UserMessage(err))
}

func TestContextCancellation(t *testing.T) {
	s := apitest.NewServer()
	defer s.Close()
	c, _ := newTestClient(t, s, session.Session{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Do(ctx, &Request{Endpoint: "/echo"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequestIdForwarded(t *testing.T) {
	s := apitest.NewServer()
	defer s.Close()
	c, _ := newTestClient(t, s, session.Session{})

	ctx := logtrace.WithRequestId(context.Background(), "req-42")
	_, err := c.Do(ctx, &Request{Endpoint: "/echo"})
	require.NoError(t, err)
	assert.Equal(t, "req-42", lastRequest(t, s).Header.Get(logtrace.RequestIDHeader))
}

func TestInvalidRequestsAreNotSent(t *testing.T) {
	s := apitest.NewServer()
	defer s.Close()
	c, _ := newTestClient(t, s, session.Session{})

	tests := []struct {
		name string
		req  *Request
	}{
		{name: "nil", req: nil},
		{name: "empty endpoint", req: &Request{Method: http.MethodGet}},
		{name: "absolute url", req: &Request{Endpoint: "http://evil.example.com/x"}},
		{name: "bad method", req: &Request{Method: "BREW", Endpoint: "/x"}},
		{name: "bad header", req: &Request{Endpoint: "/x", Headers: map[string]string{"Bad Header": "1"}}},
		{name: "unencodable body", req: &Request{Method: http.MethodPost, Endpoint: "/x", Body: JSONBody(make(chan int))}},
		{name: "nil form", req: &Request{Method: http.MethodPost, Endpoint: "/x", Body: (*Form)(nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			assert.NotPanics(t, func() { _, err = c.Do(context.Background(), tt.req) })
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	assert.Empty(t, s.Requests())
}

func TestSharedRequestConcurrentUse(t *testing.T) {
	s := apitest.NewServer()
	defer s.Close()
	c, _ := newTestClient(t, s, session.Session{Token: "tok"})

	req := &Request{Method: "get", Endpoint: "/echo", Headers: map[string]string{"X-Trace": "1"}}
	const n = 4
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Do(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, "get", req.Method, "Do must not modify the caller's request")
	assert.Len(t, s.Requests(), n)
	for _, r := range s.Requests() {
		assert.Equal(t, http.MethodGet, r.Method)
	}
}

func TestValidateDoesNotModify(t *testing.T) {
	req := &Request{Method: " post ", Endpoint: "/x"}
	require.NoError(t, req.Validate())
	assert.Equal(t, " post ", req.Method)
}

func TestNewRequest(t *testing.T) {
	req, err := NewRequest("", "/projects", WithHeader("X-Trace", "1"), WithJSON(map[string]int{"n": 1}))
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "1", req.Headers["X-Trace"])
	assert.False(t, req.IsForm())

	req, err = NewRequest("post", "media/upload", WithBody(NewForm()))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.True(t, req.IsForm())

	_, err = NewRequest("GET", "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
