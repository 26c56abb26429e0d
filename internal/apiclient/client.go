// Package apiclient is the single path by which callers talk to the backend API.
// It attaches the session's bearer token, negotiates JSON or multipart encoding,
// and turns non-success responses into apperrors values. A 401 clears the session
// and is reported as ErrUnauthenticated; deciding what to do next (for example
// sending the user to a login page) is left to the caller.
//
// Transport errors are returned exactly as net/http produced them. Nothing is
// retried and no timeout is imposed here; use the context to bound a call.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tansive/backoffice/internal/common/logtrace"
	"github.com/tansive/backoffice/internal/session"
	"github.com/tidwall/gjson"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"
)

// Doer issues a request and returns the JSON response body.
type Doer interface {
	Do(ctx context.Context, req *Request) (json.RawMessage, error)
}

// Client talks to one API base URL on behalf of one session store.
type Client struct {
	baseURL    string
	store      session.Store
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ Doer = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient returns a client for baseURL backed by store. baseURL must be an
// absolute http(s) URL; a trailing slash is dropped.
func NewClient(baseURL string, store session.Store, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: must be an absolute http(s) URL", baseURL)
	}
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	c := &Client{
		baseURL:    baseURL,
		store:      store,
		httpClient: &http.Client{},
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the store the client reads its credential from.
func (c *Client) Session() session.Store {
	return c.store
}

// URL returns the absolute URL for endpoint.
func (c *Client) URL(endpoint string) string {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.baseURL + endpoint
}

// Do sends r and returns the response body. A 2xx response with an empty body
// yields JSON null. r is never modified, so one Request may be shared by
// concurrent calls.
func (c *Client) Do(ctx context.Context, r *Request) (json.RawMessage, error) {
	n, err := r.normalize()
	if err != nil {
		return nil, err
	}
	req := &n

	var (
		body        io.Reader = http.NoBody
		contentType string
	)
	if req.Body != nil {
		body, contentType, err = req.Body.encode()
		if err != nil {
			return nil, ErrInvalidRequest.New(fmt.Sprintf("unable to encode request body: %v", err))
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.URL(req.Endpoint), body)
	if err != nil {
		return nil, ErrInvalidRequest.New(fmt.Sprintf("failed to create request: %v", err))
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	// Multipart bodies always carry their own boundary, whatever the caller set.
	if req.IsForm() {
		httpReq.Header.Set(headerContentType, contentType)
	} else if httpReq.Header.Get(headerContentType) == "" {
		httpReq.Header.Set(headerContentType, contentTypeJSON)
	}

	sess := c.store.Get(ctx)
	if sess.HasToken() {
		httpReq.Header.Set(headerAuthorization, "Bearer "+sess.Token)
	} else {
		httpReq.Header.Set(headerAuthorization, "")
	}
	if id := logtrace.RequestIdFromContext(ctx); id != "" {
		httpReq.Header.Set(logtrace.RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", req.Method).Str("endpoint", req.Endpoint).Msg("request failed")
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("endpoint", req.Endpoint).
		Int("status", resp.StatusCode).
		Bool("authenticated", sess.HasToken()).
		Dur("duration", time.Since(start)).
		Msg("api request")

	if resp.StatusCode == http.StatusUnauthorized {
		if err := c.store.Clear(ctx); err != nil {
			c.logger.Error().Err(err).Msg("unable to clear session")
		}
		c.logger.Warn().Str("endpoint", req.Endpoint).Msg("session rejected by server, cleared")
		return nil, ErrUnauthenticated
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ErrRequestFailed.New(errorDetail(respBody)).SetStatusCode(resp.StatusCode)
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(respBody) {
		return nil, ErrInvalidResponse.New("response is not valid JSON").SetStatusCode(resp.StatusCode)
	}
	return json.RawMessage(respBody), nil
}

// errorDetail extracts {"detail": ...} from an error body, or the fallback message.
// A non-string detail is rendered as its raw JSON.
func errorDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return FallbackErrorMessage
	}
	detail := gjson.GetBytes(body, "detail")
	if !detail.Exists() || detail.Type == gjson.Null {
		return FallbackErrorMessage
	}
	msg := strings.TrimSpace(detail.String())
	if msg == "" {
		return FallbackErrorMessage
	}
	return msg
}

// DoJSON sends req through d and decodes the response into T.
func DoJSON[T any](ctx context.Context, d Doer, req *Request) (T, error) {
	var out T
	raw, err := d.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, ErrInvalidResponse.New(fmt.Sprintf("unable to decode response: %v", err))
	}
	return out, nil
}
