// Package apitest runs an in-process backend that speaks the dashboard API's wire
// contract: bearer-token auth, {"detail": ...} errors, JSON endpoints and the
// multipart media upload. It records every request so tests can assert on exactly
// what a client sent, and lets tests script responses per route.
package apitest

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/tansive/backoffice/internal/common/httpx"
	"github.com/tansive/backoffice/internal/common/middleware"
)

// RecordedRequest is a request as the server received it.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type scripted struct {
	status int
	body   string
}

type user struct {
	password    string
	displayName string
}

type storedFile struct {
	contentType string
	data        []byte
}

// Server is a running fake backend. Close it when done.
type Server struct {
	*httptest.Server
	Router chi.Router

	mu       sync.Mutex
	requests []RecordedRequest
	scripts  map[string]scripted
	users    map[string]user
	tokens   map[string]string
	uploads  map[string]storedFile
}

// NewServer starts a fake backend on a loopback port.
func NewServer() *Server {
	s := NewBackend()
	s.Server = httptest.NewServer(s.Router)
	return s
}

// NewBackend builds the backend without a listener. The caller serves Router
// and must not call Close or URL.
func NewBackend() *Server {
	s := &Server{
		scripts: map[string]scripted{},
		users:   map[string]user{},
		tokens:  map[string]string{},
		uploads: map[string]storedFile{},
	}
	s.Router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.PanicHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.SetTimeout(10 * time.Second))
	r.Use(s.script)

	r.Post("/auth/login", httpx.WrapHttpRsp(s.login))
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/users/me", httpx.WrapHttpRsp(s.me))
		r.Post("/media/upload", httpx.WrapHttpRsp(s.upload))
	})
	r.Get("/uploads/{name}", s.serveUpload)
	r.HandleFunc("/echo", httpx.WrapHttpRsp(s.echo))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.ErrNotFound().Send(w)
	})
	return r
}

// record captures the request and restores its body for later handlers.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// script answers with a scripted response when one is registered for the route.
func (s *Server) script(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		sc, ok := s.scripts[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(sc.status)
		io.WriteString(w, sc.body)
	})
}

// Respond scripts the reply for method and path. The body is written verbatim, so
// it need not be valid JSON.
func (s *Server) Respond(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[method+" "+path] = scripted{status: status, body: body}
}

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request. ok is false if none arrived.
func (s *Server) LastRequest() (req RecordedRequest, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return RecordedRequest{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// Upload returns a stored upload by file name.
func (s *Server) Upload(name string) (data []byte, contentType string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.uploads[name]
	return f.data, f.contentType, ok
}
