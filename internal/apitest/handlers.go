package apitest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/h2non/filetype"
	"github.com/tansive/backoffice/internal/common/httpx"
	"github.com/tansive/backoffice/internal/common/uuid"
)

// MaxUploadSize bounds the multipart body accepted by /media/upload.
const MaxUploadSize = 10 << 20

type ctxKey string

const displayNameKey = ctxKey("displayName")

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
}

// AddUser registers credentials accepted by POST /auth/login.
func (s *Server) AddUser(username, password, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = user{password: password, displayName: displayName}
}

// IssueToken registers a token directly, bypassing login.
func (s *Server) IssueToken(displayName string) string {
	token := uuid.New().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = displayName
	return token
}

// RevokeToken makes token fail authentication from now on.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func (s *Server) login(r *http.Request) (*httpx.Response, error) {
	var req loginRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	s.mu.Lock()
	u, ok := s.users[req.Username]
	s.mu.Unlock()
	if !ok || u.password != req.Password {
		return nil, httpx.ErrInvalidRequest("Incorrect username or password")
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: loginResponse{
			AccessToken: s.IssueToken(u.displayName),
			TokenType:   "bearer",
			Username:    u.displayName,
		},
	}, nil
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		name, known := s.tokens[token]
		s.mu.Unlock()
		if !ok || token == "" || !known {
			httpx.ErrUnauthorized().Send(w)
			return
		}
		ctx := context.WithValue(r.Context(), displayNameKey, name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) me(r *http.Request) (*httpx.Response, error) {
	name, _ := r.Context().Value(displayNameKey).(string)
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]string{"username": name},
	}, nil
}

func (s *Server) upload(r *http.Request) (*httpx.Response, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return nil, httpx.ErrInvalidRequest("Expected multipart/form-data")
	}
	r.Body = http.MaxBytesReader(nil, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		return nil, httpx.ErrInvalidRequest("Invalid multipart body")
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, httpx.ErrInvalidRequest("Missing file field")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, httpx.ErrInvalidRequest("Unable to read file")
	}
	if !filetype.IsImage(data) {
		return nil, httpx.ErrInvalidRequest("File must be an image")
	}
	kind, _ := filetype.Match(data)

	name := fmt.Sprintf("%s.%s", uuid.New().String(), kind.Extension)
	s.mu.Lock()
	s.uploads[name] = storedFile{contentType: kind.MIME.Value, data: data}
	s.mu.Unlock()

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]string{"url": "/uploads/" + name},
	}, nil
}

func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request) {
	data, contentType, ok := s.Upload(chi.URLParam(r, "name"))
	if !ok {
		httpx.ErrNotFound().Send(w)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type echoResponse struct {
	Method        string `json:"method"`
	Authorization string `json:"authorization"`
	ContentType   string `json:"content_type"`
	Body          string `json:"body"`
}

func (s *Server) echo(r *http.Request) (*httpx.Response, error) {
	body, _ := io.ReadAll(r.Body)
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: echoResponse{
			Method:        r.Method,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			Body:          string(body),
		},
	}, nil
}
