package middleware

import (
	"net/http"
	"sync"

	"github.com/tansive/backoffice/internal/common/httpx"
)

// lockedWriter serialises writes from a handler goroutine against the timeout path.
// Once the timeout has claimed the response further handler writes are dropped.
type lockedWriter struct {
	mu       sync.Mutex
	rw       *httpx.ResponseWriter
	timedOut bool
}

func (l *lockedWriter) Header() http.Header {
	return l.rw.Header()
}

func (l *lockedWriter) WriteHeader(code int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timedOut {
		return
	}
	l.rw.WriteHeader(code)
}

func (l *lockedWriter) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	return l.rw.Write(b)
}

func (l *lockedWriter) claimTimeout() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rw.Written() {
		return false
	}
	l.timedOut = true
	return true
}
