// Package authboundary sits between callers and the API client and turns an
// unauthenticated outcome into navigation to the login page. The client itself
// only clears the session; it knows nothing about navigation.
package authboundary

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/tansive/backoffice/internal/apiclient"
)

// DefaultLoginPath is where users are sent when their session is rejected.
const DefaultLoginPath = "/login"

// Navigator moves the user to path. Navigating to the page the user is already on
// must be harmless.
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, path string)

func (f NavigatorFunc) Navigate(ctx context.Context, path string) {
	f(ctx, path)
}

// Boundary wraps a client and its uploader.
type Boundary struct {
	client    *apiclient.Client
	uploader  *apiclient.Uploader
	navigator Navigator
	loginPath string
}

var _ apiclient.Doer = (*Boundary)(nil)

// Option configures a Boundary.
type Option func(*Boundary)

// WithLoginPath overrides DefaultLoginPath.
func WithLoginPath(path string) Option {
	return func(b *Boundary) {
		if path != "" {
			b.loginPath = path
		}
	}
}

// New returns a Boundary around client. A nil navigator disables navigation.
func New(client *apiclient.Client, navigator Navigator, opts ...Option) *Boundary {
	b := &Boundary{
		client:    client,
		uploader:  apiclient.NewUploader(client),
		navigator: navigator,
		loginPath: DefaultLoginPath,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Client returns the wrapped client.
func (b *Boundary) Client() *apiclient.Client {
	return b.client
}

// Uploader returns the uploader used by UploadImage, exposing its in-progress state.
func (b *Boundary) Uploader() *apiclient.Uploader {
	return b.uploader
}

// LoginPath returns the navigation target for rejected sessions.
func (b *Boundary) LoginPath() string {
	return b.loginPath
}

// Do forwards to the client and navigates to the login path on ErrUnauthenticated.
func (b *Boundary) Do(ctx context.Context, req *apiclient.Request) (json.RawMessage, error) {
	raw, err := b.client.Do(ctx, req)
	return raw, b.guard(ctx, err)
}

// UploadImage forwards to the uploader with the same unauthenticated handling.
func (b *Boundary) UploadImage(ctx context.Context, file *apiclient.File) (string, error) {
	u, err := b.uploader.UploadImage(ctx, file)
	return u, b.guard(ctx, err)
}

func (b *Boundary) guard(ctx context.Context, err error) error {
	if err != nil && errors.Is(err, apiclient.ErrUnauthenticated) && b.navigator != nil {
		b.navigator.Navigate(ctx, b.loginPath)
	}
	return err
}

// RecordingNavigator remembers every navigation. It is safe for concurrent use.
type RecordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (r *RecordingNavigator) Navigate(_ context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

// Paths returns the navigations so far, oldest first.
func (r *RecordingNavigator) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}
