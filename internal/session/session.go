// Package session holds the current client identity: an opaque bearer token and a
// display name. Stores persist the two values as independent keys, and reading from
// a store never fails; an unavailable backend simply reports an absent session.
package session

import (
	"context"
)

// Keys under which the session values are persisted.
const (
	KeyToken       = "token"
	KeyDisplayName = "display_name"
)

// Session is the current identity. The zero value is the absent session.
type Session struct {
	Token       string
	DisplayName string
}

// HasToken reports whether a bearer token is present.
func (s Session) HasToken() bool {
	return s.Token != ""
}

// IsZero reports whether neither value is present.
func (s Session) IsZero() bool {
	return s.Token == "" && s.DisplayName == ""
}

// Store reads and writes the session. Implementations must be safe for concurrent use
// and every Clear variant must be idempotent.
type Store interface {
	// Get returns the current session, or the zero Session if none is stored or the
	// backend cannot be read.
	Get(ctx context.Context) Session
	// Set stores both values, replacing what was there.
	Set(ctx context.Context, token, displayName string) error
	// Clear removes both values.
	Clear(ctx context.Context) error
	// ClearToken removes only the token.
	ClearToken(ctx context.Context) error
	// ClearDisplayName removes only the display name.
	ClearDisplayName(ctx context.Context) error
}
