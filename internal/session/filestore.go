package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DefaultSessionFile is the file name used under the user config directory.
const DefaultSessionFile = "session.yaml"

// GetDefaultSessionPath returns <UserConfigDir>/backoffice/session.yaml.
func GetDefaultSessionPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "backoffice", DefaultSessionFile), nil
}

var errMalformed = errors.New("malformed session file")

// FileStore persists the session as a flat YAML key/value file. Keys other than
// the session keys are preserved across writes. The file is written with mode 0600.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store backed by the file at path. An empty path yields a
// store that always reads as absent, and on which only Set fails.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Get reads the file on every call. A missing, unreadable or malformed file reads
// as the absent session.
func (f *FileStore) Get(ctx context.Context) Session {
	f.mu.Lock()
	defer f.mu.Unlock()

	kv, err := f.read()
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("path", f.path).Msg("session unavailable")
		return Session{}
	}
	return Session{
		Token:       kv[KeyToken],
		DisplayName: kv[KeyDisplayName],
	}
}

// Set writes both values. An empty value removes its key.
func (f *FileStore) Set(_ context.Context, token, displayName string) error {
	return f.update(func(kv map[string]string) {
		setOrDelete(kv, KeyToken, token)
		setOrDelete(kv, KeyDisplayName, displayName)
	})
}

// Clear removes both keys, and the file once nothing else is left in it.
func (f *FileStore) Clear(_ context.Context) error {
	return f.update(func(kv map[string]string) {
		delete(kv, KeyToken)
		delete(kv, KeyDisplayName)
	})
}

// ClearToken removes only the token key.
func (f *FileStore) ClearToken(_ context.Context) error {
	return f.update(func(kv map[string]string) {
		delete(kv, KeyToken)
	})
}

// ClearDisplayName removes only the display name key.
func (f *FileStore) ClearDisplayName(_ context.Context) error {
	return f.update(func(kv map[string]string) {
		delete(kv, KeyDisplayName)
	})
}

// update applies fn to the stored keys and writes the result back. An update that
// leaves no keys removes the file; removing a file that does not exist is not an error.
func (f *FileStore) update(fn func(kv map[string]string)) error {
	if f.path == "" {
		kv := map[string]string{}
		fn(kv)
		if len(kv) == 0 {
			return nil
		}
		return errors.New("session file path is not configured")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	kv, err := f.read()
	if err != nil && !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, errMalformed) {
		return fmt.Errorf("unable to read session file: %w", err)
	}
	if kv == nil {
		kv = map[string]string{}
	}
	fn(kv)

	if len(kv) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("unable to remove session file: %w", err)
		}
		return nil
	}
	return f.write(kv)
}

func (f *FileStore) read() (map[string]string, error) {
	if f.path == "" {
		return nil, fs.ErrNotExist
	}
	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	kv := map[string]string{}
	if err := yaml.Unmarshal(b, &kv); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return kv, nil
}

func (f *FileStore) write(kv map[string]string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("unable to create session directory: %w", err)
	}
	b, err := yaml.Marshal(kv)
	if err != nil {
		return fmt.Errorf("unable to encode session: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("unable to write session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write session file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to write session file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("unable to write session file: %w", err)
	}
	return nil
}

func setOrDelete(kv map[string]string, key, value string) {
	if value == "" {
		delete(kv, key)
		return
	}
	kv[key] = value
}
