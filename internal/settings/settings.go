// Package settings persists the small JSON settings blob: the OAuth client
// credentials path and the API key. The file is written atomically with
// owner-only permissions.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/khoward/photos-g-org/internal/filesystem"
)

const (
	settingsFile = "config.json"
	tokenFile    = "token.json"
)

type blob struct {
	CredentialsPath string `json:"credentials_path,omitempty"`
	APIKey          string `json:"api_key,omitempty"`
}

// Store reads and writes the settings blob under one directory.
type Store struct {
	dir string

	mu   sync.Mutex
	data blob
}

// NewStore opens the store rooted at dir, loading existing settings if
// present. A missing or unreadable file yields empty settings, not an error.
func NewStore(dir string) *Store {
	s := &Store{dir: dir}

	data, err := os.ReadFile(s.path())
	if err == nil {
		// Corrupt settings are treated as absent.
		_ = json.Unmarshal(data, &s.data)
	}
	return s
}

func (s *Store) path() string {
	return filepath.Join(s.dir, settingsFile)
}

// TokenPath returns the location of the saved OAuth token.
func (s *Store) TokenPath() string {
	return filepath.Join(s.dir, tokenFile)
}

// Dir returns the settings directory.
func (s *Store) Dir() string {
	return s.dir
}

// CredentialsPath returns the configured credentials path, or empty.
func (s *Store) CredentialsPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CredentialsPath
}

// CredentialsFilename returns only the filename of the configured
// credentials, for display. Full paths are never exposed to callers.
func (s *Store) CredentialsFilename() string {
	if p := s.CredentialsPath(); p != "" {
		return filepath.Base(p)
	}
	return ""
}

// Configured reports whether a credentials file is set and still exists.
func (s *Store) Configured() bool {
	p := s.CredentialsPath()
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

// APIKey returns the persisted API key, or empty.
func (s *Store) APIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.APIKey
}

// SetCredentialsPath validates and persists the credentials path.
func (s *Store) SetCredentialsPath(path string) error {
	expanded, err := ValidateCredentialsPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.CredentialsPath = expanded
	return s.save()
}

// SaveAPIKey persists a new API key. Satisfies keyring.Persister.
func (s *Store) SaveAPIKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.APIKey = key
	return s.save()
}

// save writes the blob; callers hold s.mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := filesystem.WriteFileAtomic(s.path(), data, 0o600, 0o700); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

// ValidateCredentialsPath checks that path points at a readable OAuth client
// credentials JSON file and returns the path with ~ expanded. Error messages
// are user-facing and never include the path itself.
func ValidateCredentialsPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}

	expanded := path
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			expanded = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	info, err := os.Stat(expanded)
	if err != nil {
		return "", fmt.Errorf("file not found")
	}
	if info.IsDir() {
		return "", fmt.Errorf("path must be a file")
	}
	if !strings.EqualFold(filepath.Ext(expanded), ".json") {
		return "", fmt.Errorf("file must be a JSON file")
	}

	data, err := os.ReadFile(expanded) //nolint:gosec // G304: user-supplied path, validated above
	if err != nil {
		return "", fmt.Errorf("file is not readable")
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("file is not valid JSON")
	}
	if _, installed := parsed["installed"]; !installed {
		if _, web := parsed["web"]; !web {
			return "", fmt.Errorf("file does not look like an OAuth client credentials JSON (missing 'installed' or 'web' key)")
		}
	}

	return expanded, nil
}
