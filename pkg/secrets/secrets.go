// Package secrets reads deployment-provided secret files.
//
// The file is a flat TOML table of string keys, the same layout hosted
// notebook and app platforms mount for their secrets:
//
//	GEMINI_API_KEY = "..."
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Store is a read-only view over a parsed secrets file.
type Store struct {
	values map[string]any
}

// Load parses the TOML file at path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	if path == "" {
		return &Store{values: map[string]any{}}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Store{values: map[string]any{}}, nil
		}
		return nil, fmt.Errorf("read secrets file: %w", err)
	}
	return Parse(b)
}

// Parse decodes TOML bytes into a Store.
func Parse(b []byte) (*Store, error) {
	values := map[string]any{}
	if err := toml.Unmarshal(b, &values); err != nil {
		return nil, fmt.Errorf("decode secrets file: %w", err)
	}
	return &Store{values: values}, nil
}

// Get returns the trimmed string value for key and whether it was present and non-empty.
func (s *Store) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.values[key].(string)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Resolve returns the first non-empty value among the environment variable
// key and the same key in the store. load is only called when the
// environment variable is unset or blank.
func Resolve(key string, load func() (*Store, error)) (string, bool, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v, true, nil
	}
	if load == nil {
		return "", false, nil
	}
	store, err := load()
	if err != nil {
		return "", false, err
	}
	v, ok := store.Get(key)
	return v, ok, nil
}
