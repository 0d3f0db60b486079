package auth

import (
	"encoding/json"
	"fmt"
	"os"
)

// Store persists the token pair on disk with owner-only permissions.
type Store struct {
	path string
}

// NewStore creates a Store writing to path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the stored tokens. Returns ErrNotLoggedIn if the file does
// not exist.
func (s *Store) Load() (Tokens, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Tokens{}, ErrNotLoggedIn
		}
		return Tokens{}, fmt.Errorf("read token file: %w", err)
	}
	var tok Tokens
	if err := json.Unmarshal(b, &tok); err != nil {
		return Tokens{}, fmt.Errorf("parse token file: %w", err)
	}
	if tok.AccessToken == "" {
		return Tokens{}, ErrNotLoggedIn
	}
	return tok, nil
}

// Save writes the tokens to disk, readable only by the owner.
func (s *Store) Save(tok Tokens) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// Clear removes the stored tokens.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
