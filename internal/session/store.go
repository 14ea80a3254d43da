// Package session persists the logged-in user between runs.
//
// The user is kept as one serialized JSON object under the fixed key "user".
// Views receive a Store explicitly and go through Load, Save, and Clear.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"synoptic/internal/config"
)

// StorageKey is the key the user record is stored under.
const StorageKey = "user"

// ErrNoSession is returned by Load when no usable user is stored. Absent and
// malformed values are treated the same.
var ErrNoSession = errors.New("no active session")

// User is the authenticated clinician.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// DisplayName is the name shown in greetings.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// Store is a session backend.
type Store interface {
	Load() (User, error)
	Save(User) error
	Clear() error
	Close() error
}

// Open returns the backend selected by cfg.
func Open(cfg config.SessionConfig) (Store, error) {
	switch cfg.Backend {
	case "", config.SessionBackendFile:
		return NewFileStore(cfg.Path), nil
	case config.SessionBackendSQLite:
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

// HasSession reports whether s holds a usable user.
func HasSession(s Store) bool {
	_, err := s.Load()
	return err == nil
}

func encodeUser(u User) (string, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}
	return string(data), nil
}

func decodeUser(value string) (User, error) {
	if strings.TrimSpace(value) == "" {
		return User{}, ErrNoSession
	}
	var u User
	if err := json.Unmarshal([]byte(value), &u); err != nil {
		return User{}, ErrNoSession
	}
	if u.ID == "" {
		return User{}, ErrNoSession
	}
	return u, nil
}
