package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	KeyPassword   = "warehouse_password"
	KeyStageToken = "stage_token"

	fileMode = 0600
)

var (
	// ErrSecretNotFound is returned when neither the keychain nor the file holds the key.
	ErrSecretNotFound = errors.New("secret not found")

	keyFileRegEx = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)
)

// Store keeps secrets in the OS keychain, falling back to files in dir when
// no keychain is available.
type Store struct {
	service string
	dir     string
}

func NewStore(service, dir string) *Store {
	return &Store{service: service, dir: dir}
}

// Set saves value under key.
func (s *Store) Set(key, value string) error {
	if key == "" {
		return errors.New("key is required")
	}
	if err := keyring.Set(s.service, key, value); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return s.setFile(key, value)
	}

	// drop any file copy left from an earlier fallback
	os.Remove(s.path(key))
	return nil
}

// Get returns the value saved under key.
func (s *Store) Get(key string) (string, error) {
	if key == "" {
		return "", errors.New("key is required")
	}

	v, err := keyring.Get(s.service, key)
	if err == nil && v != "" {
		return v, nil
	}

	v, err = s.getFile(key)
	if err != nil {
		return "", err
	}

	if migrateErr := keyring.Set(s.service, key, v); migrateErr == nil {
		slog.Info("migrated secret from file to OS keychain", "key", key)
		os.Remove(s.path(key))
	}

	return v, nil
}

// Delete removes key from both the keychain and the file fallback.
func (s *Store) Delete(key string) error {
	err := keyring.Delete(s.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		slog.Debug("keychain delete failed", "key", key, "error", err)
	}
	if ferr := os.Remove(s.path(key)); ferr != nil && !errors.Is(ferr, os.ErrNotExist) {
		return fmt.Errorf("deleting secret file: %w", ferr)
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, keyFileRegEx.ReplaceAllString(key, "_"))
}

func (s *Store) setFile(key, value string) error {
	if s.dir == "" {
		return errors.New("no secret dir configured")
	}
	return os.WriteFile(s.path(key), []byte(value), fileMode)
}

func (s *Store) getFile(key string) (string, error) {
	if s.dir == "" {
		return "", ErrSecretNotFound
	}
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("reading secret file for %s: %w", key, err)
	}
	return strings.TrimSpace(string(b)), nil
}
