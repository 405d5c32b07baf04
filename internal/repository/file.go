package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileTokenRepository stores the token in a single file readable only by
// the owner.
type FileTokenRepository struct {
	path string
}

// NewFileTokenRepository returns a repository backed by path. The parent
// directory is created on the first Save.
func NewFileTokenRepository(path string) (*FileTokenRepository, error) {
	if path == "" {
		return nil, fmt.Errorf("token file path is required")
	}
	return &FileTokenRepository{path: filepath.Clean(path)}, nil
}

// Path returns the backing file.
func (r *FileTokenRepository) Path() string { return r.path }

func (r *FileTokenRepository) Load(context.Context) (string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

// Save writes through a temporary file and renames it into place so a crash
// never leaves a half-written token behind.
func (r *FileTokenRepository) Save(_ context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("save token: empty token")
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".token-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("install token file: %w", err)
	}
	return nil
}

func (r *FileTokenRepository) Clear(context.Context) error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
