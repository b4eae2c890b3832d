package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSStore keeps objects as files below a root directory
type FSStore struct {
	root string
}

var _ Store = (*FSStore)(nil)

// NewFSStore creates the root directory if needed
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("filesystem blob store needs a directory")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &FSStore{root: root}, nil
}

// pathFor rejects keys escaping the root
func (s *FSStore) pathFor(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob key: %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *FSStore) Put(_ context.Context, key string, data []byte, _ string) error {
	p, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("create blob directory: %w", err)
	}
	// Write then rename so readers never see a partial file
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("commit blob: %w", err)
	}
	return nil
}

func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	p, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
