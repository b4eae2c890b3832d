// Package blob stores the original bytes of uploaded résumés.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"careercoach/internal/config"
)

// ErrNotFound is returned by Get for unknown keys
var ErrNotFound = errors.New("blob not found")

// Store keeps opaque objects by key
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// ResumeKey returns the key of a résumé upload
func ResumeKey(prefix, userID, fingerprint string) string {
	if prefix == "" {
		prefix = "resumes"
	}
	return path.Join(strings.Trim(prefix, "/"), userID, fingerprint)
}

// New returns the store selected by cfg.Backend, or nil for "none"
func New(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "filesystem":
		s, err := NewFSStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "s3":
		s, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported blob backend: %s", cfg.Backend)
	}
}
