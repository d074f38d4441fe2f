// Package storage keeps rendered document artifacts in S3-compatible object
// storage or on the local filesystem.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/buildops/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Store writes an artifact under key and returns the URL it can be fetched from.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ErrEmptyKey is returned when an artifact key is blank
var ErrEmptyKey = errors.New("storage key is required")

// New returns an S3 store when a bucket is configured and a local store
// otherwise.
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Bucket == "" {
		logger.Info("Storing artifacts on local filesystem", zap.String("dir", cfg.LocalDir))
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	}

	s, err := NewS3Store(ctx, cfg, WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	logger.Info("Storing artifacts in object storage", zap.String("bucket", cfg.Bucket))
	return s, nil
}

func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
