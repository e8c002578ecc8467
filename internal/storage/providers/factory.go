// Package providers builds the storage backend `lisfy serve` exposes.
package providers

import (
	"context"
	"fmt"

	"github.com/jmmpc/lisfy/internal/config"
	"github.com/jmmpc/lisfy/internal/pathutil"
	"github.com/jmmpc/lisfy/internal/storage"
	"github.com/jmmpc/lisfy/internal/storage/providers/azure"
	"github.com/jmmpc/lisfy/internal/storage/providers/local"
	"github.com/jmmpc/lisfy/internal/storage/providers/s3"
)

// New creates the backend selected by cfg.Storage.
func New(ctx context.Context, cfg config.ServerConfig) (storage.Backend, error) {
	switch cfg.Storage {
	case "", config.StorageLocal:
		root, err := pathutil.ResolveAbsolutePath(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root %s: %w", cfg.Root, err)
		}
		return local.New(root)

	case config.StorageS3:
		opts := s3.Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			Prefix:          cfg.S3.Prefix,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		}
		client, err := s3.NewClient(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s3.New(client, opts.Bucket, opts.Prefix)

	case config.StorageAzure:
		return azure.New(azure.Options{
			Container:        cfg.Azure.Container,
			SASURL:           cfg.Azure.SASURL,
			ConnectionString: cfg.Azure.ConnectionString,
		})

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage)
	}
}
