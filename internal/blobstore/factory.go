package blobstore

import (
	"context"
	"fmt"

	"pm-go/internal/config"
	"pm-go/internal/database"
	"pm-go/internal/pm"
)

// NewBlobStoreFromConfig creates a BlobStore based on the store config type.
// db is only used for type "sqlite".
func NewBlobStoreFromConfig(ctx context.Context, cfg config.StoreConfig, db *database.SQLiteDatabase) (pm.BlobStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryBlobStore(), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem store requires fs_root to be set")
		}
		return NewFileSystemBlobStore(cfg.FSRoot)
	case "sqlite":
		if db == nil {
			return nil, fmt.Errorf("sqlite store requires a database")
		}
		return db.Blobs(), nil
	case "s3":
		return NewS3BlobStoreFromOptions(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
