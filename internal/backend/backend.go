// Package backend builds the configured KeyValueStore.
package backend

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"local-auth/internal/config"
	"local-auth/internal/repository"
	"local-auth/internal/repository/memory"
	"local-auth/internal/repository/sqlite"
	"local-auth/internal/storage"
)

// Open returns an initialized store for cfg.Storage.Backend and a func releasing it.
func Open(ctx context.Context, cfg config.Config, logger *logrus.Logger) (repository.KeyValueStore, func() error, error) {
	if logger == nil {
		logger = logrus.New()
	}
	noop := func() error { return nil }

	var (
		kv      repository.KeyValueStore
		closeFn = noop
	)
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Info("using in-memory storage")
		kv = memory.NewStore()
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("using sqlite database %s", cfg.Database.Path)
		kv = sqlite.NewKVRepository(db)
		closeFn = db.Close
	case config.BackendS3:
		s3Store, err := buildS3(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		kv = s3Store
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if err := kv.Init(ctx); err != nil {
		_ = closeFn()
		return nil, nil, fmt.Errorf("init %s storage: %w", cfg.Storage.Backend, err)
	}
	return kv, closeFn, nil
}

func buildS3(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*storage.S3Store, error) {
	if cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Store(client, storage.Options{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
	})
}
