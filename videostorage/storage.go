// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package videostorage removes recording objects from S3 compatible storage.
package videostorage

import (
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/common/fpath"
)

var (
	// Error is the error class of this package.
	Error = errs.Class("videostorage")

	mon = monkit.Package()
)

// Config contains the object storage connection settings.
type Config struct {
	Endpoint      string `help:"s3 compatible endpoint (host:port)" default:"localhost:9000"`
	AccessKey     string `help:"s3 access key" default:""`
	SecretKey     string `help:"s3 secret key" default:""`
	Region        string `help:"s3 region, empty looks it up per bucket" default:"us-east-1"`
	Secure        bool   `help:"use https" default:"false" devDefault:"false" releaseDefault:"true"`
	Bucket        string `help:"bucket holding recordings stored with a bare key" default:"recordings"`
	PreviewBucket string `help:"bucket holding recording previews" default:"previews"`
}

// Deleter removes stored objects.
type Deleter interface {
	Delete(ctx context.Context, location string) error
}

// Storage removes objects from a single S3 endpoint.
type Storage struct {
	log    *zap.Logger
	client *minio.Client
	bucket string
}

// New returns a Storage resolving bare keys in bucket.
func New(log *zap.Logger, config Config, bucket string) (*Storage, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.Secure,
		Region: config.Region,
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return &Storage{
		log:    log,
		client: client,
		bucket: bucket,
	}, nil
}

// Open returns the recording and preview storages described by config.
func Open(log *zap.Logger, config Config) (recordings, previews *Storage, err error) {
	recordings, err = New(log.Named("recordings"), config, config.Bucket)
	if err != nil {
		return nil, nil, err
	}
	previews, err = New(log.Named("previews"), config, config.PreviewBucket)
	if err != nil {
		return nil, nil, err
	}
	return recordings, previews, nil
}

// Delete removes the object at location. Location is either
// s3://bucket/key or a key in the default bucket.
func (storage *Storage) Delete(ctx context.Context, location string) (err error) {
	defer mon.Task()(&ctx)(&err)

	bucket, key, err := storage.resolve(location)
	if err != nil {
		return err
	}

	storage.log.Debug("deleting object", zap.String("bucket", bucket), zap.String("key", key))
	if err := storage.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return Error.New("delete %q: %v", location, err)
	}
	return nil
}

func (storage *Storage) resolve(location string) (bucket, key string, err error) {
	if location == "" {
		return "", "", Error.New("empty location")
	}

	path, err := fpath.New(location)
	if err != nil {
		return "", "", Error.Wrap(err)
	}
	if path.IsLocal() {
		return storage.bucket, location, nil
	}
	if path.Bucket() == "" || path.Path() == "" {
		return "", "", Error.New("invalid location %q", location)
	}
	return path.Bucket(), path.Path(), nil
}
