// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package attachment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/switchAIChat/internal/config"
)

// MinioStore keeps attachments in an S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the bucket described by cfg, creating it when missing.
func NewMinioStore(ctx context.Context, cfg config.MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		log.WithField("bucket", cfg.Bucket).Info("created attachments bucket")
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// Read downloads the object for ref.
func (s *MinioStore) Read(ctx context.Context, ref string) ([]byte, error) {
	key, err := Key(ref)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapErr(err)
	}
	defer func() {
		if errClose := obj.Close(); errClose != nil {
			log.Errorf("attachment: close object error: %v", errClose)
		}
	}()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return data, nil
}

// Save uploads data under a fresh key.
func (s *MinioStore) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := newKey(name)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload attachment: %w", err)
	}
	return key, nil
}

func (s *MinioStore) mapErr(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return fmt.Errorf("failed to read attachment: %w", err)
}

var _ Store = (*MinioStore)(nil)
