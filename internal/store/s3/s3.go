// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package s3 keeps the graph files as objects in an S3-compatible bucket
// (AWS S3 or MinIO), one object per file under a key prefix.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sigil-dev/lyph/internal/codec"
	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/store"
)

const (
	name          = "s3"
	defaultRegion = "us-east-1"
)

var (
	_ store.Backend        = (*Store)(nil)
	_ store.ChangeDetector = (*Store)(nil)
)

// Store is a store.Backend over an S3 bucket.
type Store struct {
	client *s3.Client
	bucket string
	prefix string

	mu    sync.Mutex
	etags map[string]string // object key -> ETag seen at the last load or save
}

func init() {
	store.RegisterBackend(name, func(ctx context.Context, cfg *store.StorageConfig) (store.Backend, error) {
		return New(ctx, cfg.S3)
	})
}

// New creates a store for cfg.Bucket. Static credentials are used when both
// keys are set; otherwise the default AWS credential chain applies. optFns
// are applied to the S3 client options after cfg.
func New(ctx context.Context, cfg store.S3Config, optFns ...func(*s3.Options)) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, store.InvalidConfig(name, "s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, store.ReadFailure(fmt.Errorf("load aws config: %w", err), name)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, fn := range optFns {
			fn(o)
		}
	})

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		etags:  map[string]string{},
	}, nil
}

func (s *Store) Name() string { return name }

// Close is a no-op; the S3 client holds no resources that need releasing.
func (s *Store) Close() error { return nil }

func (s *Store) key(file string) string {
	if s.prefix == "" {
		return file
	}
	return path.Join(s.prefix, file)
}

// Load fetches every graph file. Missing objects count as empty files.
func (s *Store) Load(ctx context.Context) (*graph.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := codec.Files{}
	etags := map[string]string{}
	for _, file := range codec.FileNames {
		key := s.key(file)
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, store.ReadFailure(fmt.Errorf("get %s: %w", key, err), name)
		}
		data, err := io.ReadAll(out.Body)
		_ = out.Body.Close()
		if err != nil {
			return nil, store.ReadFailure(fmt.Errorf("read %s: %w", key, err), name)
		}
		files[file] = data
		etags[key] = aws.ToString(out.ETag)
	}

	snap, err := codec.Decode(files)
	if err != nil {
		return nil, store.ReadFailure(err, name)
	}
	s.etags = etags
	return snap, nil
}

// Save uploads every graph file. S3 has no multi-object transaction, so a
// failure part way leaves earlier objects replaced.
func (s *Store) Save(ctx context.Context, snap *graph.Snapshot) error {
	files, err := codec.Encode(snap)
	if err != nil {
		return store.WriteFailure(err, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, file := range codec.FileNames {
		key := s.key(file)
		out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      &s.bucket,
			Key:         &key,
			Body:        bytes.NewReader(files[file]),
			ContentType: aws.String(contentType(file)),
		})
		if err != nil {
			return store.WriteFailure(fmt.Errorf("put %s: %w", key, err), name)
		}
		s.etags[key] = aws.ToString(out.ETag)
	}
	return nil
}

// Changed reports whether any object's ETag differs from the one seen at
// the last Load or Save.
func (s *Store) Changed(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, file := range codec.FileNames {
		key := s.key(file)
		out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
		var etag string
		switch {
		case err == nil:
			etag = aws.ToString(out.ETag)
		case isNotFound(err):
		default:
			return false, store.ReadFailure(fmt.Errorf("head %s: %w", key, err), name)
		}
		if etag != s.etags[key] {
			return true, nil
		}
	}
	return false, nil
}

func contentType(file string) string {
	if file == codec.TemplatesFile {
		return "application/n-triples"
	}
	return "text/plain; charset=utf-8"
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
