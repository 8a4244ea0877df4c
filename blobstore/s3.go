// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/cardinalhq/hierarkey/settings"
)

// S3 stores files as objects in one bucket.
type S3 struct {
	client *s3.Client
	bucket string
	region string
	cfg    s3Config
}

var _ settings.FileStorage = (*S3)(nil)

type s3Config struct {
	region       string
	endpoint     string
	baseURL      string
	prefix       string
	pathStyle    bool
	applyConfigs []func(*aws.Config)
	applyS3s     []func(*s3.Options)
}

// S3Option is a functional option for NewS3.
type S3Option func(*s3Config)

// WithRegion overrides the AWS region.
func WithRegion(region string) S3Option {
	return func(c *s3Config) {
		c.region = region
	}
}

// WithEndpoint forces a custom S3 endpoint (eg MinIO, Ceph).
func WithEndpoint(endpoint string) S3Option {
	return func(c *s3Config) {
		c.endpoint = endpoint
		c.applyS3s = append(c.applyS3s, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
}

// WithPathStyle uses path-style addressing instead of virtual-host.
func WithPathStyle() S3Option {
	return func(c *s3Config) {
		c.pathStyle = true
		c.applyS3s = append(c.applyS3s, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
}

// WithStaticCredentials skips the default credential chain.
func WithStaticCredentials(accessKey, secretKey string) S3Option {
	return func(c *s3Config) {
		c.applyConfigs = append(c.applyConfigs, func(cfg *aws.Config) {
			cfg.Credentials = credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
		})
	}
}

// WithBaseURL sets the public address files are served from, such as a CDN.
func WithBaseURL(baseURL string) S3Option {
	return func(c *s3Config) {
		c.baseURL = baseURL
	}
}

// WithKeyPrefix stores every object below prefix.
func WithKeyPrefix(prefix string) S3Option {
	return func(c *s3Config) {
		c.prefix = strings.Trim(prefix, "/")
	}
}

// NewS3 loads the default AWS configuration and returns storage for bucket.
func NewS3(ctx context.Context, bucket string, opts ...S3Option) (*S3, error) {
	if bucket == "" {
		return nil, errors.New("blobstore: bucket is required")
	}
	var sc s3Config
	for _, o := range opts {
		o(&sc)
	}

	var loadOpts []func(*config.LoadOptions) error
	if sc.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(sc.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	for _, apply := range sc.applyConfigs {
		apply(&cfg)
	}

	return &S3{
		client: s3.NewFromConfig(cfg, sc.applyS3s...),
		bucket: bucket,
		region: cfg.Region,
		cfg:    sc,
	}, nil
}

func (s *S3) key(name string) string {
	if s.cfg.prefix == "" {
		return name
	}
	return s.cfg.prefix + "/" + name
}

func (s *S3) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if s3ErrorIs404(err) {
			return nil, fmt.Errorf("%s: %w", name, settings.ErrFileNotFound)
		}
		return nil, fmt.Errorf("get %s/%s: %w", s.bucket, s.key(name), err)
	}
	return out.Body, nil
}

func (s *S3) URL(name string) string {
	key := s.key(name)
	switch {
	case s.cfg.baseURL != "":
		return joinURL(s.cfg.baseURL, name)
	case s.cfg.endpoint != "" && s.cfg.pathStyle:
		return joinURL(s.cfg.endpoint, s.bucket+"/"+key)
	case s.cfg.endpoint != "":
		u, err := url.Parse(s.cfg.endpoint)
		if err != nil {
			return joinURL(s.cfg.endpoint, s.bucket+"/"+key)
		}
		u.Host = s.bucket + "." + u.Host
		return joinURL(u.String(), key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	}
}

// Save uploads r. Names carry a nonce, so existing objects are not checked.
func (s *S3) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	uploader := manager.NewUploader(s.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   r,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", s.bucket, s.key(name), err)
	}
	return name, nil
}

func (s *S3) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil && !s3ErrorIs404(err) {
		return fmt.Errorf("delete %s/%s: %w", s.bucket, s.key(name), err)
	}
	return nil
}

func s3ErrorIs404(err error) bool {
	var noKeyErr *types.NoSuchKey
	if errors.As(err, &noKeyErr) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound"
}

func joinURL(base, name string) string {
	u, err := url.JoinPath(base, name)
	if err != nil {
		return strings.TrimSuffix(base, "/") + "/" + name
	}
	return u
}
