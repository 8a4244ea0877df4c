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
	"fmt"

	"github.com/cardinalhq/hierarkey/settings"
)

// Options selects and configures a storage backend.
type Options struct {
	// Backend is one of "local", "s3" or "azure".
	Backend string

	Path    string
	BaseURL string

	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
	Prefix    string

	Container        string
	ConnectionString string
}

// Open builds the FileStorage described by opts.
func Open(ctx context.Context, opts Options) (settings.FileStorage, error) {
	switch opts.Backend {
	case "local", "":
		if opts.Path == "" {
			return nil, fmt.Errorf("blobstore: local storage needs a path")
		}
		return NewLocal(opts.Path, opts.BaseURL), nil
	case "s3":
		var s3opts []S3Option
		if opts.Region != "" {
			s3opts = append(s3opts, WithRegion(opts.Region))
		}
		if opts.Endpoint != "" {
			s3opts = append(s3opts, WithEndpoint(opts.Endpoint))
		}
		if opts.PathStyle {
			s3opts = append(s3opts, WithPathStyle())
		}
		if opts.BaseURL != "" {
			s3opts = append(s3opts, WithBaseURL(opts.BaseURL))
		}
		if opts.Prefix != "" {
			s3opts = append(s3opts, WithKeyPrefix(opts.Prefix))
		}
		return NewS3(ctx, opts.Bucket, s3opts...)
	case "azure":
		return NewAzure(AzureOptions{
			ConnectionString: opts.ConnectionString,
			Endpoint:         opts.Endpoint,
			Container:        opts.Container,
			BaseURL:          opts.BaseURL,
		})
	default:
		return nil, fmt.Errorf("blobstore: unsupported backend %q", opts.Backend)
	}
}
