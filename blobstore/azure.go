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
	"mime"
	"path"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/cardinalhq/hierarkey/settings"
)

// Azure stores files as blobs in one container.
type Azure struct {
	client    *azblob.Client
	container string
	baseURL   string
}

var _ settings.FileStorage = (*Azure)(nil)

// AzureOptions selects how NewAzure authenticates. A connection string
// wins; otherwise Endpoint is used with the default Azure credential chain.
type AzureOptions struct {
	ConnectionString string
	Endpoint         string
	Container        string
	BaseURL          string
}

func NewAzure(opts AzureOptions) (*Azure, error) {
	if opts.Container == "" {
		return nil, errors.New("blobstore: container is required")
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case opts.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(opts.ConnectionString, nil)
	case opts.Endpoint != "":
		var cred *azidentity.DefaultAzureCredential
		cred, err = azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("loading Azure credentials: %w", err)
		}
		client, err = azblob.NewClient(opts.Endpoint, cred, nil)
	default:
		return nil, errors.New("blobstore: connection string or endpoint is required")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return &Azure{client: client, container: opts.Container, baseURL: opts.BaseURL}, nil
}

func (a *Azure) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := a.client.DownloadStream(ctx, a.container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%s: %w", name, settings.ErrFileNotFound)
		}
		return nil, fmt.Errorf("download blob %s/%s: %w", a.container, name, err)
	}
	return resp.Body, nil
}

func (a *Azure) URL(name string) string {
	if a.baseURL != "" {
		return joinURL(a.baseURL, name)
	}
	return joinURL(a.client.URL(), a.container+"/"+name)
}

func (a *Azure) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	opts := &azblob.UploadStreamOptions{
		Metadata: map[string]*string{
			"writer": to.Ptr("hierarkey"),
		},
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: to.Ptr(ct)}
	}
	if _, err := a.client.UploadStream(ctx, a.container, name, r, opts); err != nil {
		return "", fmt.Errorf("failed to upload blob %s/%s: %w", a.container, name, err)
	}
	return name, nil
}

func (a *Azure) Delete(ctx context.Context, name string) error {
	_, err := a.client.DeleteBlob(ctx, a.container, name, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("failed to delete blob %s/%s: %w", a.container, name, err)
	}
	return nil
}
