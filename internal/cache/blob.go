package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/samber/lo"
)

// BlobCache keeps entries as blobs in one Azure storage container.
type BlobCache struct {
	client    *azblob.Client
	container string
}

var _ ListCache = (*BlobCache)(nil)

func NewBlobCache(accountName, accountKey, container string) (*BlobCache, error) {
	client, err := NewAzureClient(accountName, accountKey)
	if err != nil {
		return nil, err
	}
	return &BlobCache{client: client, container: container}, nil
}

// NewAzureClient authenticates with the account key when one is given and
// falls back to the ambient Azure identity (managed identity, az login) otherwise.
func NewAzureClient(accountName, accountKey string) (*azblob.Client, error) {
	if accountName == "" {
		return nil, fmt.Errorf("AZURE_STORAGE_ACCOUNT_NAME could not be found")
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)

	if accountKey != "" {
		cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client: %w", err)
		}
		return client, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("no AZURE_STORAGE_PRIMARY_ACCOUNT_KEY and no default azure credential: %w", err)
	}
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return client, nil
}

func (c *BlobCache) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	pager := c.client.NewListBlobsFlatPager(c.container, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get next page of blobs: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			keys = append(keys, strings.TrimPrefix(lo.FromPtr(item.Name), prefix))
		}
	}
	return keys, nil
}

func (c *BlobCache) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	stream, err := c.client.DownloadStream(ctx, c.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, ErrNotFound
		}
		slog.ErrorContext(ctx, "failed to download blob", "key", key, "error", err)
		return nil, err
	}
	return stream.Body, nil
}

func (c *BlobCache) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.ServiceClient().NewContainerClient(c.container).NewBlobClient(key).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *BlobCache) Put(ctx context.Context, key, value string, opts PutOptions) error {
	var uploadOpts azblob.UploadBufferOptions
	if opts.Condition == PutIfNoneMatch {
		uploadOpts.AccessConditions = &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: lo.ToPtr(azcore.ETagAny)},
		}
	}
	_, err := c.client.UploadBuffer(ctx, c.container, key, []byte(value), &uploadOpts)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to upload blob %s: %w", key, err)
	}
	return nil
}
