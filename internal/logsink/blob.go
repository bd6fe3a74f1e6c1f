package logsink

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"dealchef/internal/cache"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/appendblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// BlobAppender appends log batches to append blobs in one container,
// creating each blob the first time it is written.
type BlobAppender struct {
	container *container.Client

	mu      sync.Mutex
	created map[string]bool
}

var _ Appender = (*BlobAppender)(nil)

func NewBlobAppender(accountName, accountKey, containerName string) (*BlobAppender, error) {
	client, err := cache.NewAzureClient(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("log sink: %w", err)
	}
	return &BlobAppender{
		container: client.ServiceClient().NewContainerClient(containerName),
		created:   map[string]bool{},
	}, nil
}

func (a *BlobAppender) Append(ctx context.Context, name string, data []byte) error {
	client := a.container.NewAppendBlobClient(name)
	if err := a.ensure(ctx, name, client); err != nil {
		return err
	}
	if _, err := client.AppendBlock(ctx, streaming.NopCloser(bytes.NewReader(data)), nil); err != nil {
		return fmt.Errorf("failed to append to %s: %w", name, err)
	}
	return nil
}

func (a *BlobAppender) ensure(ctx context.Context, name string, client *appendblob.Client) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.created[name] {
		return nil
	}
	etagAny := azcore.ETagAny
	_, err := client.Create(ctx, &appendblob.CreateOptions{
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: &etagAny},
		},
	})
	// another replica or an earlier run got there first
	if err != nil && !bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	a.created[name] = true
	return nil
}
