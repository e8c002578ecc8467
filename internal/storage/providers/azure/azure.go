// Package azure serves an Azure Blob Storage container as a file tree.
// Folders are virtual: a blob named "docs/a.txt" makes "docs" a folder.
package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/jmmpc/lisfy/internal/models"
	"github.com/jmmpc/lisfy/internal/storage"
)

// Options selects the container. SASURL takes precedence over
// ConnectionString.
type Options struct {
	Container        string
	SASURL           string // container URL carrying a SAS token
	ConnectionString string
	Transport        *http.Client
}

// Backend implements storage.Backend on a container.
type Backend struct {
	client *container.Client
}

// New creates a container client from opts.
func New(opts Options) (*Backend, error) {
	var clientOpts *container.ClientOptions
	if opts.Transport != nil {
		clientOpts = &container.ClientOptions{
			ClientOptions: azcore.ClientOptions{Transport: opts.Transport},
		}
	}

	var (
		client *container.Client
		err    error
	)
	switch {
	case opts.SASURL != "":
		client, err = container.NewClientWithNoCredential(opts.SASURL, clientOpts)
	case opts.ConnectionString != "" && opts.Container != "":
		client, err = container.NewClientFromConnectionString(opts.ConnectionString, opts.Container, clientOpts)
	default:
		return nil, errors.New("azure storage needs a SAS URL or a connection string and container")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure container client: %w", err)
	}
	return &Backend{client: client}, nil
}

// blobName maps a tree path to a blob name.
func blobName(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// dirPrefix maps a folder path to the name prefix of its children.
func dirPrefix(p string) string {
	name := blobName(p)
	if name == "" {
		return ""
	}
	return name + "/"
}

// mapError translates Azure response status codes into storage errors.
func mapError(err error) error {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}
	switch respErr.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", storage.ErrNotExist, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", storage.ErrPermission, err)
	case http.StatusConflict, http.StatusPreconditionFailed:
		return fmt.Errorf("%w: %w", storage.ErrExist, err)
	default:
		return err
	}
}

func fileEntry(name string, size *int64, modTime *time.Time) models.DirectoryEntry {
	e := models.DirectoryEntry{Name: name}
	if size != nil {
		e.Size = *size
	}
	if modTime != nil {
		e.ModTime = modTime.UnixNano()
	}
	return e
}

// Stat describes blob p, or the virtual folder p.
func (b *Backend) Stat(ctx context.Context, p string) (models.DirectoryEntry, error) {
	name := blobName(p)
	if name == "" {
		return models.DirectoryEntry{Name: "/", IsDir: true}, nil
	}

	props, err := b.client.NewBlobClient(name).GetProperties(ctx, nil)
	if err == nil {
		return fileEntry(path.Base(name), props.ContentLength, props.LastModified), nil
	}
	err = mapError(err)
	if !errors.Is(err, storage.ErrNotExist) {
		return models.DirectoryEntry{}, err
	}

	exists, lerr := b.hasChildren(ctx, dirPrefix(p))
	if lerr != nil {
		return models.DirectoryEntry{}, lerr
	}
	if !exists {
		return models.DirectoryEntry{}, err
	}
	return models.DirectoryEntry{Name: path.Base(name), IsDir: true}, nil
}

func (b *Backend) hasChildren(ctx context.Context, prefix string) (bool, error) {
	pager := b.client.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
		Prefix:     to.Ptr(prefix),
		MaxResults: to.Ptr(int32(1)),
	})
	if !pager.More() {
		return false, nil
	}
	page, err := pager.NextPage(ctx)
	if err != nil {
		return false, mapError(err)
	}
	return page.Segment != nil && len(page.Segment.BlobItems) > 0, nil
}

// ReadDir lists blobs and virtual folders directly below p.
func (b *Backend) ReadDir(ctx context.Context, p string) ([]models.DirectoryEntry, error) {
	prefix := dirPrefix(p)
	pager := b.client.NewListBlobsHierarchyPager("/", &container.ListBlobsHierarchyOptions{
		Prefix: to.Ptr(prefix),
	})

	entries := []models.DirectoryEntry{}
	found := false
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		if page.Segment == nil {
			continue
		}
		for _, bp := range page.Segment.BlobPrefixes {
			found = true
			name := strings.TrimSuffix(strings.TrimPrefix(deref(bp.Name), prefix), "/")
			if storage.Visible(name) {
				entries = append(entries, models.DirectoryEntry{Name: name, IsDir: true})
			}
		}
		for _, item := range page.Segment.BlobItems {
			found = true
			name := strings.TrimPrefix(deref(item.Name), prefix)
			if name == "" || !storage.Visible(name) {
				continue
			}
			var size *int64
			var modTime *time.Time
			if item.Properties != nil {
				size = item.Properties.ContentLength
				modTime = item.Properties.LastModified
			}
			entries = append(entries, fileEntry(name, size, modTime))
		}
	}

	if !found && prefix != "" {
		return nil, fmt.Errorf("%s: %w", p, storage.ErrNotExist)
	}
	storage.SortEntries(entries)
	return entries, nil
}

// Open streams blob p.
func (b *Backend) Open(ctx context.Context, p string) (*storage.Object, error) {
	name := blobName(p)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", p, storage.ErrIsDir)
	}
	resp, err := b.client.NewBlobClient(name).DownloadStream(ctx, nil)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, storage.ErrNotExist) {
			if e, serr := b.Stat(ctx, p); serr == nil && e.IsDir {
				return nil, fmt.Errorf("%s: %w", p, storage.ErrIsDir)
			}
		}
		return nil, err
	}

	obj := &storage.Object{Name: path.Base(name), Size: -1, Body: resp.Body}
	if resp.ContentLength != nil {
		obj.Size = *resp.ContentLength
	}
	if resp.LastModified != nil {
		obj.ModTime = *resp.LastModified
	}
	return obj, nil
}

// Create uploads r as block blob p. The upload is conditional on the blob
// not existing yet.
func (b *Backend) Create(ctx context.Context, p string, r io.Reader, size int64) (int64, error) {
	cr := &countingReader{r: storage.ContextReader(ctx, r)}
	_, err := b.client.NewBlockBlobClient(blobName(p)).UploadStream(ctx, cr, &blockblob.UploadStreamOptions{
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: to.Ptr(azcore.ETagAny)},
		},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cr.n, ctxErr
		}
		return cr.n, mapError(err)
	}
	if size >= 0 && cr.n != size {
		b.Remove(context.WithoutCancel(ctx), p)
		return cr.n, io.ErrUnexpectedEOF
	}
	return cr.n, nil
}

// Remove deletes blob p.
func (b *Backend) Remove(ctx context.Context, p string) error {
	_, err := b.client.NewBlobClient(blobName(p)).Delete(ctx, nil)
	return mapError(err)
}

// Type returns "azure".
func (b *Backend) Type() string { return "azure" }

// Close does nothing.
func (b *Backend) Close() error { return nil }

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ storage.Backend = (*Backend)(nil)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
