// Package s3 serves an S3 bucket (or a key prefix inside one) as a file
// tree. Folders are key prefixes ending in "/".
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/jmmpc/lisfy/internal/models"
	"github.com/jmmpc/lisfy/internal/storage"
)

// API is the subset of *s3.Client the backend uses.
type API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Options configures the S3 client.
type Options struct {
	Bucket          string
	Region          string
	Endpoint        string // S3-compatible endpoint; enables path-style addressing
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// Backend implements storage.Backend on a bucket.
type Backend struct {
	api    API
	bucket string
	prefix string // "" or "some/prefix/"
}

// NewClient builds an *s3.Client from the default AWS configuration chain,
// using static credentials when both keys are given.
func NewClient(ctx context.Context, opts Options) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// New serves bucket through api. prefix limits the tree to keys below it.
func New(api API, bucket, prefix string) (*Backend, error) {
	if api == nil {
		return nil, errors.New("s3 client is required")
	}
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Backend{api: api, bucket: bucket, prefix: prefix}, nil
}

// key maps a tree path to an object key.
func (b *Backend) key(p string) string {
	return b.prefix + strings.TrimPrefix(path.Clean("/"+p), "/")
}

// dirPrefix maps a folder path to the key prefix of its children.
func (b *Backend) dirPrefix(p string) string {
	k := b.key(p)
	if k == "" || strings.HasSuffix(k, "/") {
		return k
	}
	return k + "/"
}

func isRoot(p string) bool {
	return path.Clean("/"+p) == "/"
}

// mapError translates S3 API error codes into storage errors.
func mapError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.ErrorCode() {
	case "NotFound", "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %w", storage.ErrNotExist, err)
	case "AccessDenied", "Forbidden":
		return fmt.Errorf("%w: %w", storage.ErrPermission, err)
	case "PreconditionFailed", "ConditionalRequestConflict":
		return fmt.Errorf("%w: %w", storage.ErrExist, err)
	default:
		return err
	}
}

func dirEntry(name string) models.DirectoryEntry {
	return models.DirectoryEntry{Name: name, IsDir: true}
}

func fileEntry(name string, size *int64, modTime *time.Time) models.DirectoryEntry {
	e := models.DirectoryEntry{Name: name, Size: aws.ToInt64(size)}
	if modTime != nil {
		e.ModTime = modTime.UnixNano()
	}
	return e
}

// Stat describes the object at p, or the folder when p is only a prefix.
func (b *Backend) Stat(ctx context.Context, p string) (models.DirectoryEntry, error) {
	if isRoot(p) {
		return dirEntry("/"), nil
	}
	name := path.Base(path.Clean("/" + p))

	head, err := b.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(p)),
	})
	if err == nil {
		return fileEntry(name, head.ContentLength, head.LastModified), nil
	}
	err = mapError(err)
	if !errors.Is(err, storage.ErrNotExist) {
		return models.DirectoryEntry{}, err
	}

	list, lerr := b.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(b.dirPrefix(p)),
		MaxKeys: aws.Int32(1),
	})
	if lerr != nil {
		return models.DirectoryEntry{}, mapError(lerr)
	}
	if len(list.Contents) == 0 && len(list.CommonPrefixes) == 0 {
		return models.DirectoryEntry{}, err
	}
	return dirEntry(name), nil
}

// ReadDir lists the objects and sub-prefixes directly below p.
func (b *Backend) ReadDir(ctx context.Context, p string) ([]models.DirectoryEntry, error) {
	prefix := b.dirPrefix(p)
	paginator := s3.NewListObjectsV2Paginator(b.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var entries []models.DirectoryEntry
	found := false
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		for _, cp := range page.CommonPrefixes {
			found = true
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if storage.Visible(name) {
				entries = append(entries, dirEntry(name))
			}
		}
		for _, obj := range page.Contents {
			found = true
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			// folder marker objects
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			if storage.Visible(name) {
				entries = append(entries, fileEntry(name, obj.Size, obj.LastModified))
			}
		}
	}

	if !found && !isRoot(p) {
		return nil, fmt.Errorf("%s: %w", p, storage.ErrNotExist)
	}
	storage.SortEntries(entries)
	if entries == nil {
		entries = []models.DirectoryEntry{}
	}
	return entries, nil
}

// Open streams object p.
func (b *Backend) Open(ctx context.Context, p string) (*storage.Object, error) {
	if isRoot(p) {
		return nil, fmt.Errorf("%s: %w", p, storage.ErrIsDir)
	}
	out, err := b.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(p)),
	})
	if err != nil {
		err = mapError(err)
		if errors.Is(err, storage.ErrNotExist) {
			if e, serr := b.Stat(ctx, p); serr == nil && e.IsDir {
				return nil, fmt.Errorf("%s: %w", p, storage.ErrIsDir)
			}
		}
		return nil, err
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return &storage.Object{
		Name:    path.Base(path.Clean("/" + p)),
		Size:    size,
		ModTime: aws.ToTime(out.LastModified),
		Body:    out.Body,
	}, nil
}

// Create uploads r as object p in a single PutObject. The request is
// conditional so an existing key is never replaced.
func (b *Backend) Create(ctx context.Context, p string, r io.Reader, size int64) (int64, error) {
	if size < 0 {
		return 0, storage.ErrLengthRequired
	}
	cr := &countingReader{r: storage.ContextReader(ctx, r)}
	_, err := b.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.key(p)),
		Body:          cr,
		ContentLength: aws.Int64(size),
		IfNoneMatch:   aws.String("*"),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cr.n, ctxErr
		}
		return cr.n, mapError(err)
	}
	return cr.n, nil
}

// Remove deletes object p.
func (b *Backend) Remove(ctx context.Context, p string) error {
	_, err := b.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(p)),
	})
	return mapError(err)
}

// Type returns "s3".
func (b *Backend) Type() string { return "s3" }

// Close does nothing; the SDK client holds no resources that need releasing.
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
