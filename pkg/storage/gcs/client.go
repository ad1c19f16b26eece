package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/jgechelper/backend/pkg/logger"
	"google.golang.org/api/option"
)

const (
	pingTimeout         = 5 * time.Second
	downloadTokenKey    = "firebaseStorageDownloadTokens"
	firebaseDownloadURL = "https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s"
)

// ErrObjectNotFound is returned when a delete targets a missing object.
var ErrObjectNotFound = errors.New("object not found")

type Pinger interface {
	Ping(ctx context.Context) error
}

// objectStore is the slice of the bucket API the client relies on.
type objectStore interface {
	write(ctx context.Context, name, contentType string, metadata map[string]string, r io.Reader) (int64, error)
	delete(ctx context.Context, name string) error
	attrs(ctx context.Context) error
}

// Client uploads and removes objects in the Firebase Storage bucket and
// hands out token-based download URLs the web client can open directly.
type Client struct {
	bucket string
	store  objectStore
	raw    *storage.Client
	tokens func() string
}

// Object describes an uploaded blob.
type Object struct {
	Path        string `json:"path"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

func NewClient(ctx context.Context, bucket string, opts []option.ClientOption, logg *logger.Logger) (*Client, error) {
	if bucket == "" {
		return nil, errors.New("storage bucket name is required")
	}

	raw, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	client := &Client{
		bucket: bucket,
		store:  &bucketStore{handle: raw.Bucket(bucket)},
		raw:    raw,
		tokens: uuid.NewString,
	}

	if err := client.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("storage health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", bucket), "storage client initialized")
	}

	return client, nil
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.store == nil {
		return errors.New("storage client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.store.attrs(ctx)
}

// Upload streams r into the bucket under path and returns a download URL.
func (c *Client) Upload(ctx context.Context, path, contentType string, r io.Reader) (*Object, error) {
	if c == nil || c.store == nil {
		return nil, errors.New("storage client not initialized")
	}
	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	if path == "" {
		return nil, errors.New("object path is required")
	}

	token := c.tokens()
	size, err := c.store.write(ctx, path, contentType, map[string]string{downloadTokenKey: token}, r)
	if err != nil {
		return nil, fmt.Errorf("writing object %s: %w", path, err)
	}

	return &Object{
		Path:        path,
		URL:         DownloadURL(c.bucket, path, token),
		ContentType: contentType,
		Size:        size,
	}, nil
}

// Delete removes the object at path. Missing objects report ErrObjectNotFound.
func (c *Client) Delete(ctx context.Context, path string) error {
	if c == nil || c.store == nil {
		return errors.New("storage client not initialized")
	}
	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	if path == "" {
		return errors.New("object path is required")
	}
	return c.store.delete(ctx, path)
}

// DownloadURL builds the Firebase token download link for an object.
func DownloadURL(bucket, path, token string) string {
	return fmt.Sprintf(firebaseDownloadURL, bucket, url.PathEscape(path), url.QueryEscape(token))
}

// PathFromDownloadURL recovers the object path from a Firebase download link,
// returning "" when the link does not point at bucket.
func PathFromDownloadURL(bucket, raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host != "firebasestorage.googleapis.com" {
		return ""
	}
	prefix := "/v0/b/" + bucket + "/o/"
	escaped := u.EscapedPath()
	if !strings.HasPrefix(escaped, prefix) {
		return ""
	}
	path, err := url.PathUnescape(strings.TrimPrefix(escaped, prefix))
	if err != nil {
		return ""
	}
	return path
}

type bucketStore struct {
	handle *storage.BucketHandle
}

func (b *bucketStore) write(ctx context.Context, name, contentType string, metadata map[string]string, r io.Reader) (int64, error) {
	w := b.handle.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return n, nil
}

func (b *bucketStore) delete(ctx context.Context, name string) error {
	err := b.handle.Object(name).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	return err
}

func (b *bucketStore) attrs(ctx context.Context) error {
	_, err := b.handle.Attrs(ctx)
	return err
}
