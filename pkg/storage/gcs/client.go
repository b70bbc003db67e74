package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/angelmondragon/fleetshop-backend/pkg/config"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
	"google.golang.org/api/option"
)

const pingTimeout = 5 * time.Second

// ProgressFunc receives the running number of bytes written during an upload.
type ProgressFunc func(written int64)

// Reference identifies an uploaded object.
type Reference struct {
	Bucket      string
	Key         string
	ContentType string
	Size        int64
}

// URL returns the canonical, non-signed object URL.
func (r Reference) URL() string {
	return ObjectURL(r.Bucket, r.Key)
}

// ObjectURL builds the canonical https URL for an object.
func ObjectURL(bucket, key string) string {
	return (&url.URL{
		Scheme: "https",
		Host:   "storage.googleapis.com",
		Path:   "/" + bucket + "/" + strings.TrimPrefix(key, "/"),
	}).String()
}

type objectStore interface {
	newWriter(ctx context.Context, bucket, key, contentType string) io.WriteCloser
	delete(ctx context.Context, bucket, key string) error
	signedURL(bucket, key string, opts *storage.SignedURLOptions) (string, error)
	bucketExists(ctx context.Context, bucket string) error
	close() error
}

type signer struct {
	email      string
	privateKey []byte
}

// Client uploads invoice attachments and hands out signed download URLs.
type Client struct {
	objects objectStore
	bucket  string
	expiry  time.Duration
	signer  *signer
	now     func() time.Time
}

// NewClient builds a Cloud Storage backed client and verifies the bucket is reachable.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	credsJSON := strings.TrimSpace(gcp.CredentialsJSON)
	if credsJSON == "" && gcp.ApplicationCredentials != "" {
		bytes, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		credsJSON = string(bytes)
	}

	var opts []option.ClientOption
	var sign *signer
	if credsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credsJSON)))
		parsed, err := signerFromJSON(credsJSON)
		if err != nil {
			return nil, err
		}
		sign = parsed
	}

	raw, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	client := newClient(&gcsObjects{client: raw}, cfg, sign)
	if err := client.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}
	return client, nil
}

func newClient(objects objectStore, cfg config.GCSConfig, sign *signer) *Client {
	expiry := cfg.DownloadURLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &Client{
		objects: objects,
		bucket:  cfg.BucketName,
		expiry:  expiry,
		signer:  sign,
		now:     time.Now,
	}
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Upload streams r into key, reporting progress after every write.
func (c *Client) Upload(ctx context.Context, r io.Reader, key, contentType string, onProgress ProgressFunc) (Reference, error) {
	if c == nil || c.objects == nil {
		return Reference{}, errors.New("gcs client not initialized")
	}
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return Reference{}, errors.New("object key is required")
	}
	if r == nil {
		return Reference{}, errors.New("upload body is required")
	}

	w := c.objects.newWriter(ctx, c.bucket, key, contentType)
	counter := &progressWriter{w: w, onProgress: onProgress}
	if _, err := io.Copy(counter, r); err != nil {
		_ = w.Close()
		return Reference{}, fmt.Errorf("uploading %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return Reference{}, fmt.Errorf("finalizing %s: %w", key, err)
	}

	return Reference{
		Bucket:      c.bucket,
		Key:         key,
		ContentType: contentType,
		Size:        counter.written,
	}, nil
}

// SignedURL returns a V4 signed GET URL valid for the configured expiry.
func (c *Client) SignedURL(ctx context.Context, key string) (string, error) {
	if c == nil || c.objects == nil {
		return "", errors.New("gcs client not initialized")
	}
	if strings.TrimSpace(key) == "" {
		return "", errors.New("object key is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: c.now().Add(c.expiry),
	}
	if c.signer != nil {
		opts.GoogleAccessID = c.signer.email
		opts.PrivateKey = c.signer.privateKey
		return storage.SignedURL(c.bucket, key, opts)
	}
	return c.objects.signedURL(c.bucket, key, opts)
}

// Delete removes key. A missing object is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if c == nil || c.objects == nil {
		return errors.New("gcs client not initialized")
	}
	err := c.objects.delete(ctx, c.bucket, key)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.objects == nil {
		return errors.New("gcs client not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.objects.bucketExists(pingCtx, c.bucket)
}

func (c *Client) Close() error {
	if c == nil || c.objects == nil {
		return nil
	}
	return c.objects.close()
}

type progressWriter struct {
	w          io.Writer
	written    int64
	onProgress ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if n > 0 && p.onProgress != nil {
		p.onProgress(p.written)
	}
	return n, err
}

func signerFromJSON(raw string) (*signer, error) {
	var key struct {
		Type        string `json:"type"`
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
	}
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		return nil, fmt.Errorf("invalid gcp credentials json: %w", err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		// user credentials or external accounts sign through the IAM API instead
		return nil, nil
	}
	return &signer{
		email:      key.ClientEmail,
		privateKey: []byte(strings.ReplaceAll(key.PrivateKey, `\n`, "\n")),
	}, nil
}

type gcsObjects struct {
	client *storage.Client
}

func (g *gcsObjects) newWriter(ctx context.Context, bucket, key, contentType string) io.WriteCloser {
	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	return w
}

func (g *gcsObjects) delete(ctx context.Context, bucket, key string) error {
	return g.client.Bucket(bucket).Object(key).Delete(ctx)
}

func (g *gcsObjects) signedURL(bucket, key string, opts *storage.SignedURLOptions) (string, error) {
	return g.client.Bucket(bucket).SignedURL(key, opts)
}

func (g *gcsObjects) bucketExists(ctx context.Context, bucket string) error {
	_, err := g.client.Bucket(bucket).Attrs(ctx)
	return err
}

func (g *gcsObjects) close() error {
	return g.client.Close()
}
