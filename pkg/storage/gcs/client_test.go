package gcs

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/angelmondragon/fleetshop-backend/pkg/config"
)

type memoryObjects struct {
	objects   map[string]*bytes.Buffer
	types     map[string]string
	deleted   []string
	failWrite bool
	lastOpts  *storage.SignedURLOptions
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string]*bytes.Buffer{}, types: map[string]string{}}
}

type memoryWriter struct {
	buf  *bytes.Buffer
	fail bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.fail {
		return 0, errors.New("write failed")
	}
	return w.buf.Write(p)
}

func (w *memoryWriter) Close() error { return nil }

func (m *memoryObjects) newWriter(_ context.Context, bucket, key, contentType string) io.WriteCloser {
	buf := &bytes.Buffer{}
	m.objects[bucket+"/"+key] = buf
	m.types[bucket+"/"+key] = contentType
	return &memoryWriter{buf: buf, fail: m.failWrite}
}

func (m *memoryObjects) delete(_ context.Context, bucket, key string) error {
	if _, ok := m.objects[bucket+"/"+key]; !ok {
		return storage.ErrObjectNotExist
	}
	delete(m.objects, bucket+"/"+key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memoryObjects) signedURL(bucket, key string, opts *storage.SignedURLOptions) (string, error) {
	m.lastOpts = opts
	return "https://signed.example/" + bucket + "/" + key, nil
}

func (m *memoryObjects) bucketExists(context.Context, string) error { return nil }
func (m *memoryObjects) close() error                              { return nil }

func TestUploadReportsProgress(t *testing.T) {
	t.Parallel()

	objects := newMemoryObjects()
	client := newClient(objects, config.GCSConfig{BucketName: "bucket"}, nil)

	payload := bytes.Repeat([]byte("a"), 64*1024)
	var progress []int64
	ref, err := client.Upload(context.Background(), bytes.NewReader(payload), "/invoices/p1/file.pdf", "application/pdf", func(written int64) {
		progress = append(progress, written)
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if ref.Key != "invoices/p1/file.pdf" || ref.Size != int64(len(payload)) {
		t.Fatalf("unexpected reference %+v", ref)
	}
	if len(progress) == 0 || progress[len(progress)-1] != int64(len(payload)) {
		t.Fatalf("expected final progress %d, got %v", len(payload), progress)
	}
	if got := objects.types["bucket/invoices/p1/file.pdf"]; got != "application/pdf" {
		t.Fatalf("unexpected content type %q", got)
	}
	if ref.URL() != "https://storage.googleapis.com/bucket/invoices/p1/file.pdf" {
		t.Fatalf("unexpected object url %s", ref.URL())
	}
}

func TestUploadPropagatesWriteError(t *testing.T) {
	t.Parallel()

	objects := newMemoryObjects()
	objects.failWrite = true
	client := newClient(objects, config.GCSConfig{BucketName: "bucket"}, nil)

	if _, err := client.Upload(context.Background(), strings.NewReader("data"), "k", "text/plain", nil); err == nil {
		t.Fatal("expected upload error")
	}
	if _, err := client.Upload(context.Background(), strings.NewReader("data"), " ", "text/plain", nil); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestSignedURLWithServiceAccountKey(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	client := newClient(newMemoryObjects(), config.GCSConfig{BucketName: "bucket", DownloadURLExpiry: 10 * time.Minute}, &signer{
		email:      "signer@example.com",
		privateKey: pemKey,
	})

	urlStr, err := client.SignedURL(context.Background(), "invoices/p1/file.pdf")
	if err != nil {
		t.Fatalf("SignedURL returned error: %v", err)
	}
	parsed, err := url.Parse(urlStr)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}
	if !strings.EqualFold(parsed.Host, "storage.googleapis.com") {
		t.Fatalf("unexpected host %s", parsed.Host)
	}
	values := parsed.Query()
	if !strings.HasPrefix(values.Get("X-Goog-Credential"), "signer@example.com/") {
		t.Fatalf("unexpected credential %q", values.Get("X-Goog-Credential"))
	}
	if values.Get("X-Goog-Expires") != "600" {
		t.Fatalf("unexpected expiry %q", values.Get("X-Goog-Expires"))
	}
}

func TestSignedURLFallsBackToBucketSigner(t *testing.T) {
	t.Parallel()

	objects := newMemoryObjects()
	client := newClient(objects, config.GCSConfig{BucketName: "bucket"}, nil)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return fixed }

	urlStr, err := client.SignedURL(context.Background(), "invoices/x.png")
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	if urlStr != "https://signed.example/bucket/invoices/x.png" {
		t.Fatalf("unexpected url %s", urlStr)
	}
	if objects.lastOpts == nil || !objects.lastOpts.Expires.Equal(fixed.Add(time.Hour)) {
		t.Fatalf("expected default 1h expiry, got %+v", objects.lastOpts)
	}
}

func TestDeleteIgnoresMissingObject(t *testing.T) {
	t.Parallel()

	client := newClient(newMemoryObjects(), config.GCSConfig{BucketName: "bucket"}, nil)
	if err := client.Delete(context.Background(), "missing"); err != nil {
		t.Fatalf("expected nil for missing object, got %v", err)
	}
}

func TestSignerFromJSON(t *testing.T) {
	t.Parallel()

	s, err := signerFromJSON(`{"type":"service_account","client_email":"a@b.iam","private_key":"-----BEGIN KEY-----\\nabc\\n-----END KEY-----"}`)
	if err != nil || s == nil {
		t.Fatalf("expected signer, got %v %v", s, err)
	}
	if !strings.Contains(string(s.privateKey), "\nabc\n") {
		t.Fatalf("expected newlines restored, got %q", s.privateKey)
	}

	s, err = signerFromJSON(`{"type":"authorized_user"}`)
	if err != nil || s != nil {
		t.Fatalf("expected nil signer for user credentials, got %v %v", s, err)
	}
	if _, err := signerFromJSON("not-json"); err == nil {
		t.Fatal("expected parse error")
	}
}
