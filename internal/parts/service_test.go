package parts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
	"github.com/angelmondragon/fleetshop-backend/pkg/pubsub"
	"github.com/angelmondragon/fleetshop-backend/pkg/storage/gcs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlob struct {
	uploads   map[string][]byte
	types     map[string]string
	progress  []int64
	uploadErr error
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{uploads: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeBlob) Upload(ctx context.Context, r io.Reader, key, contentType string, onProgress gcs.ProgressFunc) (gcs.Reference, error) {
	if f.uploadErr != nil {
		return gcs.Reference{}, f.uploadErr
	}
	var buf bytes.Buffer
	chunk := make([]byte, 512)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if onProgress != nil {
				onProgress(int64(buf.Len()))
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return gcs.Reference{}, err
		}
	}
	f.uploads[key] = buf.Bytes()
	f.types[key] = contentType
	return gcs.Reference{Bucket: "bucket", Key: key, ContentType: contentType, Size: int64(buf.Len())}, nil
}

func (f *fakeBlob) SignedURL(ctx context.Context, key string) (string, error) {
	return "https://signed.example/" + key, nil
}

func newTestPartService(t *testing.T, blob blobStore, maxBytes int64) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(newTestDB(t))
	svc, err := NewService(ServiceParams{
		Repo:           repo,
		Blob:           blob,
		MaxUploadBytes: maxBytes,
		Logger:         logger.New(logger.Options{ServiceName: "parts-test", Level: logger.ParseLevel("error")}),
	})
	require.NoError(t, err)
	return svc, repo
}

func pdfBody(size int) []byte {
	body := []byte("%PDF-1.4\n")
	return append(body, bytes.Repeat([]byte("x"), size)...)
}

func TestServiceCreateValidates(t *testing.T) {
	svc, _ := newTestPartService(t, nil, 0)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreatePartInput{Description: "Oil filter"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.Create(ctx, CreatePartInput{OEMPartNumber: "OF-1", Description: "Oil filter", UnitCost: decimal.NewFromInt(-1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	created, err := svc.Create(ctx, CreatePartInput{
		OEMPartNumber:    " OF-1 ",
		Description:      "Oil filter",
		Category:         "filters",
		UnitCost:         decimal.RequireFromString("8.25"),
		Quantity:         5,
		ReorderThreshold: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "OF-1", created.OEMPartNumber)
	assert.True(t, created.BelowThreshold)
	assert.False(t, created.HasInvoice)
}

func TestServiceListFilters(t *testing.T) {
	svc, repo := newTestPartService(t, nil, 0)
	ctx := context.Background()
	seedPart(t, repo, "A-1", 10, 2, "filters")
	seedPart(t, repo, "B-2", 1, 2, "brakes")

	byCategory, err := svc.List(ctx, ListFilter{Category: "brakes"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "B-2", byCategory[0].OEMPartNumber)

	below, err := svc.List(ctx, ListFilter{BelowThreshold: true})
	require.NoError(t, err)
	require.Len(t, below, 1)

	all, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestServiceUpdateAndDelete(t *testing.T) {
	svc, repo := newTestPartService(t, nil, 0)
	ctx := context.Background()
	part := seedPart(t, repo, "A-1", 10, 2, "filters")

	qty := 7
	updated, err := svc.Update(ctx, part.ID, UpdatePartInput{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)
	assert.Equal(t, "A-1", updated.OEMPartNumber)

	require.NoError(t, svc.Delete(ctx, part.ID))
	_, err = svc.Get(ctx, part.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAttachInvoiceUploadsAndRecords(t *testing.T) {
	blob := newFakeBlob()
	svc, repo := newTestPartService(t, blob, 1<<20)
	ctx := context.Background()
	part := seedPart(t, repo, "A-1", 1, 0, "")

	body := pdfBody(4096)
	number := "INV-100"
	dto, err := svc.AttachInvoice(ctx, part.ID, InvoiceUpload{
		Number:   &number,
		Filename: "invoice.pdf",
		Size:     int64(len(body)),
		Body:     bytes.NewReader(body),
	})
	require.NoError(t, err)
	assert.True(t, dto.HasInvoice)
	require.NotNil(t, dto.InvoiceNumber)
	assert.Equal(t, "INV-100", *dto.InvoiceNumber)

	require.Len(t, blob.uploads, 1)
	for key, data := range blob.uploads {
		assert.True(t, strings.HasPrefix(key, "invoices/"+part.ID.String()+"/"))
		assert.True(t, strings.HasSuffix(key, ".pdf"))
		assert.Equal(t, body, data)
		assert.Equal(t, "application/pdf", blob.types[key])
	}

	url, err := svc.InvoiceURL(ctx, part.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://signed.example/invoices/"))
}

func TestAttachInvoiceRejectsUnsupportedType(t *testing.T) {
	blob := newFakeBlob()
	svc, repo := newTestPartService(t, blob, 1<<20)
	part := seedPart(t, repo, "A-1", 1, 0, "")

	_, err := svc.AttachInvoice(context.Background(), part.ID, InvoiceUpload{
		Filename: "notes.txt",
		Body:     strings.NewReader("just some text"),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, blob.uploads)
}

func TestAttachInvoiceEnforcesLimit(t *testing.T) {
	blob := newFakeBlob()
	svc, repo := newTestPartService(t, blob, 1024)
	part := seedPart(t, repo, "A-1", 1, 0, "")
	body := pdfBody(4096)

	_, err := svc.AttachInvoice(context.Background(), part.ID, InvoiceUpload{Size: int64(len(body)), Body: bytes.NewReader(body)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.AttachInvoice(context.Background(), part.ID, InvoiceUpload{Body: bytes.NewReader(body)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestInvoiceURLWithoutInvoice(t *testing.T) {
	svc, repo := newTestPartService(t, newFakeBlob(), 0)
	part := seedPart(t, repo, "A-1", 1, 0, "")

	_, err := svc.InvoiceURL(context.Background(), part.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestInvoiceWithoutBlobStore(t *testing.T) {
	svc, repo := newTestPartService(t, nil, 0)
	part := seedPart(t, repo, "A-1", 1, 0, "")

	_, err := svc.AttachInvoice(context.Background(), part.ID, InvoiceUpload{Body: bytes.NewReader(pdfBody(10))})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

type recordingPublisher struct {
	events []any
	err    error
}

func (r *recordingPublisher) Publish(ctx context.Context, eventType string, data any) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, data)
	return nil
}

var _ pubsub.EventPublisher = (*recordingPublisher)(nil)

func TestLowStockNotifier(t *testing.T) {
	pub := &recordingPublisher{}
	notifier := NewLowStockNotifier(pub, nil)
	ctx := context.Background()

	assert.False(t, notifier.NotifyIfLow(ctx, &models.Part{ID: uuid.New(), Quantity: 5, ReorderThreshold: 2}))
	assert.True(t, notifier.NotifyIfLow(ctx, &models.Part{ID: uuid.New(), OEMPartNumber: "X", Quantity: 2, ReorderThreshold: 2}))
	require.Len(t, pub.events, 1)
	event := pub.events[0].(LowStockEvent)
	assert.Equal(t, "X", event.OEMPartNumber)

	failing := NewLowStockNotifier(&recordingPublisher{err: errors.New("down")}, nil)
	assert.False(t, failing.NotifyIfLow(ctx, &models.Part{Quantity: 0, ReorderThreshold: 1}))
}
