package parts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/angelmondragon/fleetshop-backend/pkg/storage/gcs"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const sniffBytes = 3072

var invoiceMimeTypes = []string{"application/pdf", "image/png", "image/jpeg"}

type blobStore interface {
	Upload(ctx context.Context, r io.Reader, key, contentType string, onProgress gcs.ProgressFunc) (gcs.Reference, error)
	SignedURL(ctx context.Context, key string) (string, error)
}

// InvoiceUpload is a single invoice attachment. Size is the declared length and
// drives progress reporting; the body is still capped at the configured limit.
type InvoiceUpload struct {
	Number   *string
	Filename string
	Size     int64
	Body     io.Reader
}

// AttachInvoice uploads an invoice document and records it on the part.
func (s *service) AttachInvoice(ctx context.Context, id uuid.UUID, upload InvoiceUpload) (*PartDTO, error) {
	if s.blob == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "object storage unavailable")
	}
	if upload.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice file is required")
	}
	if s.maxUploadBytes > 0 && upload.Size > s.maxUploadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice exceeds upload limit").
			WithDetails(map[string]any{"max_bytes": s.maxUploadBytes})
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(upload.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read invoice")
	}
	head = head[:n]
	detected := mimetype.Detect(head)
	if !mimetype.EqualsAny(detected.String(), invoiceMimeTypes...) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice must be a PDF, PNG, or JPEG").
			WithDetails(map[string]any{"detected": detected.String()})
	}

	body := io.MultiReader(bytes.NewReader(head), upload.Body)
	if s.maxUploadBytes > 0 {
		body = &limitedReader{r: body, remaining: s.maxUploadBytes}
	}

	key := invoiceKey(id, detected.Extension())
	ctx = s.withInvoiceFields(ctx, id, key)
	ref, err := s.blob.Upload(ctx, body, key, detected.String(), s.progressLogger(ctx, upload.Size))
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice exceeds upload limit").
				WithDetails(map[string]any{"max_bytes": s.maxUploadBytes})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload invoice")
	}

	if err := s.repo.SetInvoice(ctx, id, upload.Number, ref.URL(), ref.Key); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "record invoice")
	}
	if s.logg != nil {
		s.logg.Info(ctx, "part.invoice.attached")
	}
	return s.Get(ctx, id)
}

// InvoiceURL returns a fresh signed download URL for the part's invoice.
func (s *service) InvoiceURL(ctx context.Context, id uuid.UUID) (string, error) {
	if s.blob == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "object storage unavailable")
	}
	part, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if part.InvoiceKey == nil || strings.TrimSpace(*part.InvoiceKey) == "" {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "part has no invoice")
	}
	url, err := s.blob.SignedURL(ctx, *part.InvoiceKey)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign invoice url")
	}
	return url, nil
}

func (s *service) withInvoiceFields(ctx context.Context, id uuid.UUID, key string) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithFields(ctx, map[string]any{"part_id": id.String(), "object_key": key})
}

// progressLogger logs each time another quarter of the declared size is written.
func (s *service) progressLogger(ctx context.Context, total int64) gcs.ProgressFunc {
	if s.logg == nil || total <= 0 {
		return nil
	}
	nextStep := int64(25)
	return func(written int64) {
		pct := written * 100 / total
		for nextStep <= 100 && pct >= nextStep {
			s.logg.Info(s.logg.WithField(ctx, "progress_pct", nextStep), "part.invoice.upload_progress")
			nextStep += 25
		}
	}
}

func invoiceKey(partID uuid.UUID, ext string) string {
	return fmt.Sprintf("invoices/%s/%s%s", partID, uuid.NewString(), ext)
}

var errUploadTooLarge = errors.New("upload exceeds limit")

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		var probe [1]byte
		if n, _ := l.r.Read(probe[:]); n > 0 {
			return 0, errUploadTooLarge
		}
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
