package controllers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/fleetshop-backend/internal/imports"
	"github.com/angelmondragon/fleetshop-backend/internal/parts"
	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
)

type stubPartService struct {
	parts.Service
	filter  parts.ListFilter
	upload  parts.InvoiceUpload
	content []byte
	url     string
}

func (s *stubPartService) List(ctx context.Context, filter parts.ListFilter) ([]parts.PartDTO, error) {
	s.filter = filter
	return []parts.PartDTO{}, nil
}

func (s *stubPartService) AttachInvoice(ctx context.Context, id uuid.UUID, upload parts.InvoiceUpload) (*parts.PartDTO, error) {
	s.upload = upload
	content, err := io.ReadAll(upload.Body)
	if err != nil {
		return nil, err
	}
	s.content = content
	return &parts.PartDTO{ID: id, HasInvoice: true}, nil
}

func (s *stubPartService) InvoiceURL(ctx context.Context, id uuid.UUID) (string, error) {
	return s.url, nil
}

func TestPartListFilters(t *testing.T) {
	vehicleID := uuid.New()
	svc := &stubPartService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/parts?category=filters&below_threshold=true&in_stock=1&vehicle_id="+vehicleID.String(), nil)
	rec := httptest.NewRecorder()

	PartList(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.filter.Category != "filters" || !svc.filter.BelowThreshold || !svc.filter.InStock {
		t.Fatalf("unexpected filter %+v", svc.filter)
	}
	if svc.filter.VehicleID == nil || *svc.filter.VehicleID != vehicleID {
		t.Fatalf("expected vehicle filter %s", vehicleID)
	}
}

func TestPartListRejectsBadFilters(t *testing.T) {
	for _, query := range []string{"?vehicle_id=nope", "?in_stock=maybe"} {
		rec := httptest.NewRecorder()
		PartList(&stubPartService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/parts"+query, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, rec.Code)
		}
	}
}

func TestPartAttachInvoice(t *testing.T) {
	partID := uuid.New()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("invoice_number", "INV-42"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	fw, err := writer.CreateFormFile("file", "invoice.pdf")
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	fw.Write([]byte("%PDF-1.4 test"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/parts/"+partID.String()+"/invoice", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = withURLParams(req, map[string]string{"partID": partID.String()})
	rec := httptest.NewRecorder()

	svc := &stubPartService{}
	PartAttachInvoice(svc, 1<<20, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.upload.Number == nil || *svc.upload.Number != "INV-42" {
		t.Fatalf("expected invoice number forwarded, got %+v", svc.upload.Number)
	}
	if svc.upload.Filename != "invoice.pdf" || string(svc.content) != "%PDF-1.4 test" {
		t.Fatalf("unexpected upload %q / %q", svc.upload.Filename, svc.content)
	}
}

func TestPartAttachInvoiceRequiresFile(t *testing.T) {
	partID := uuid.New()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("invoice_number", "INV-1")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/x", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = withURLParams(req, map[string]string{"partID": partID.String()})
	rec := httptest.NewRecorder()

	PartAttachInvoice(&stubPartService{}, 0, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPartInvoiceURL(t *testing.T) {
	partID := uuid.New()
	svc := &stubPartService{url: "https://storage.example/signed"}
	req := withURLParams(httptest.NewRequest(http.MethodGet, "/x", nil), map[string]string{"partID": partID.String()})
	rec := httptest.NewRecorder()

	PartInvoiceURL(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	decodeData(t, rec, &body)
	if body["url"] != svc.url {
		t.Fatalf("unexpected body %+v", body)
	}
}

type recordingCreator struct {
	created []models.Part
}

func (c *recordingCreator) Create(ctx context.Context, part *models.Part) (*models.Part, error) {
	c.created = append(c.created, *part)
	return part, nil
}

func TestPartImport(t *testing.T) {
	csv := "oem_part_number,description,quantity\nA-1,Air filter,3\n,Nameless,1\n"

	t.Run("dry run", func(t *testing.T) {
		repo := &recordingCreator{}
		req := httptest.NewRequest(http.MethodPost, "/x?dry_run=true", strings.NewReader(csv))
		rec := httptest.NewRecorder()
		PartImport(repo, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(repo.created) != 0 {
			t.Fatalf("dry run must not write, got %d", len(repo.created))
		}
	})

	t.Run("writes valid rows", func(t *testing.T) {
		repo := &recordingCreator{}
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(csv))
		rec := httptest.NewRecorder()
		PartImport(repo, nil).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var result imports.Result
		decodeData(t, rec, &result)
		if result.Created != 1 || len(result.Rejected) != 1 || result.Rejected[0].Line != 3 {
			t.Fatalf("unexpected result %+v", result)
		}
	})

	t.Run("bad header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("sku,name\n"))
		rec := httptest.NewRecorder()
		PartImport(&recordingCreator{}, nil).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
