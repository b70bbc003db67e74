package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/fleetshop-backend/api/middleware"
	"github.com/angelmondragon/fleetshop-backend/internal/drafts"
	"github.com/angelmondragon/fleetshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
)

type stubDraftService struct {
	drafts.Service
	actor       uuid.UUID
	opened      drafts.OpenDraftInput
	reserved    drafts.ReserveInput
	releasedQty int
	serviceType string
	task        string
	cancelled   uuid.UUID
	commit      *drafts.CommitResult
	err         error
}

func (s *stubDraftService) view(id uuid.UUID) *drafts.DraftView {
	return &drafts.DraftView{ID: id, State: enums.DraftStateEditing, TotalCostDisplay: "0.00"}
}

func (s *stubDraftService) Open(ctx context.Context, actorID uuid.UUID, input drafts.OpenDraftInput) (*drafts.DraftView, error) {
	s.actor = actorID
	s.opened = input
	return s.view(uuid.New()), s.err
}

func (s *stubDraftService) Get(ctx context.Context, id uuid.UUID) (*drafts.DraftView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.view(id), nil
}

func (s *stubDraftService) Reserve(ctx context.Context, id uuid.UUID, input drafts.ReserveInput) (*drafts.DraftView, error) {
	s.reserved = input
	if s.err != nil {
		return nil, s.err
	}
	return s.view(id), nil
}

func (s *stubDraftService) Release(ctx context.Context, id, partID uuid.UUID, qty int) (*drafts.DraftView, error) {
	s.releasedQty = qty
	return s.view(id), s.err
}

func (s *stubDraftService) SetServiceType(ctx context.Context, id uuid.UUID, serviceType string) (*drafts.DraftView, error) {
	s.serviceType = serviceType
	return s.view(id), s.err
}

func (s *stubDraftService) ToggleTask(ctx context.Context, id uuid.UUID, task string) (*drafts.DraftView, error) {
	s.task = task
	return s.view(id), s.err
}

func (s *stubDraftService) Cancel(ctx context.Context, id uuid.UUID) error {
	s.cancelled = id
	return s.err
}

func (s *stubDraftService) Submit(ctx context.Context, id, actorID uuid.UUID) (*drafts.CommitResult, error) {
	s.actor = actorID
	return s.commit, s.err
}

func draftRequest(method, body string, params map[string]string, actor uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, "/api/v1/drafts", bytes.NewReader([]byte(body)))
	if actor != uuid.Nil {
		req = req.WithContext(middleware.WithUserID(req.Context(), actor.String()))
	}
	return withURLParams(req, params)
}

func TestDraftOpen(t *testing.T) {
	actor := uuid.New()
	vehicleID := uuid.New()
	body := `{"vehicle_id":"` + vehicleID.String() + `","service_type":"oil"}`

	t.Run("requires user", func(t *testing.T) {
		rec := httptest.NewRecorder()
		DraftOpen(&stubDraftService{}, nil).ServeHTTP(rec, draftRequest(http.MethodPost, body, nil, uuid.Nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("opens", func(t *testing.T) {
		svc := &stubDraftService{}
		rec := httptest.NewRecorder()
		DraftOpen(svc, testLogger()).ServeHTTP(rec, draftRequest(http.MethodPost, body, nil, actor))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
		}
		if svc.actor != actor || svc.opened.VehicleID != vehicleID {
			t.Fatalf("unexpected open call actor=%s input=%+v", svc.actor, svc.opened)
		}
		if svc.opened.ServiceType == nil || *svc.opened.ServiceType != "oil" {
			t.Fatalf("expected service type forwarded")
		}
	})
}

func TestDraftGetExpired(t *testing.T) {
	id := uuid.New()
	svc := &stubDraftService{err: pkgerrors.New(pkgerrors.CodeNotFound, "draft not found or expired")}
	rec := httptest.NewRecorder()
	DraftGet(svc, nil).ServeHTTP(rec, draftRequest(http.MethodGet, "", map[string]string{"draftID": id.String()}, uuid.Nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDraftReservePart(t *testing.T) {
	id := uuid.New()
	partID := uuid.New()
	params := map[string]string{"draftID": id.String()}

	svc := &stubDraftService{}
	rec := httptest.NewRecorder()
	DraftReservePart(svc, nil).ServeHTTP(rec, draftRequest(http.MethodPost, `{"part_id":"`+partID.String()+`","quantity":2}`, params, uuid.Nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.reserved.PartID != partID || svc.reserved.Quantity != 2 {
		t.Fatalf("unexpected reserve input %+v", svc.reserved)
	}

	svc = &stubDraftService{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "only 1 available")}
	rec = httptest.NewRecorder()
	DraftReservePart(svc, nil).ServeHTTP(rec, draftRequest(http.MethodPost, `{"part_id":"`+partID.String()+`","quantity":2}`, params, uuid.Nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("unexpected error body %s", rec.Body.String())
	}
}

func TestDraftReleasePartQuantity(t *testing.T) {
	params := map[string]string{"draftID": uuid.NewString(), "partID": uuid.NewString()}

	svc := &stubDraftService{}
	rec := httptest.NewRecorder()
	DraftReleasePart(svc, nil).ServeHTTP(rec, draftRequest(http.MethodDelete, "", params, uuid.Nil))
	if rec.Code != http.StatusOK || svc.releasedQty != 1 {
		t.Fatalf("expected default qty 1, got %d (status %d)", svc.releasedQty, rec.Code)
	}

	req := draftRequest(http.MethodDelete, "", params, uuid.Nil)
	req.URL.RawQuery = "qty=3"
	rec = httptest.NewRecorder()
	DraftReleasePart(svc, nil).ServeHTTP(rec, req)
	if svc.releasedQty != 3 {
		t.Fatalf("expected qty 3, got %d", svc.releasedQty)
	}

	req = draftRequest(http.MethodDelete, "", params, uuid.Nil)
	req.URL.RawQuery = "qty=0"
	rec = httptest.NewRecorder()
	DraftReleasePart(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for qty=0, got %d", rec.Code)
	}
}

func TestDraftServiceTypeAndTasks(t *testing.T) {
	params := map[string]string{"draftID": uuid.NewString()}
	svc := &stubDraftService{}

	rec := httptest.NewRecorder()
	DraftSetServiceType(svc, nil).ServeHTTP(rec, draftRequest(http.MethodPut, `{"service_type":"brakes"}`, params, uuid.Nil))
	if rec.Code != http.StatusOK || svc.serviceType != "brakes" {
		t.Fatalf("unexpected service type call %q (status %d)", svc.serviceType, rec.Code)
	}

	rec = httptest.NewRecorder()
	DraftToggleTask(svc, nil).ServeHTTP(rec, draftRequest(http.MethodPost, `{"task":"check pads"}`, params, uuid.Nil))
	if rec.Code != http.StatusOK || svc.task != "check pads" {
		t.Fatalf("unexpected toggle call %q (status %d)", svc.task, rec.Code)
	}

	rec = httptest.NewRecorder()
	DraftToggleTask(svc, nil).ServeHTTP(rec, draftRequest(http.MethodPost, `{}`, params, uuid.Nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without task, got %d", rec.Code)
	}
}

func TestDraftSubmit(t *testing.T) {
	actor := uuid.New()
	params := map[string]string{"draftID": uuid.NewString()}

	t.Run("partial commit is still ok", func(t *testing.T) {
		svc := &stubDraftService{commit: &drafts.CommitResult{
			Partial:     true,
			FailedParts: []drafts.FailedPart{{PartID: uuid.New(), Quantity: 1, Reason: "db down"}},
			Message:     "service record saved, but 1 part(s) could not be updated",
		}}
		rec := httptest.NewRecorder()
		DraftSubmit(svc, nil).ServeHTTP(rec, draftRequest(http.MethodPost, "", params, actor))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var result drafts.CommitResult
		decodeData(t, rec, &result)
		if !result.Partial || len(result.FailedParts) != 1 {
			t.Fatalf("unexpected result %+v", result)
		}
		if svc.actor != actor {
			t.Fatalf("expected actor forwarded")
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		svc := &stubDraftService{err: pkgerrors.New(pkgerrors.CodeValidation, "missing required fields: mileage, date").
			WithDetails(map[string]any{"fields": []string{"mileage", "date"}})}
		rec := httptest.NewRecorder()
		DraftSubmit(svc, nil).ServeHTTP(rec, draftRequest(http.MethodPost, "", params, actor))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("record write failure", func(t *testing.T) {
		svc := &stubDraftService{err: pkgerrors.New(pkgerrors.CodePersistenceFailure, "service record could not be saved")}
		rec := httptest.NewRecorder()
		DraftSubmit(svc, nil).ServeHTTP(rec, draftRequest(http.MethodPost, "", params, actor))
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
		env := decodeEnvelope(t, rec)
		if env.Error == nil || env.Error.Message != "service record could not be saved" {
			t.Fatalf("unexpected error body %s", rec.Body.String())
		}
	})
}

func TestDraftCancel(t *testing.T) {
	id := uuid.New()
	svc := &stubDraftService{}
	rec := httptest.NewRecorder()
	DraftCancel(svc, nil).ServeHTTP(rec, draftRequest(http.MethodDelete, "", map[string]string{"draftID": id.String()}, uuid.Nil))
	if rec.Code != http.StatusNoContent || svc.cancelled != id {
		t.Fatalf("expected 204 cancelling %s, got %d", id, rec.Code)
	}
}
