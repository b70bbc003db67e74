package drafts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/fleetshop-backend/internal/auth"
	"github.com/angelmondragon/fleetshop-backend/internal/servicerecords"
	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	"github.com/angelmondragon/fleetshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
	"github.com/angelmondragon/fleetshop-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Service runs the draft reservation workflow.
type Service interface {
	Open(ctx context.Context, actorID uuid.UUID, input OpenDraftInput) (*DraftView, error)
	Get(ctx context.Context, id uuid.UUID) (*DraftView, error)
	Reserve(ctx context.Context, id uuid.UUID, input ReserveInput) (*DraftView, error)
	Release(ctx context.Context, id, partID uuid.UUID, qty int) (*DraftView, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateDraftInput) (*DraftView, error)
	SetServiceType(ctx context.Context, id uuid.UUID, serviceType string) (*DraftView, error)
	ToggleTask(ctx context.Context, id uuid.UUID, task string) (*DraftView, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	Submit(ctx context.Context, id, actorID uuid.UUID) (*CommitResult, error)
}

type inventory interface {
	PartSource
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (*models.Part, error)
}

type vehicleFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
}

type recordWriter interface {
	Create(ctx context.Context, record *models.ServiceRecord) (*models.ServiceRecord, error)
}

type checklistSource interface {
	GetChecklist(ctx context.Context, vehicleID uuid.UUID, serviceType string) ([]string, error)
}

type identitySource interface {
	CurrentUser(ctx context.Context, userID uuid.UUID) (*auth.Identity, error)
}

type lowStockNotifier interface {
	NotifyIfLow(ctx context.Context, part *models.Part) bool
}

// ServiceParams bundles the draft service collaborators. Identity, Notifier
// and Metrics are optional.
type ServiceParams struct {
	Store      SessionStore
	Locker     Locker
	Parts      inventory
	Vehicles   vehicleFinder
	Records    recordWriter
	Checklists checklistSource
	Identity   identitySource
	Notifier   lowStockNotifier
	Metrics    *metrics.DraftMetrics
	Logger     *logger.Logger
}

type service struct {
	store      SessionStore
	locker     Locker
	parts      inventory
	vehicles   vehicleFinder
	records    recordWriter
	checklists checklistSource
	identity   identitySource
	notifier   lowStockNotifier
	metrics    *metrics.DraftMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService validates the required collaborators.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Store == nil:
		return nil, fmt.Errorf("draft session store required")
	case params.Locker == nil:
		return nil, fmt.Errorf("draft locker required")
	case params.Parts == nil:
		return nil, fmt.Errorf("part inventory required")
	case params.Vehicles == nil:
		return nil, fmt.Errorf("vehicle finder required")
	case params.Records == nil:
		return nil, fmt.Errorf("service record writer required")
	case params.Checklists == nil:
		return nil, fmt.Errorf("checklist source required")
	}
	return &service{
		store:      params.Store,
		locker:     params.Locker,
		parts:      params.Parts,
		vehicles:   params.Vehicles,
		records:    params.Records,
		checklists: params.Checklists,
		identity:   params.Identity,
		notifier:   params.Notifier,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

func (s *service) Open(ctx context.Context, actorID uuid.UUID, input OpenDraftInput) (*DraftView, error) {
	if input.VehicleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle_id is required")
	}
	if _, err := s.vehicles.FindByID(ctx, input.VehicleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDataUnavailable, err, "load vehicle")
	}

	snap, err := LoadSnapshot(ctx, s.parts)
	if err != nil {
		return nil, err
	}

	session := NewSession(input.VehicleID, actorID, snap, s.now().UTC())
	ctx = s.withDraft(ctx, session.ID)
	if input.Date != nil {
		if err := session.Draft.SetDate(*input.Date); err != nil {
			return nil, err
		}
	}
	s.defaultTechnician(ctx, session, actorID)
	if input.ServiceType != nil {
		session.Draft.SetServiceType(*input.ServiceType)
		session.Checklist = s.fetchChecklist(ctx, session)
	}

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	s.metrics.IncOpened()
	s.info(ctx, "draft.opened")
	return viewOf(session), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*DraftView, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return viewOf(session), nil
}

func (s *service) Reserve(ctx context.Context, id uuid.UUID, input ReserveInput) (*DraftView, error) {
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}
	return s.mutate(ctx, id, func(session *Session) error {
		err := session.Draft.Reserve(session.Snapshot, input.PartID, qty)
		if err != nil {
			s.metrics.IncReservation(string(codeOf(err)))
			return err
		}
		s.metrics.IncReservation("ok")
		return nil
	})
}

func (s *service) Release(ctx context.Context, id, partID uuid.UUID, qty int) (*DraftView, error) {
	if qty == 0 {
		qty = 1
	}
	return s.mutate(ctx, id, func(session *Session) error {
		return session.Draft.Release(session.Snapshot, partID, qty)
	})
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateDraftInput) (*DraftView, error) {
	return s.mutate(ctx, id, func(session *Session) error {
		d := session.Draft
		if input.Date != nil {
			if err := d.SetDate(*input.Date); err != nil {
				return err
			}
		}
		if input.Mileage != nil {
			if err := d.SetMileage(*input.Mileage); err != nil {
				return err
			}
		}
		if input.Technician != nil {
			d.SetTechnician(*input.Technician)
		}
		if input.Notes != nil {
			d.SetNotes(*input.Notes)
		}
		if input.SelectedTasks != nil {
			if err := checkTasks(session.Checklist, *input.SelectedTasks); err != nil {
				return err
			}
			d.SetSelectedTasks(*input.SelectedTasks)
		}
		return nil
	})
}

func (s *service) SetServiceType(ctx context.Context, id uuid.UUID, serviceType string) (*DraftView, error) {
	return s.mutate(ctx, id, func(session *Session) error {
		session.Draft.SetServiceType(serviceType)
		session.Checklist = s.fetchChecklist(ctx, session)
		return nil
	})
}

func (s *service) ToggleTask(ctx context.Context, id uuid.UUID, task string) (*DraftView, error) {
	return s.mutate(ctx, id, func(session *Session) error {
		task = strings.TrimSpace(task)
		if task == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "task is required")
		}
		if err := checkTasks(session.Checklist, []string{task}); err != nil {
			return err
		}
		session.Draft.ToggleTask(task)
		return nil
	})
}

// Cancel releases every reservation and discards the session. No inventory
// rows are written.
func (s *service) Cancel(ctx context.Context, id uuid.UUID) error {
	ctx = s.withDraft(ctx, id)
	release, err := s.lock(ctx, id)
	if err != nil {
		return err
	}
	defer s.unlock(ctx, release)

	session, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := session.Abandon(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discard draft session")
	}
	s.metrics.IncAbandoned()
	s.info(ctx, "draft.abandoned")
	return nil
}

// Submit persists the record and then decrements stock line by line. Once
// the record is written the session is committed even if decrements fail.
// From BeginSubmit on, work runs detached from the caller's cancellation: a
// client that goes away mid-commit does not abort the record write or the
// decrements.
func (s *service) Submit(ctx context.Context, id, actorID uuid.UUID) (*CommitResult, error) {
	ctx = s.withDraft(ctx, id)
	release, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, release)

	started := s.now()
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.State == enums.DraftStateSubmitting || session.State.IsTerminal() {
		return nil, stateConflict(session.State, "be submitted")
	}

	record, err := session.Draft.ToPersistable()
	if err != nil {
		if session.State == enums.DraftStateFailed {
			_ = session.Editable()
			_ = s.save(ctx, session)
		}
		s.metrics.ObserveCommit(enums.CommitOutcomeInvalid.String(), s.now().Sub(started))
		return nil, err
	}
	if actorID != uuid.Nil {
		record.CreatedBy = &actorID
	}

	if err := session.BeginSubmit(); err != nil {
		return nil, err
	}
	// Persisted so a repeated Submit is rejected even if retire fails.
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	commitCtx := context.WithoutCancel(ctx)

	created, err := s.records.Create(commitCtx, record)
	if err != nil {
		_ = session.MarkFailed(err.Error())
		if saveErr := s.save(commitCtx, session); saveErr != nil {
			s.error(ctx, "draft.save_after_failure", saveErr)
		}
		s.metrics.ObserveCommit(enums.CommitOutcomeFailed.String(), s.now().Sub(started))
		s.error(ctx, "draft.commit.record_write_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "service record could not be saved")
	}

	failed, decrementErr := s.decrementLines(commitCtx, session.Draft.Lines)
	_ = session.MarkCommitted()
	s.retire(commitCtx, session)

	result := &CommitResult{
		Record:      servicerecords.FromModel(created),
		FailedParts: failed,
		Message:     "service record saved",
	}
	outcome := enums.CommitOutcomeCommitted
	if len(failed) > 0 {
		outcome = enums.CommitOutcomePartial
		result.Partial = true
		result.Message = fmt.Sprintf("service record saved, but %d part(s) could not be updated", len(failed))
		s.error(s.withField(ctx, "failed_parts", len(failed)), "draft.commit.partial", decrementErr)
	}
	s.metrics.ObserveCommit(outcome.String(), s.now().Sub(started))
	s.info(s.withField(ctx, "service_record_id", created.ID.String()), "draft.committed")
	return result, nil
}

// retire stores the committed tombstone and then discards the session. If
// the delete fails the tombstone still rejects further edits and submits
// until it expires.
func (s *service) retire(ctx context.Context, session *Session) {
	if err := s.save(ctx, session); err != nil {
		s.error(ctx, "draft.save_committed", err)
	}
	if err := s.store.Delete(ctx, session.ID); err != nil {
		s.error(ctx, "draft.discard_after_commit", err)
	}
}

// decrementLines issues one independent decrement per line, in order, and
// collects the failures.
func (s *service) decrementLines(ctx context.Context, lines []Line) ([]FailedPart, error) {
	failed := []FailedPart{}
	var combined error
	for _, line := range lines {
		part, err := s.parts.DecrementStock(ctx, line.PartID, line.Quantity)
		if err != nil {
			combined = multierr.Append(combined, fmt.Errorf("decrement %s: %w", line.PartID, err))
			failed = append(failed, FailedPart{
				PartID:      line.PartID,
				OEMNumber:   line.OEMNumber,
				Description: line.Description,
				Quantity:    line.Quantity,
				Reason:      err.Error(),
			})
			continue
		}
		if s.notifier != nil {
			s.notifier.NotifyIfLow(ctx, part)
		}
	}
	return failed, combined
}

// mutate runs fn under the draft lock, persisting the session only when fn succeeds.
func (s *service) mutate(ctx context.Context, id uuid.UUID, fn func(*Session) error) (*DraftView, error) {
	ctx = s.withDraft(ctx, id)
	release, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, release)

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := session.Editable(); err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return viewOf(session), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*Session, error) {
	session, err := s.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "draft not found or expired")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft session")
	}
	return session, nil
}

func (s *service) save(ctx context.Context, session *Session) error {
	session.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save draft session")
	}
	return nil
}

func (s *service) lock(ctx context.Context, id uuid.UUID) (func(context.Context) error, error) {
	release, err := s.locker.Lock(ctx, id.String())
	if err != nil {
		if errors.Is(err, ErrLockBusy) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "draft is being modified by another request")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock draft")
	}
	return release, nil
}

func (s *service) unlock(ctx context.Context, release func(context.Context) error) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.error(ctx, "draft.unlock_failed", err)
	}
}

func (s *service) fetchChecklist(ctx context.Context, session *Session) []string {
	if session.Draft.ServiceType == nil {
		return []string{}
	}
	tasks, err := s.checklists.GetChecklist(ctx, session.VehicleID, *session.Draft.ServiceType)
	if err != nil {
		s.error(ctx, "draft.checklist_unavailable", err)
		return []string{}
	}
	return tasks
}

func (s *service) defaultTechnician(ctx context.Context, session *Session, actorID uuid.UUID) {
	if s.identity == nil || actorID == uuid.Nil {
		return
	}
	identity, err := s.identity.CurrentUser(ctx, actorID)
	if err != nil {
		s.error(ctx, "draft.identity_unavailable", err)
		return
	}
	if identity != nil {
		session.Draft.SetTechnician(identity.DisplayName)
	}
}

func checkTasks(checklist, tasks []string) error {
	allowed := make(map[string]struct{}, len(checklist))
	for _, t := range checklist {
		allowed[t] = struct{}{}
	}
	for _, t := range tasks {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := allowed[t]; !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "task is not on the checklist").
				WithDetails(map[string]any{"task": t})
		}
	}
	return nil
}

func codeOf(err error) pkgerrors.Code {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code()
	}
	return pkgerrors.CodeInternal
}

func (s *service) withDraft(ctx context.Context, id uuid.UUID) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithDraftID(ctx, id.String())
}

func (s *service) withField(ctx context.Context, key string, value any) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithField(ctx, key, value)
}

func (s *service) info(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}

func (s *service) error(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}
