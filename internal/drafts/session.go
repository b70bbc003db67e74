package drafts

import (
	"time"

	"github.com/angelmondragon/fleetshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/google/uuid"
)

// Session is one operator's editing session: the draft, the inventory
// snapshot it reserves against, and the checklist for its service type.
type Session struct {
	ID        uuid.UUID        `json:"id"`
	State     enums.DraftState `json:"state"`
	VehicleID uuid.UUID        `json:"vehicle_id"`
	Snapshot  Snapshot         `json:"snapshot"`
	Draft     *Draft           `json:"draft"`
	Checklist []string         `json:"checklist"`
	CreatedBy uuid.UUID        `json:"created_by"`
	LastError string           `json:"last_error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewSession starts an editing session over a loaded snapshot.
func NewSession(vehicleID, createdBy uuid.UUID, snap Snapshot, now time.Time) *Session {
	if snap == nil {
		snap = Snapshot{}
	}
	return &Session{
		ID:        uuid.New(),
		State:     enums.DraftStateEditing,
		VehicleID: vehicleID,
		Snapshot:  snap,
		Draft:     NewDraft(vehicleID),
		Checklist: []string{},
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func stateConflict(from enums.DraftState, action string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "draft cannot "+action+" while "+from.String()).
		WithDetails(map[string]any{"state": from})
}

// Editable moves a failed session back to editing and rejects every state
// other than editing.
func (s *Session) Editable() error {
	switch s.State {
	case enums.DraftStateEditing:
		return nil
	case enums.DraftStateFailed:
		s.State = enums.DraftStateEditing
		s.LastError = ""
		return nil
	default:
		return stateConflict(s.State, "be edited")
	}
}

func (s *Session) BeginSubmit() error {
	if s.State != enums.DraftStateEditing && s.State != enums.DraftStateFailed {
		return stateConflict(s.State, "be submitted")
	}
	s.State = enums.DraftStateSubmitting
	s.LastError = ""
	return nil
}

func (s *Session) MarkCommitted() error {
	if s.State != enums.DraftStateSubmitting {
		return stateConflict(s.State, "commit")
	}
	s.State = enums.DraftStateCommitted
	return nil
}

// MarkFailed keeps the ledger and snapshot so the operator can retry.
func (s *Session) MarkFailed(reason string) error {
	if s.State != enums.DraftStateSubmitting {
		return stateConflict(s.State, "fail")
	}
	s.State = enums.DraftStateFailed
	s.LastError = reason
	return nil
}

// Abandon releases every reservation back to the snapshot.
func (s *Session) Abandon() error {
	if s.State != enums.DraftStateEditing && s.State != enums.DraftStateFailed {
		return stateConflict(s.State, "be cancelled")
	}
	s.Draft.ReleaseAll(s.Snapshot)
	s.State = enums.DraftStateAbandoned
	return nil
}
