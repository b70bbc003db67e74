package enums

import "fmt"

// DraftState tracks the lifecycle of a service record draft session.
type DraftState string

const (
	DraftStateEditing    DraftState = "editing"
	DraftStateSubmitting DraftState = "submitting"
	DraftStateCommitted  DraftState = "committed"
	DraftStateFailed     DraftState = "failed"
	DraftStateAbandoned  DraftState = "abandoned"
)

var validDraftStates = []DraftState{
	DraftStateEditing,
	DraftStateSubmitting,
	DraftStateCommitted,
	DraftStateFailed,
	DraftStateAbandoned,
}

// String implements fmt.Stringer.
func (d DraftState) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DraftState.
func (d DraftState) IsValid() bool {
	for _, candidate := range validDraftStates {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (d DraftState) IsTerminal() bool {
	return d == DraftStateCommitted || d == DraftStateAbandoned
}

// ParseDraftState converts raw input into a DraftState.
func ParseDraftState(value string) (DraftState, error) {
	for _, candidate := range validDraftStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid draft state %q", value)
}
