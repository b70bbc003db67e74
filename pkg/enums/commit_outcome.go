package enums

// CommitOutcome labels how a draft submission ended.
type CommitOutcome string

const (
	CommitOutcomeCommitted CommitOutcome = "committed"
	CommitOutcomePartial   CommitOutcome = "partial"
	CommitOutcomeFailed    CommitOutcome = "failed"
	CommitOutcomeInvalid   CommitOutcome = "invalid"
)

// String implements fmt.Stringer.
func (c CommitOutcome) String() string {
	return string(c)
}
