package domain

// RecordFailure identifies one remote contact or source record whose call failed.
type RecordFailure struct {
	Record string
	Err    error
}

type SyncOutcome struct {
	Listed         int
	Deleted        int
	Created        int
	DeleteFailures []RecordFailure
	CreateFailures []RecordFailure
}

func (o *SyncOutcome) DeleteAttempts() int {
	return o.Deleted + len(o.DeleteFailures)
}

func (o *SyncOutcome) CreateAttempts() int {
	return o.Created + len(o.CreateFailures)
}

func (o *SyncOutcome) Failed() int {
	return len(o.DeleteFailures) + len(o.CreateFailures)
}
