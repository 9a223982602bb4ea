package history

import (
	"time"

	"github.com/osvaldoandrade/provision/internal/domain"
)

type Counts struct {
	Planned int
	Created int
	Skipped int
	Failed  int
	NotRun  int
	Retries int
}

// RunRecord is one entry of the run ledger.
type RunRecord struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Database       string
	SchemaVersion  string
	Fingerprint    string
	Revision       string
	State          domain.RunState
	DryRun         bool
	Counts         Counts
	FailureOp      string
	FailureTarget  string
	FailureMessage string
	Plan           domain.Plan
}

// StoredRun is a RunRecord with its plan already encoded.
type StoredRun struct {
	RunRecord
	PlanSnapshot []byte
}
