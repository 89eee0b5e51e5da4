package runstatus

import (
	"time"

	"github.com/google/uuid"
)

// Run outcomes.
const (
	OutcomeRunning   = "running"
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Run maps to the import_run table: one row per scheduled or manual import
// run, with a counter snapshot written when the run ends.
type Run struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	StartedAt         time.Time  `db:"started_at" json:"started_at"`
	EndedAt           *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	Outcome           string     `db:"outcome" json:"outcome"`
	PatientsProcessed int        `db:"patients_processed" json:"patients_processed"`
	PatientsAborted   int        `db:"patients_aborted" json:"patients_aborted"`
	ContactsSeen      int        `db:"contacts_seen" json:"contacts_seen"`
	ContactsFailed    int        `db:"contacts_failed" json:"contacts_failed"`
	AdmissionsCreated int        `db:"admissions_created" json:"admissions_created"`
	Error             *string    `db:"error" json:"error,omitempty"`
}
