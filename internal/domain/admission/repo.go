package admission

import "context"

// Repository persists assembled admissions.
type Repository interface {
	// CreateBatch stores every admission for one patient in a single
	// transaction. Previously imported admissions for the patient are
	// replaced, since a patient is reassembled from scratch on every run.
	CreateBatch(ctx context.Context, patientID string, admissions []*Admission) error
}
