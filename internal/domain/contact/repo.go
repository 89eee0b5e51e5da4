package contact

import (
	"context"
)

// Repository is the ingestion boundary against the source clinical registry.
type Repository interface {
	// PatientsWithUnprocessed returns the patient identifiers that have at
	// least one contact row not yet marked imported.
	PatientsWithUnprocessed(ctx context.Context) ([]string, error)

	// FetchUnprocessed returns every contact for the patient, regardless of
	// prior failures; a patient is reprocessed whenever any new contact for
	// them appears.
	FetchUnprocessed(ctx context.Context, patientID string) ([]*Contact, error)

	// MarkImported records the import outcome for one source row.
	MarkImported(ctx context.Context, ref SourceRef, outcome Outcome) error
}
