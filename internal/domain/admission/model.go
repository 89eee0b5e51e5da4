package admission

import (
	"time"

	"github.com/google/uuid"

	"github.com/ehr/admissions/internal/domain/contact"
)

// Admission is one canonical, time-disjoint clinical stay assembled from one
// or more source contacts. It maps to the admission table.
type Admission struct {
	ID             uuid.UUID           `db:"id" json:"id"`
	PatientID      string              `db:"patient_id" json:"patient_id"`
	HospitalCode   string              `db:"hospital_code" json:"hospital_code"`
	DepartmentCode string              `db:"department_code" json:"department_code"`
	Start          time.Time           `db:"period_start" json:"period_start"`
	End            time.Time           `db:"period_end" json:"period_end"`
	SourceRefs     []contact.SourceRef `json:"source_refs"`
	Diagnoses      []contact.Diagnosis `json:"diagnoses,omitempty"`
	Procedures     []contact.Procedure `json:"procedures,omitempty"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
}
