package contact

import (
	"fmt"
	"time"
)

// Outcome is the per-source-row import result recorded when a run finishes.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// SourceRef identifies one row in an originating registry. Contacts can be
// delivered by more than one source system, so the row id alone is not unique.
type SourceRef struct {
	ID       string `db:"source_id" json:"source_id"`
	Database string `db:"source_db" json:"source_db"`
}

// IsZero reports whether the reference is missing its row id.
func (r SourceRef) IsZero() bool { return r.ID == "" }

func (r SourceRef) String() string {
	if r.Database == "" {
		return r.ID
	}
	return fmt.Sprintf("%s@%s", r.ID, r.Database)
}

// Diagnosis is one coded diagnosis attached to a contact.
type Diagnosis struct {
	Code              string `db:"code" json:"code"`
	Type              string `db:"type" json:"type"`
	SupplementaryCode string `db:"supplementary_code" json:"supplementary_code,omitempty"`
}

// Procedure is one coded procedure attached to a contact. Procedures carry
// their own hospital/department and a performed timestamp, which drives the
// end-time extension rule.
type Procedure struct {
	Code              string    `db:"code" json:"code"`
	Type              string    `db:"type" json:"type"`
	SupplementaryCode string    `db:"supplementary_code" json:"supplementary_code,omitempty"`
	HospitalCode      string    `db:"hospital_code" json:"hospital_code,omitempty"`
	DepartmentCode    string    `db:"department_code" json:"department_code,omitempty"`
	Performed         time.Time `db:"performed" json:"performed"`
}

// Contact is one reported hospital-stay fragment from a source registry.
// Fragments for the same stay may arrive duplicated, overlapping, or with
// missing fields; the pipeline reduces them to canonical admissions.
type Contact struct {
	Ref            SourceRef   `json:"ref"`
	PatientID      string      `db:"patient_id" json:"patient_id"`
	HospitalCode   string      `db:"hospital_code" json:"hospital_code"`
	DepartmentCode string      `db:"department_code" json:"department_code"`
	Start          time.Time   `db:"period_start" json:"period_start"`
	End            *time.Time  `db:"period_end" json:"period_end,omitempty"`
	Diagnoses      []Diagnosis `json:"diagnoses,omitempty"`
	Procedures     []Procedure `json:"procedures,omitempty"`

	// MergedRefs holds every source row absorbed into this contact by the
	// dedup and merge rules. It starts as the singleton {Ref}.
	MergedRefs []SourceRef `json:"merged_refs,omitempty"`
}

// Key is the composite value-equality key used for dedup and collision
// grouping. Source references are deliberately excluded so that two registry
// rows describing the same stay compare equal.
type Key struct {
	HospitalCode   string
	DepartmentCode string
	PatientID      string
	Start          int64
	End            int64 // 0 when End is nil
}

// ValueKey computes the contact's composite dedup/collision key.
func (c *Contact) ValueKey() Key {
	k := Key{
		HospitalCode:   c.HospitalCode,
		DepartmentCode: c.DepartmentCode,
		PatientID:      c.PatientID,
		Start:          c.Start.UnixNano(),
	}
	if c.End != nil {
		k.End = c.End.UnixNano()
	}
	return k
}

// SamePeriod reports whether two contacts cover the identical interval.
func (c *Contact) SamePeriod(o *Contact) bool {
	if !c.Start.Equal(o.Start) {
		return false
	}
	if c.End == nil || o.End == nil {
		return c.End == nil && o.End == nil
	}
	return c.End.Equal(*o.End)
}

// SamePlace reports whether two contacts name the same hospital and department.
func (c *Contact) SamePlace(o *Contact) bool {
	return c.HospitalCode == o.HospitalCode && c.DepartmentCode == o.DepartmentCode
}

// Absorb merges another contact's diagnoses, procedures and source references
// into this one. Duplicate list entries are dropped by value.
func (c *Contact) Absorb(o *Contact) {
	c.Diagnoses = MergeDiagnoses(c.Diagnoses, o.Diagnoses)
	c.Procedures = MergeProcedures(c.Procedures, o.Procedures)
	c.MergedRefs = MergeRefs(c.MergedRefs, o.MergedRefs)
}

// Clone returns a deep copy. The overlap rule uses it when it splits a
// contact into two pieces.
func (c *Contact) Clone() *Contact {
	cp := *c
	if c.End != nil {
		end := *c.End
		cp.End = &end
	}
	cp.Diagnoses = append([]Diagnosis(nil), c.Diagnoses...)
	cp.Procedures = append([]Procedure(nil), c.Procedures...)
	cp.MergedRefs = append([]SourceRef(nil), c.MergedRefs...)
	return &cp
}

// MergeDiagnoses appends the diagnoses from src that dst does not already
// hold, comparing by value.
func MergeDiagnoses(dst, src []Diagnosis) []Diagnosis {
	seen := make(map[Diagnosis]bool, len(dst))
	for _, d := range dst {
		seen[d] = true
	}
	for _, d := range src {
		if !seen[d] {
			seen[d] = true
			dst = append(dst, d)
		}
	}
	return dst
}

// MergeProcedures appends the procedures from src that dst does not already
// hold, comparing by value.
func MergeProcedures(dst, src []Procedure) []Procedure {
	seen := make(map[Procedure]bool, len(dst))
	for _, p := range dst {
		seen[p] = true
	}
	for _, p := range src {
		if !seen[p] {
			seen[p] = true
			dst = append(dst, p)
		}
	}
	return dst
}

// MergeRefs appends the source references from src that dst does not already
// hold.
func MergeRefs(dst, src []SourceRef) []SourceRef {
	seen := make(map[SourceRef]bool, len(dst))
	for _, r := range dst {
		seen[r] = true
	}
	for _, r := range src {
		if !seen[r] {
			seen[r] = true
			dst = append(dst, r)
		}
	}
	return dst
}
