package pipeline

import (
	"context"
	"fmt"

	"github.com/ehr/admissions/internal/domain/admission"
	"github.com/ehr/admissions/internal/domain/contact"
)

// assemble converts the final contact list into admission episodes and hands
// them to the persistence collaborator. Contacts whose intervals touch after
// gap-bridging (one's end equals the next's start) are unioned into a single
// episode; everything else becomes its own admission. The episode keeps the
// hospital and department of its earliest contact. Afterwards every absorbed
// source row is marked imported SUCCESS and every dropped row FAILURE.
func (r *Runner) assemble(ctx context.Context, b *Batch, st *Stats) error {
	admissions := buildAdmissions(b)
	st.AdmissionsCreated += len(admissions)

	if len(admissions) > 0 {
		if err := r.admissions.CreateBatch(ctx, b.PatientID, admissions); err != nil {
			return fmt.Errorf("persist admissions: %w", err)
		}
	}

	for _, a := range admissions {
		for _, ref := range a.SourceRefs {
			if err := r.contacts.MarkImported(ctx, ref, contact.OutcomeSuccess); err != nil {
				return err
			}
		}
	}
	for _, ref := range b.Failed {
		if err := r.contacts.MarkImported(ctx, ref, contact.OutcomeFailure); err != nil {
			return err
		}
	}
	return nil
}

func buildAdmissions(b *Batch) []*admission.Admission {
	cs := b.Contacts
	sortByPeriod(cs)

	var admissions []*admission.Admission
	var open *admission.Admission
	for _, c := range cs {
		end := c.Start
		if c.End != nil {
			end = *c.End
		}
		if open != nil && open.End.Equal(c.Start) {
			if end.After(open.End) {
				open.End = end
			}
			open.SourceRefs = contact.MergeRefs(open.SourceRefs, c.MergedRefs)
			open.Diagnoses = contact.MergeDiagnoses(open.Diagnoses, c.Diagnoses)
			open.Procedures = contact.MergeProcedures(open.Procedures, c.Procedures)
			continue
		}
		open = &admission.Admission{
			PatientID:      b.PatientID,
			HospitalCode:   c.HospitalCode,
			DepartmentCode: c.DepartmentCode,
			Start:          c.Start,
			End:            end,
			SourceRefs:     append([]contact.SourceRef(nil), c.MergedRefs...),
			Diagnoses:      contact.MergeDiagnoses(nil, c.Diagnoses),
			Procedures:     contact.MergeProcedures(nil, c.Procedures),
		}
		admissions = append(admissions, open)
	}
	return admissions
}
