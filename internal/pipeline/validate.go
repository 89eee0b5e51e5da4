package pipeline

import (
	"context"

	"github.com/ehr/admissions/internal/domain/contact"
	"github.com/ehr/admissions/internal/domain/rulelog"
)

// validateContacts rejects contacts missing a mandatory field. A rejected
// contact is logged to the audit trail, counted, excluded from further
// processing and later marked FAILURE. For the sentinel hospital code the
// rule completes the code with the 3-letter initials from the external
// registry lookup.
func (r *Runner) validateContacts(ctx context.Context, b *Batch, st *Stats) error {
	kept := b.Contacts[:0]
	for _, c := range b.Contacts {
		if reason := missingField(c); reason != "" {
			st.ContactsFailed++
			b.Failed = contact.MergeRefs(b.Failed, c.MergedRefs)
			if err := r.errlog.Log(ctx, &rulelog.Entry{
				Ref:         c.Ref,
				Description: reason,
				RuleName:    ruleValidateContacts,
			}); err != nil {
				return err
			}
			continue
		}

		if r.cfg.SentinelHospitalCode != "" && c.HospitalCode == r.cfg.SentinelHospitalCode {
			// Counted regardless of whether the lookup succeeds.
			st.HospitalCodesResolved++
			initials, err := r.resolver.ResolveInitials(ctx, c.HospitalCode, c.DepartmentCode, c.Start)
			if err != nil || initials == "" {
				r.log.Warn().Err(err).
					Str("ref", c.Ref.String()).
					Str("department_code", c.DepartmentCode).
					Msg("hospital initials lookup failed")
			} else {
				c.HospitalCode += initials
			}
		}

		r.collectUnknownCodes(c)
		kept = append(kept, c)
	}
	b.Contacts = kept
	return nil
}

func missingField(c *contact.Contact) string {
	switch {
	case c.Ref.IsZero():
		return "contact has no source reference"
	case c.PatientID == "":
		return "contact has no patient identifier"
	case c.HospitalCode == "":
		return "contact has no hospital code"
	case c.DepartmentCode == "":
		return "contact has no department code"
	case c.Start.IsZero():
		return "contact has no start timestamp"
	}
	return ""
}

func (r *Runner) collectUnknownCodes(c *contact.Contact) {
	if r.alerts == nil {
		return
	}
	for _, d := range c.Diagnoses {
		if d.Type != "" && !r.cfg.KnownDiagnosisTypes[d.Type] {
			r.alerts.RecordUnknownCode("diagnosis", d.Type)
		}
	}
	for _, p := range c.Procedures {
		if p.Type != "" && !r.cfg.KnownProcedureTypes[p.Type] {
			r.alerts.RecordUnknownCode("procedure", p.Type)
		}
	}
}
