package pipeline

import (
	"context"
	"fmt"

	"github.com/ehr/admissions/internal/domain/contact"
	"github.com/ehr/admissions/internal/domain/rulelog"
)

// resolveSameStartContacts handles contacts sharing an identical start
// timestamp. Two rows claiming the same interval at different locations
// contradict each other and are both dropped with an audit record each. Rows
// at the same location keep the one with the later end, merging the other's
// data into it. Different location with different ends is legitimate
// (transfer registered on the same timestamp) and both survive.
func (r *Runner) resolveSameStartContacts(ctx context.Context, b *Batch, st *Stats) error {
	cs := b.Contacts
	sortByPeriod(cs)

	for i := 1; i < len(cs); {
		prev, cur := cs[i-1], cs[i]
		if !prev.Start.Equal(cur.Start) {
			i++
			continue
		}

		switch {
		case prev.SamePeriod(cur) && !prev.SamePlace(cur):
			if err := r.logContradiction(ctx, prev, cur); err != nil {
				return err
			}
			b.Failed = contact.MergeRefs(b.Failed, prev.MergedRefs)
			b.Failed = contact.MergeRefs(b.Failed, cur.MergedRefs)
			st.ContradictionsDropped += 2
			st.ContactsFailed += 2
			cs = append(cs[:i-1], cs[i+1:]...)
			if i > 1 {
				i--
			}

		case prev.SamePlace(cur):
			// Sorted order puts the later end on cur; keep it.
			cur.Absorb(prev)
			cs = append(cs[:i-1], cs[i:]...)
			st.CollisionsResolved++
			if i > 1 {
				i--
			}

		default:
			i++
		}
	}

	// Collision resolution can reintroduce a value-equal pair.
	b.Contacts = mergeValueDuplicates(cs, st)
	return nil
}

func (r *Runner) logContradiction(ctx context.Context, prev, cur *contact.Contact) error {
	for _, c := range []*contact.Contact{prev, cur} {
		desc := fmt.Sprintf("contact contradicts %s: identical period, different location (%s/%s vs %s/%s)",
			otherRef(c, prev, cur), prev.HospitalCode, prev.DepartmentCode, cur.HospitalCode, cur.DepartmentCode)
		if err := r.errlog.Log(ctx, &rulelog.Entry{
			Ref:         c.Ref,
			Description: desc,
			RuleName:    ruleResolveSameStart,
		}); err != nil {
			return err
		}
	}
	return nil
}

func otherRef(c, prev, cur *contact.Contact) contact.SourceRef {
	if c == prev {
		return cur.Ref
	}
	return prev.Ref
}
