package pipeline

import (
	"context"

	"github.com/ehr/admissions/internal/domain/contact"
)

// mergeDuplicates folds value-identical contacts into one. Two registry rows
// describing the same stay differ only in their source reference, which is
// excluded from the value key, so they land in the same group. The first
// record seen stays as representative and absorbs the rest.
func (r *Runner) mergeDuplicates(_ context.Context, b *Batch, st *Stats) error {
	b.Contacts = mergeValueDuplicates(b.Contacts, st)
	return nil
}

// mergeValueDuplicates is the shared value-equality merge. The overlap and
// same-start rules run it again after their own edits, because splitting or
// collision resolution can reintroduce a duplicate.
func mergeValueDuplicates(cs []*contact.Contact, st *Stats) []*contact.Contact {
	reps := make(map[contact.Key]*contact.Contact, len(cs))
	out := cs[:0]
	for _, c := range cs {
		key := c.ValueKey()
		if rep, ok := reps[key]; ok {
			rep.Absorb(c)
			st.DuplicatesMerged++
			continue
		}
		reps[key] = c
		out = append(out, c)
	}
	return out
}
