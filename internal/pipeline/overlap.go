package pipeline

import (
	"context"

	"github.com/ehr/admissions/internal/domain/contact"
)

// resolveOverlaps rewrites time-overlapping contacts into disjoint intervals.
// The batch is walked in (start, end) order as adjacent pairs; an overlap is
// current.start falling inside [previous.start, previous.end], boundaries
// included. Four outcomes, tried in order:
//
//  1. identical intervals, same place -> merge current into previous
//  2. same start, different place     -> previous restarts at current's end
//  3. previous strictly contains it   -> split previous around current
//  4. otherwise                       -> previous ends where current starts
//
// Same-start pairs that belong to the same-start rule pass through untouched:
// an identical period at a different location is a contradiction that rule
// must drop, and a longer stay at the same location is a collision it must
// merge. Outcome 2 keeps the legacy tie-break for the rest: with ascending
// (start, end) order the restart inverts previous whenever current ends
// later, leaving start after end. Downstream assembly depends on that exact
// behavior, so it stays.
func (r *Runner) resolveOverlaps(_ context.Context, b *Batch, st *Stats) error {
	cs := b.Contacts
	sortByPeriod(cs)

	for i := 1; i < len(cs); {
		prev, cur := cs[i-1], cs[i]
		if prev.End == nil {
			return &AbortError{
				RuleName: ruleResolveOverlaps,
				Ref:      prev.Ref,
				Reason:   "contact has no end timestamp for overlap resolution",
			}
		}
		if cur.Start.After(*prev.End) {
			i++
			continue
		}
		if cur.End == nil {
			return &AbortError{
				RuleName: ruleResolveOverlaps,
				Ref:      cur.Ref,
				Reason:   "contact has no end timestamp for overlap resolution",
			}
		}

		switch {
		case prev.SamePeriod(cur):
			if !prev.SamePlace(cur) {
				i++ // contradiction, dropped by the same-start rule
				continue
			}
			prev.Absorb(cur)
			cs = append(cs[:i], cs[i+1:]...)
			st.OverlapsMerged++

		case prev.Start.Equal(cur.Start):
			if prev.SamePlace(cur) {
				i++ // collision, merged by the same-start rule
				continue
			}
			prev.Start = *cur.End
			st.OverlapsShrunk++
			i++

		case prev.Start.Before(cur.Start) && prev.End.After(*cur.End):
			// The overlapped span belongs to both rows; current keeps the
			// merged view while the head and tail pieces stay previous's.
			tail := prev.Clone()
			tail.Start = *cur.End
			cur.Absorb(prev)
			prevEnd := cur.Start
			prev.End = &prevEnd
			cs = insertByPeriod(cs, tail, i+1)
			st.OverlapsSplit++
			i++

		default: // cur.End >= prev.End
			prevEnd := cur.Start
			prev.End = &prevEnd
			st.OverlapsTrimmed++
			i++
		}
	}

	// Splitting can leave two rows on the exact same interval.
	b.Contacts = mergeValueDuplicates(cs, st)
	return nil
}

// insertByPeriod places c into its (start, end) position, searching from the
// given index; everything before it is already ordered.
func insertByPeriod(cs []*contact.Contact, c *contact.Contact, from int) []*contact.Contact {
	pos := from
	for pos < len(cs) && periodLess(cs[pos], c) {
		pos++
	}
	cs = append(cs, nil)
	copy(cs[pos+1:], cs[pos:])
	cs[pos] = c
	return cs
}
