package pipeline

import (
	"context"
)

// bridgeGaps closes short gaps between sequential contacts so they form one
// continuous episode: previous's end is pulled forward to current's start.
// The allowed gap is configured per hospital relation (shorter within one
// hospital, longer across hospitals), inclusive at the upper bound. A zero or
// negative gap is not a gap; overlaps were resolved upstream. Only timestamps
// move here; rows are merged at assembly when their intervals touch.
func (r *Runner) bridgeGaps(_ context.Context, b *Batch, st *Stats) error {
	cs := b.Contacts
	sortByPeriod(cs)

	for i := 1; i < len(cs); i++ {
		prev, cur := cs[i-1], cs[i]
		if prev.End == nil {
			continue
		}
		gap := cur.Start.Sub(*prev.End)
		if gap <= 0 {
			continue
		}
		threshold := r.cfg.OtherHospitalGap
		if prev.HospitalCode == cur.HospitalCode {
			threshold = r.cfg.SameHospitalGap
		}
		if gap <= threshold {
			end := cur.Start
			prev.End = &end
			st.GapsBridged++
		}
	}
	return nil
}
