package pipeline

import (
	"context"
	"time"
)

// normalizeDates resolves the sentinel timestamps left by the source
// registries. An exact-midnight end means "no discharge time recorded" and is
// advanced one full day, i.e. discharged at the end of that calendar day. A
// missing end is treated the same way, anchored on the start's calendar day.
// Midnight procedure timestamps are advanced 12 hours ("around noon"). Pure
// per-record transforms; nothing is rejected here.
func (r *Runner) normalizeDates(_ context.Context, b *Batch, st *Stats) error {
	for _, c := range b.Contacts {
		if c.End == nil {
			end := startOfDay(c.Start)
			c.End = &end
		}
		if atMidnight(*c.End) {
			end := c.End.Add(24 * time.Hour)
			c.End = &end
			st.EndTimesNormalized++
		}
		for i := range c.Procedures {
			if atMidnight(c.Procedures[i].Performed) {
				c.Procedures[i].Performed = c.Procedures[i].Performed.Add(12 * time.Hour)
				st.ProcedureTimesNormalized++
			}
		}
	}
	return nil
}

func atMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
