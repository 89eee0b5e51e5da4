package pipeline

import (
	"context"
	"fmt"
)

// extendEndTimes pushes a contact's end out to its latest procedure
// timestamp. A procedure more than MaxExtension after the recorded end is
// contradictory source data and aborts the whole batch.
func (r *Runner) extendEndTimes(_ context.Context, b *Batch, st *Stats) error {
	for _, c := range b.Contacts {
		if len(c.Procedures) == 0 || c.End == nil {
			continue
		}
		latest := c.Procedures[0].Performed
		for _, p := range c.Procedures[1:] {
			if p.Performed.After(latest) {
				latest = p.Performed
			}
		}
		if !latest.After(*c.End) {
			continue
		}
		if gap := latest.Sub(*c.End); gap > r.cfg.MaxExtension {
			return &AbortError{
				RuleName: ruleExtendEndTimes,
				Ref:      c.Ref,
				Reason: fmt.Sprintf("procedure at %s is %s after contact end %s",
					latest.Format("2006-01-02 15:04"), gap, c.End.Format("2006-01-02 15:04")),
			}
		}
		end := latest
		c.End = &end
		st.EndTimesExtended++
	}
	return nil
}
