package pipeline

import (
	"fmt"

	"github.com/ehr/admissions/internal/domain/contact"
)

// AbortError is the one non-local control transfer in the pipeline: the rule
// that raises it stops all further processing for the patient's batch, and
// every contact in the batch is marked FAILURE. It is propagated as an
// ordinary error value, never by panicking.
type AbortError struct {
	RuleName string
	Ref      contact.SourceRef
	Reason   string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%s aborted on %s: %s", e.RuleName, e.Ref, e.Reason)
}
