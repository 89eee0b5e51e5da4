// Package pipeline reduces a patient's raw hospital contact fragments to
// canonical, non-overlapping admission episodes. The rules form a fixed,
// ordered sequence; each rule consumes and produces the same batch container
// and reports its decisions through Stats and the business-rule error log.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/admissions/internal/domain/admission"
	"github.com/ehr/admissions/internal/domain/contact"
	"github.com/ehr/admissions/internal/domain/rulelog"
)

// Rule names recorded on business-rule errors.
const (
	ruleValidateContacts = "validateContacts"
	ruleExtendEndTimes   = "extendEndTimes"
	ruleResolveOverlaps  = "resolveOverlaps"
	ruleResolveSameStart = "resolveSameStartContacts"
)

// InitialsResolver looks up the 3-letter hospital initials for a sentinel
// hospital code via an external registry.
type InitialsResolver interface {
	ResolveInitials(ctx context.Context, hospitalCode, departmentCode string, asOf time.Time) (string, error)
}

// CodeAlerter collects classification codes the importer does not recognize,
// for a post-run notification.
type CodeAlerter interface {
	RecordUnknownCode(kind, code string)
}

// Config holds the rule thresholds.
type Config struct {
	// SameHospitalGap and OtherHospitalGap bound the gap-bridging rule;
	// comparison is inclusive at the upper bound.
	SameHospitalGap  time.Duration
	OtherHospitalGap time.Duration

	// MaxExtension is how far a procedure may push a contact's end time
	// before the batch is aborted instead.
	MaxExtension time.Duration

	// SentinelHospitalCode marks contacts whose hospital code must be
	// completed from the external registry lookup.
	SentinelHospitalCode string

	// Known classification codes; anything else is reported through the
	// CodeAlerter.
	KnownDiagnosisTypes map[string]bool
	KnownProcedureTypes map[string]bool

	// Workers bounds concurrent per-patient processing.
	Workers int
}

// Batch is one patient's contacts flowing through the rule sequence.
type Batch struct {
	PatientID string
	Contacts  []*contact.Contact

	// Failed collects the source references dropped by validation and
	// contradiction handling; they are marked FAILURE at the end.
	Failed []contact.SourceRef
}

// Runner drives the rule sequence. Patients are independent, so Run processes
// them on a bounded worker pool; all eight stages for one patient execute
// synchronously in order.
type Runner struct {
	contacts   contact.Repository
	admissions admission.Repository
	errlog     rulelog.Repository
	resolver   InitialsResolver
	alerts     CodeAlerter
	cfg        Config
	log        zerolog.Logger
}

func NewRunner(contacts contact.Repository, admissions admission.Repository,
	errlog rulelog.Repository, resolver InitialsResolver, cfg Config, log zerolog.Logger) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Runner{
		contacts:   contacts,
		admissions: admissions,
		errlog:     errlog,
		resolver:   resolver,
		cfg:        cfg,
		log:        log,
	}
}

// SetCodeAlerter attaches an optional unknown-classification-code collector.
func (r *Runner) SetCodeAlerter(a CodeAlerter) { r.alerts = a }

// Run processes every patient that has unprocessed contacts and returns the
// merged statistics for the run.
func (r *Runner) Run(ctx context.Context) (*Stats, error) {
	patients, err := r.contacts.PatientsWithUnprocessed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return r.RunPatients(ctx, patients), nil
}

// RunPatients processes the given patients on a bounded worker pool. Each
// worker accumulates into its own Stats, merged under a lock at the end of
// every patient, so rules stay free of shared state.
func (r *Runner) RunPatients(ctx context.Context, patientIDs []string) *Stats {
	total := &Stats{}
	var mu sync.Mutex
	sem := make(chan struct{}, r.cfg.Workers)
	var wg sync.WaitGroup

	for _, pid := range patientIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(pid string) {
			defer wg.Done()
			defer func() { <-sem }()

			st, err := r.ProcessPatient(ctx, pid)
			if err != nil {
				r.log.Error().Err(err).Str("patient_id", pid).Msg("patient import failed")
			}
			mu.Lock()
			total.Merge(st)
			mu.Unlock()
		}(pid)
	}
	wg.Wait()
	return total
}

// ProcessPatient runs the full rule sequence for one patient. Rule aborts are
// absorbed here: the batch is marked FAILURE and a nil error is returned, so
// one bad patient never stops the run. A non-nil error means infrastructure
// failure (fetch, persist, audit log).
func (r *Runner) ProcessPatient(ctx context.Context, patientID string) (*Stats, error) {
	st := &Stats{}

	cs, err := r.contacts.FetchUnprocessed(ctx, patientID)
	if err != nil {
		return st, fmt.Errorf("fetch contacts: %w", err)
	}
	b := &Batch{PatientID: patientID, Contacts: cs}
	st.ContactsSeen += len(cs)

	stages := []struct {
		name string
		fn   func(context.Context, *Batch, *Stats) error
	}{
		{ruleValidateContacts, r.validateContacts},
		{"normalizeDates", r.normalizeDates},
		{ruleExtendEndTimes, r.extendEndTimes},
		{"mergeDuplicates", r.mergeDuplicates},
		{ruleResolveOverlaps, r.resolveOverlaps},
		{ruleResolveSameStart, r.resolveSameStartContacts},
		{"bridgeGaps", r.bridgeGaps},
	}

	for _, stage := range stages {
		if err := stage.fn(ctx, b, st); err != nil {
			var abort *AbortError
			if errors.As(err, &abort) {
				if aerr := r.abortBatch(ctx, b, abort, st); aerr != nil {
					return st, aerr
				}
				st.PatientsAborted++
				return st, nil
			}
			return st, fmt.Errorf("%s: %w", stage.name, err)
		}
		if len(b.Contacts) == 0 {
			break
		}
	}

	if err := r.assemble(ctx, b, st); err != nil {
		return st, err
	}
	st.PatientsProcessed++
	return st, nil
}

// abortBatch implements the batch-wide failure path: one aggregate audit
// record, every contact in the batch marked FAILURE.
func (r *Runner) abortBatch(ctx context.Context, b *Batch, abort *AbortError, st *Stats) error {
	r.log.Warn().
		Str("patient_id", b.PatientID).
		Str("rule", abort.RuleName).
		Str("ref", abort.Ref.String()).
		Msg(abort.Reason)

	if err := r.errlog.Log(ctx, &rulelog.Entry{
		Ref:         abort.Ref,
		Description: abort.Reason,
		RuleName:    abort.RuleName,
	}); err != nil {
		return err
	}

	failed := append([]contact.SourceRef(nil), b.Failed...)
	for _, c := range b.Contacts {
		failed = contact.MergeRefs(failed, c.MergedRefs)
	}
	st.ContactsFailed += len(b.Contacts)
	for _, ref := range failed {
		if err := r.contacts.MarkImported(ctx, ref, contact.OutcomeFailure); err != nil {
			return err
		}
	}
	return nil
}

// sortByPeriod orders contacts by (start, end) ascending; a missing end sorts
// before any recorded end on the same start.
func sortByPeriod(cs []*contact.Contact) {
	sort.SliceStable(cs, func(i, j int) bool {
		return periodLess(cs[i], cs[j])
	})
}

func periodLess(a, b *contact.Contact) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	switch {
	case a.End == nil:
		return b.End != nil
	case b.End == nil:
		return false
	default:
		return a.End.Before(*b.End)
	}
}
