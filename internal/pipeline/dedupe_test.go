package pipeline

import (
	"context"
	"testing"

	"github.com/ehr/admissions/internal/domain/contact"
)

func TestMergeDuplicates_ValueIdenticalRowsFold(t *testing.T) {
	f := newFixture(testConfig())
	a := mkContact("a", at(1, 8, 0), tp(at(1, 12, 0)), "1301", "K")
	a.Diagnoses = []contact.Diagnosis{{Code: "DA01", Type: "A"}}
	dup := mkContact("b", at(1, 8, 0), tp(at(1, 12, 0)), "1301", "K")
	dup.Diagnoses = []contact.Diagnosis{{Code: "DA01", Type: "A"}, {Code: "DB02", Type: "B"}}
	other := mkContact("c", at(2, 8, 0), tp(at(2, 12, 0)), "1301", "K")
	b := &Batch{PatientID: "p1", Contacts: []*contact.Contact{a, dup, other}}
	st := &Stats{}

	if err := f.runner.mergeDuplicates(context.Background(), b, st); err != nil {
		t.Fatalf("mergeDuplicates: %v", err)
	}

	if len(b.Contacts) != 2 {
		t.Fatalf("got %d contacts, want 2", len(b.Contacts))
	}
	// First-seen row stays representative.
	rep := b.Contacts[0]
	if rep != a {
		t.Error("representative is not the first-seen row")
	}
	if len(rep.MergedRefs) != 2 {
		t.Errorf("representative holds %d refs, want 2", len(rep.MergedRefs))
	}
	if len(rep.Diagnoses) != 2 {
		t.Errorf("representative holds %d diagnoses, want value-deduped union of 2", len(rep.Diagnoses))
	}
	if st.DuplicatesMerged != 1 {
		t.Errorf("DuplicatesMerged = %d, want 1", st.DuplicatesMerged)
	}
}

func TestMergeDuplicates_Idempotent(t *testing.T) {
	f := newFixture(testConfig())
	a := mkContact("a", at(1, 8, 0), tp(at(1, 12, 0)), "1301", "K")
	dup := mkContact("b", at(1, 8, 0), tp(at(1, 12, 0)), "1301", "K")
	b := &Batch{PatientID: "p1", Contacts: []*contact.Contact{a, dup}}
	st := &Stats{}

	if err := f.runner.mergeDuplicates(context.Background(), b, st); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	first := len(b.Contacts)
	firstRefs := len(b.Contacts[0].MergedRefs)

	if err := f.runner.mergeDuplicates(context.Background(), b, st); err != nil {
		t.Fatalf("second pass: %v", err)
	}

	if len(b.Contacts) != first || len(b.Contacts[0].MergedRefs) != firstRefs {
		t.Error("second pass changed the batch")
	}
	if st.DuplicatesMerged != 1 {
		t.Errorf("DuplicatesMerged = %d after two passes, want 1", st.DuplicatesMerged)
	}
}
