package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/ehr/admissions/internal/domain/contact"
)

func TestResolveOverlaps_ContainmentSplitsInThree(t *testing.T) {
	f := newFixture(testConfig())
	outer := mkContact("prev", at(1, 12, 0), tp(at(10, 12, 0)), "1301", "K")
	inner := mkContact("cur", at(4, 12, 0), tp(at(7, 12, 0)), "1301", "K")
	b := &Batch{PatientID: "p1", Contacts: []*contact.Contact{outer, inner}}
	st := &Stats{}

	if err := f.runner.resolveOverlaps(context.Background(), b, st); err != nil {
		t.Fatalf("resolveOverlaps: %v", err)
	}

	if len(b.Contacts) != 3 {
		t.Fatalf("got %d contacts, want 3 pieces", len(b.Contacts))
	}
	sortByPeriod(b.Contacts)
	head, middle, tail := b.Contacts[0], b.Contacts[1], b.Contacts[2]

	if !head.Start.Equal(at(1, 12, 0)) || !head.End.Equal(at(4, 12, 0)) {
		t.Errorf("head piece [%v, %v], want [D1, D4]", head.Start, head.End)
	}
	if !middle.Start.Equal(at(4, 12, 0)) || !middle.End.Equal(at(7, 12, 0)) {
		t.Errorf("middle piece [%v, %v], want [D4, D7]", middle.Start, middle.End)
	}
	if !tail.Start.Equal(at(7, 12, 0)) || !tail.End.Equal(at(10, 12, 0)) {
		t.Errorf("tail piece [%v, %v], want [D7, D10]", tail.Start, tail.End)
	}

	// The overlapped span carries both rows; head and tail stay the outer's.
	if len(middle.MergedRefs) != 2 {
		t.Errorf("middle piece holds %d refs, want both rows", len(middle.MergedRefs))
	}
	if len(head.MergedRefs) != 1 || head.MergedRefs[0].ID != "prev" {
		t.Errorf("head piece refs = %v, want outer's only", head.MergedRefs)
	}
	if len(tail.MergedRefs) != 1 || tail.MergedRefs[0].ID != "prev" {
		t.Errorf("tail piece refs = %v, want outer's only", tail.MergedRefs)
	}
	if st.OverlapsSplit != 1 {
		t.Errorf("OverlapsSplit = %d, want 1", st.OverlapsSplit)
	}
}

func TestResolveOverlaps_IdenticalSamePlaceMerges(t *testing.T) {
	f := newFixture(testConfig())
	a := mkContact("a", at(1, 8, 0), tp(at(1, 16, 0)), "1301", "K")
	c := mkContact("b", at(1, 8, 0), tp(at(1, 16, 0)), "1301", "K")
	b := &Batch{PatientID: "p1", Contacts: []*contact.Contact{a, c}}
	st := &Stats{}

	if err := f.runner.resolveOverlaps(context.Background(), b, st); err != nil {
		t.Fatalf("resolveOverlaps: %v", err)
	}

	if len(b.Contacts) != 1 {
		t.Fatalf("got %d contacts, want 1", len(b.Contacts))
	}
	if len(b.Contacts[0].MergedRefs) != 2 {
		t.Errorf("survivor holds %d refs, want 2", len(b.Contacts[0].MergedRefs))
	}
	if st.OverlapsMerged != 1 {
		t.Errorf("OverlapsMerged = %d, want 1", st.OverlapsMerged)
	}
}

// The same-start restart deliberately inverts the shorter record when the
// other ends later. Assembly absorbs the inverted row back into the episode,
// so the behavior is load-bearing and pinned here.
func TestResolveOverlaps_SameStartDifferentPlaceInverts(t *testing.T) {
	f := newFixture(testConfig())
	short := mkContact("short", at(1, 10, 0), tp(at(1, 14, 0)), "1301", "K")
	long := mkContact("long", at(1, 10, 0), tp(at(1, 20, 0)), "2402", "M")
	b := &Batch{PatientID: "p1", Contacts: []*contact.Contact{short, long}}
	st := &Stats{}

	if err := f.runner.resolveOverlaps(context.Background(), b, st); err != nil {
		t.Fatalf("resolveOverlaps: %v", err)
	}

	if len(b.Contacts) != 2 {
		t.Fatalf("got %d contacts, want 2", len(b.Contacts))
	}
	if !short.Start.Equal(at(1, 20, 0)) {
		t.Errorf("shorter record restarts at %v, want the longer record's end", short.Start)
	}
	if !short.End.Equal(at(1, 14, 0)) {
		t.Errorf("shorter record end = %v, want untouched (inverted interval)", short.End)
	}
	if st.OverlapsShrunk != 1 {
		t.Errorf("OverlapsShrunk = %d, want 1", st.OverlapsShrunk)
	}
}

func TestResolveOverlaps_SameStartSamePlaceLeftForCollisionRule(t *testing.T) {
	f := newFixture(testConfig())
	a := mkContact("a", at(1, 10, 0), tp(at(1, 12, 0)), "1301", "K")
	c := mkContact("b", at(1, 10, 0), tp(at(1, 18, 0)), "1301", "K")
	b := &Batch{PatientID: "p1", Contacts: []*contact.Contact{a, c}}
	st := &Stats{}

	if err := f.runner.resolveOverlaps(context.Background(), b, st); err != nil {
		t.Fatalf("resolveOverlaps: %v", err)
	}

	if len(b.Contacts) != 2 {
		t.Fatalf("got %d contacts, want both kept", len(b.Contacts))
	}
	if *st != (Stats{}) {
		t.Errorf("counters moved for a deferred pair: %+v", st)
	}
}

func TestResolveOverlaps_PartialOverlapTrims(t *testing.T) {
	f := newFixture(testConfig())
	first := mkContact("a", at(1, 8, 0), tp(at(1, 12, 0)), "1301", "K")
	second := mkContact("b", at(1, 10, 0), tp(at(1, 16, 0)), "1301", "K")
	b := &Batch{PatientID: "p1", Contacts: []*contact.Contact{first, second}}
	st := &Stats{}

	if err := f.runner.resolveOverlaps(context.Background(), b, st); err != nil {
		t.Fatalf("resolveOverlaps: %v", err)
	}

	if !first.End.Equal(at(1, 10, 0)) {
		t.Errorf("previous end = %v, want trimmed to current's start", first.End)
	}
	if st.OverlapsTrimmed != 1 {
		t.Errorf("OverlapsTrimmed = %d, want 1", st.OverlapsTrimmed)
	}
}

func TestResolveOverlaps_DisjointContactsUntouched(t *testing.T) {
	f := newFixture(testConfig())
	a := mkContact("a", at(1, 8, 0), tp(at(1, 12, 0)), "1301", "K")
	c := mkContact("b", at(2, 8, 0), tp(at(2, 12, 0)), "1301", "K")
	b := &Batch{PatientID: "p1", Contacts: []*contact.Contact{a, c}}
	st := &Stats{}

	if err := f.runner.resolveOverlaps(context.Background(), b, st); err != nil {
		t.Fatalf("resolveOverlaps: %v", err)
	}

	if len(b.Contacts) != 2 || *st != (Stats{}) {
		t.Errorf("disjoint contacts were modified: %d contacts, stats %+v", len(b.Contacts), st)
	}
}

func TestResolveOverlaps_MissingEndAborts(t *testing.T) {
	f := newFixture(testConfig())
	open := mkContact("a", at(1, 8, 0), nil, "1301", "K")
	next := mkContact("b", at(1, 10, 0), tp(at(1, 16, 0)), "1301", "K")
	b := &Batch{PatientID: "p1", Contacts: []*contact.Contact{open, next}}
	st := &Stats{}

	err := f.runner.resolveOverlaps(context.Background(), b, st)
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("expected AbortError, got %v", err)
	}
	if abort.RuleName != "resolveOverlaps" {
		t.Errorf("abort attributed to %q", abort.RuleName)
	}
}
